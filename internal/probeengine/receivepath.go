//go:build linux

package probeengine

import (
	"time"

	"golang.org/x/sys/unix"
)

// ReceiveReplies drains both ICMP receive sockets once each, handing
// every datagram to the Codec for decoding and correlation (ported from
// probe_unix.c's receive_replies/receive_replies_from_icmp_socket).
// EAGAIN/EWOULDBLOCK simply means the socket is caught up; any other
// error is fatal, since these are the long-lived sockets opened at
// privileged startup.
func (e *Engine) ReceiveReplies() error {
	if err := e.drainICMPSocket(e.sockets.ip4Recv, false); err != nil {
		return err
	}
	if err := e.drainICMPSocket(e.sockets.ip6Recv, true); err != nil {
		return err
	}
	return nil
}

func (e *Engine) drainICMPSocket(fd int, isIPv6 bool) error {
	buf := make([]byte, PacketBufferSize)

	for {
		n, from, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if isTransientRecvError(err) {
				return nil
			}
			if isInterrupted(err) {
				continue
			}
			return fatal("recvfrom on ICMP socket", err)
		}

		ts := time.Now()
		data := append([]byte(nil), buf[:n]...)
		if isIPv6 {
			e.codec.DecodeIP6(e, from, data, ts)
		} else {
			e.codec.DecodeIP4(e, from, data, ts)
		}
	}
}

// PollStreamProbes checks every in-flight TCP/SCTP slot's owned stream
// socket for a completed non-blocking connect, reporting SO_ERROR as
// either a terminal arrival (success or ECONNREFUSED) or a mapped error
// outcome (ported from probe_unix.c's receive_replies_from_probe_socket,
// which polls the probe's own socket rather than the shared ICMP
// sockets for TCP/SCTP probes).
func (e *Engine) PollStreamProbes(writable func(fd int) bool) {
	var done []*Slot

	e.table.Each(func(s *Slot) {
		fd := s.StreamFD()
		if fd < 0 {
			return
		}
		if !writable(fd) {
			return
		}

		errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			done = append(done, s)
			e.emit(errnoToOutcome(s.CommandToken(), err))
			return
		}

		switch unix.Errno(errno) {
		case 0:
			e.reportArrivalLater(s, ICMPTypeEchoReply, s.RemoteAddr(), time.Now())
		case unix.ECONNREFUSED:
			// A RST in reply to our SYN is itself an arrival at the
			// destination (spec.md §7: "ECONNREFUSED ... is reclassified
			// as success").
			e.reportArrivalLater(s, ICMPTypeEchoReply, s.RemoteAddr(), time.Now())
		default:
			e.emit(errnoToOutcome(s.CommandToken(), unix.Errno(errno)))
		}
		done = append(done, s)
	})

	for _, s := range done {
		if s.Used() {
			e.table.Free(s)
		}
	}
}

// reportArrivalLater emits the outcome without freeing the slot inline,
// since PollStreamProbes frees matched slots after the Each scan
// completes (mutating the table mid-scan would skip entries).
func (e *Engine) reportArrivalLater(slot *Slot, icmpType int, responder Sockaddr, arrival time.Time) {
	e.emit(Outcome{
		CommandToken:  slot.CommandToken(),
		Kind:          OutcomeReply,
		ICMPType:      icmpType,
		ResponderAddr: responder,
		RTT:           arrival.Sub(slot.DepartureTime()),
	})
}
