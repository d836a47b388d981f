//go:build linux

package probeengine

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// SendProbe implements spec.md §4.4's send path end-to-end: validate,
// allocate a slot, resolve the destination, construct the wire packet
// via the Codec, and transmit it (ported from probe_unix.c's
// send_probe/send_packet/platform_alloc_probe).
//
// A locally-detected failure (validation, allocation exhaustion,
// unsupported protocol, or a send-time errno) is reported as an Outcome
// rather than returned as an error, mirroring spec.md's "local failures
// become outcome lines, not exceptions" design. SendProbe only returns
// a Go error for FatalError-class conditions.
func (e *Engine) SendProbe(params Params) error {
	if err := params.Validate(); err != nil {
		e.emit(errnoToOutcome(params.CommandToken, unix.EINVAL))
		return nil
	}

	if !e.IsProtocolSupported(params.Protocol) {
		unsupported := error(ErrUnsupportedCombo)
		if params.Protocol == ProtoSCTP {
			unsupported = ErrSCTPUnsupported
		}
		e.emit(errnoToOutcome(params.CommandToken, unsupported))
		return nil
	}

	dest, err := e.codec.DecodeDestAddr(params)
	if err != nil {
		e.emit(errnoToOutcome(params.CommandToken, err))
		return nil
	}

	slot, err := e.table.Alloc(params.CommandToken)
	if err != nil {
		e.emit(Outcome{CommandToken: params.CommandToken, Kind: OutcomeProbesExhausted})
		return nil
	}

	now := time.Now()
	slot.start(params.Protocol, params.IPVersion, dest, now, now.Add(params.Timeout))

	packet, err := e.codec.Construct(e, slot, slot.SourcePort(), dest, params)
	if err != nil {
		// FreeBSD's connect()-completes-synchronously-with-ECONNREFUSED
		// special case (spec.md §4.4 step 4, §7): treat as an immediate
		// arrival rather than an error.
		if errors.Is(err, unix.ECONNREFUSED) {
			e.reportArrival(slot, ICMPTypeEchoReply, dest, time.Now())
			return nil
		}
		e.table.Free(slot)
		e.emit(errnoToOutcome(params.CommandToken, err))
		return nil
	}

	if packet == nil {
		// The codec already arranged transmission itself (e.g. a
		// non-blocking connect() was initiated on the slot's stream
		// socket); nothing further to send on a raw socket.
		return nil
	}

	fd, err := e.sockets.sendRoute(params.IPVersion, params.Protocol)
	if err != nil {
		e.table.Free(slot)
		e.emit(errnoToOutcome(params.CommandToken, err))
		return nil
	}

	if err := unix.Sendto(fd, packet, 0, dest); err != nil {
		e.table.Free(slot)
		e.emit(errnoToOutcome(params.CommandToken, err))
		return nil
	}

	return nil
}

// reportArrival records a terminal success outcome and frees the slot
// (spec.md §4.5 "a matched reply is always terminal").
func (e *Engine) reportArrival(slot *Slot, icmpType int, responder Sockaddr, arrival time.Time) {
	e.emit(Outcome{
		CommandToken:  slot.CommandToken(),
		Kind:          OutcomeReply,
		ICMPType:      icmpType,
		ResponderAddr: responder,
		RTT:           arrival.Sub(slot.DepartureTime()),
	})
	e.table.Free(slot)
}

// ReceiveProbe is called by a Codec's DecodeIP4/DecodeIP6 when an
// incoming packet has been matched to slot. It is exported so
// internal/packetcodec can invoke it without an import cycle back into
// this package's internals.
func (e *Engine) ReceiveProbe(slot *Slot, icmpType int, responder Sockaddr, arrival time.Time) {
	e.reportArrival(slot, icmpType, responder, arrival)
}
