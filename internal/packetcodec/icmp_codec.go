package packetcodec

import (
	"encoding/binary"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// ICMP message types, taken from golang.org/x/net/ipv4 and ipv6 rather
// than hand-rolled constants, the way the teacher's icmp.go used
// golang.org/x/net/icmp for the same purpose.
const (
	icmpv4EchoReply    = int(ipv4.ICMPTypeEchoReply)
	icmpv4Unreachable  = int(ipv4.ICMPTypeDestinationUnreachable)
	icmpv4EchoRequest  = int(ipv4.ICMPTypeEcho)
	icmpv4TimeExceeded = int(ipv4.ICMPTypeTimeExceeded)

	icmpv6Unreachable  = int(ipv6.ICMPTypeDestinationUnreachable)
	icmpv6TimeExceeded = int(ipv6.ICMPTypeTimeExceeded)
	icmpv6EchoRequest  = int(ipv6.ICMPTypeEchoRequest)
	icmpv6EchoReply    = int(ipv6.ICMPTypeEchoReply)
)

// constructICMP builds an ICMP (or ICMPv6) echo request, using the
// probe's source port as the ICMP identifier so replies can still be
// correlated back to a slot without any port field of their own
// (mirrors platform_alloc_probe's use of the allocated port as the
// ICMP identifier).
func constructICMP(view probeengine.CalibrationView, srcPort uint16, dest probeengine.Sockaddr, params probeengine.Params) ([]byte, error) {
	payload := make([]byte, params.PayloadSize)

	msg := &icmp.Message{
		Code: 0,
		Body: &icmp.Echo{
			ID:   int(srcPort),
			Seq:  params.TTL,
			Data: payload,
		},
	}

	switch params.IPVersion {
	case probeengine.IPv4:
		msg.Type = ipv4.ICMPTypeEcho

		body, err := msg.Marshal(nil)
		if err != nil {
			return nil, err
		}

		inet4, ok := dest.(*unix.SockaddrInet4)
		if !ok {
			return nil, unix.EINVAL
		}
		hdr := buildIPv4Header(view, params.TTL, unix.IPPROTO_ICMP, inet4.Addr, len(body))
		return append(hdr, body...), nil

	case probeengine.IPv6:
		msg.Type = ipv6.ICMPTypeEchoRequest

		// Checksum is computed by the kernel from the IPv6 pseudo-header
		// for raw ICMPv6 sockets; passing a nil psh leaves it zero.
		return msg.Marshal(nil)

	default:
		return nil, unix.EINVAL
	}
}

// decodeIP4 inspects a packet received on the IPv4 ICMP socket: either
// a direct echo reply to one of our own probes, or a time-exceeded/
// unreachable message quoting a probe we sent (ported from
// probe_unix.c's receive_replies_from_icmp_socket).
func decodeIP4(eng *probeengine.Engine, sender probeengine.Sockaddr, data []byte, ts time.Time) {
	// The raw ICMP receive socket delivers the IPv4 header too.
	if len(data) < ipv4HeaderLen+8 {
		return
	}
	ihl := int(data[0]&0x0f) * 4
	if ihl < ipv4HeaderLen || len(data) < ihl+8 {
		return
	}
	icmp := data[ihl:]
	icmpType := int(icmp[0])

	switch icmpType {
	case icmpv4EchoReply:
		id := binary.BigEndian.Uint16(icmp[4:6])
		if slot, ok := eng.LookupSlot(id); ok && slot.Protocol() == probeengine.ProtoICMP {
			eng.ReceiveProbe(slot, int(icmpType), sender, ts)
		}

	case icmpv4TimeExceeded, icmpv4Unreachable:
		// The offending datagram is quoted starting 8 bytes into the
		// ICMP body: an inner IPv4 header followed by enough of the
		// inner transport header to recover the original source port.
		inner := icmp[8:]
		if len(inner) < ipv4HeaderLen+4 {
			return
		}
		innerIHL := int(inner[0]&0x0f) * 4
		if innerIHL < ipv4HeaderLen || len(inner) < innerIHL+4 {
			return
		}
		innerProto := inner[9]
		innerTransport := inner[innerIHL:]

		var port uint16
		switch innerProto {
		case unix.IPPROTO_ICMP:
			port = binary.BigEndian.Uint16(innerTransport[4:6])
		default:
			port = binary.BigEndian.Uint16(innerTransport[0:2])
		}

		if slot, ok := eng.LookupSlot(port); ok {
			eng.ReceiveProbe(slot, int(icmpType), sender, ts)
		}
	}
}

// decodeIP6 is decodeIP4's IPv6 analogue. The IPv6 raw ICMPv6 receive
// socket does not deliver the IPv6 header, so icmp starts at data[0].
func decodeIP6(eng *probeengine.Engine, sender probeengine.Sockaddr, data []byte, ts time.Time) {
	if len(data) < 8 {
		return
	}
	icmpType := int(data[0])

	switch icmpType {
	case icmpv6EchoReply:
		id := binary.BigEndian.Uint16(data[4:6])
		if slot, ok := eng.LookupSlot(id); ok && slot.Protocol() == probeengine.ProtoICMP {
			eng.ReceiveProbe(slot, int(icmpType), sender, ts)
		}

	case icmpv6TimeExceeded, icmpv6Unreachable:
		inner := data[8:]
		// IPv6 has a fixed 40-byte header with no IHL field.
		const innerIPv6HeaderLen = 40
		if len(inner) < innerIPv6HeaderLen+4 {
			return
		}
		innerProto := inner[6]
		innerTransport := inner[innerIPv6HeaderLen:]

		var port uint16
		switch innerProto {
		case unix.IPPROTO_ICMPV6:
			port = binary.BigEndian.Uint16(innerTransport[4:6])
		default:
			port = binary.BigEndian.Uint16(innerTransport[0:2])
		}

		if slot, ok := eng.LookupSlot(port); ok {
			eng.ReceiveProbe(slot, int(icmpType), sender, ts)
		}
	}
}
