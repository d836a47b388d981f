// Package packetcodec implements probeengine.Codec: construction of the
// wire packet for each supported protocol, and decoding of the ICMP/
// ICMPv6 replies and errors that a probeengine.Engine receives back.
package packetcodec

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// Codec is the concrete probeengine.Codec used by the command layer. It
// holds no per-probe state; everything needed to decode a reply is
// recovered from the packet itself and the engine's probe table.
type Codec struct{}

// New returns a ready-to-use Codec.
func New() *Codec { return &Codec{} }

var _ probeengine.Codec = (*Codec)(nil)

// DecodeDestAddr resolves the probe destination to a Sockaddr, matching
// the IP version declared in params (spec.md §6's decode_dest_addr).
func (c *Codec) DecodeDestAddr(params probeengine.Params) (probeengine.Sockaddr, error) {
	ip := net.ParseIP(params.Address)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", params.Address)
		if err != nil {
			return nil, unix.EINVAL
		}
		ip = resolved.IP
	}

	switch params.IPVersion {
	case probeengine.IPv4:
		v4 := ip.To4()
		if v4 == nil {
			// Resolved fine, but only to an address of the other family:
			// there is no route to the destination over IPv4.
			return nil, probeengine.ErrNoRoute
		}
		var addr [4]byte
		copy(addr[:], v4)
		return &unix.SockaddrInet4{Addr: addr, Port: params.DestPort}, nil

	case probeengine.IPv6:
		v6 := ip.To16()
		if v6 == nil || ip.To4() != nil {
			return nil, probeengine.ErrNoRoute
		}
		var addr [16]byte
		copy(addr[:], v6)
		return &unix.SockaddrInet6{Addr: addr, Port: params.DestPort}, nil

	default:
		return nil, unix.EINVAL
	}
}

// Construct dispatches to the per-protocol packet builder (spec.md
// §4.4 step 4 / §6's Construct).
func (c *Codec) Construct(view probeengine.CalibrationView, slot *probeengine.Slot, srcPort uint16, dest probeengine.Sockaddr, params probeengine.Params) ([]byte, error) {
	switch params.Protocol {
	case probeengine.ProtoICMP:
		return constructICMP(view, srcPort, dest, params)
	case probeengine.ProtoUDP:
		return constructUDP(view, srcPort, dest, params)
	case probeengine.ProtoTCP:
		return constructTCP(slot, dest, params)
	case probeengine.ProtoSCTP:
		return constructSCTP(slot, dest, params)
	default:
		return nil, fmt.Errorf("packetcodec: unknown protocol %v", params.Protocol)
	}
}

// DecodeIP4 parses a datagram received on the engine's IPv4 ICMP
// receive socket: either a direct echo reply, or an ICMP error
// quoting the original probe (ported from probe_unix.c's
// receive_replies_from_icmp_socket's IPv4 branch).
func (c *Codec) DecodeIP4(eng *probeengine.Engine, sender probeengine.Sockaddr, data []byte, ts time.Time) {
	decodeIP4(eng, sender, data, ts)
}

// DecodeIP6 parses a datagram received on the engine's IPv6 ICMP
// receive socket.
func (c *Codec) DecodeIP6(eng *probeengine.Engine, sender probeengine.Sockaddr, data []byte, ts time.Time) {
	decodeIP6(eng, sender, data, ts)
}
