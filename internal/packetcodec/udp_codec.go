package packetcodec

import (
	"encoding/binary"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// constructUDP builds a UDP datagram addressed at a port unlikely to
// be listening (classic traceroute behaviour: the TTL-expiry or
// destination-unreachable ICMP message is the signal, not a UDP
// reply), using the probe's source port for correlation.
func constructUDP(view probeengine.CalibrationView, srcPort uint16, dest probeengine.Sockaddr, params probeengine.Params) ([]byte, error) {
	payload := make([]byte, params.PayloadSize)
	udpLen := 8 + len(payload)

	udp := make([]byte, udpLen)
	binary.BigEndian.PutUint16(udp[0:2], srcPort)
	binary.BigEndian.PutUint16(udp[2:4], uint16(params.DestPort))
	binary.BigEndian.PutUint16(udp[4:6], uint16(udpLen))
	copy(udp[8:], payload)

	switch params.IPVersion {
	case probeengine.IPv4:
		inet4, ok := dest.(*unix.SockaddrInet4)
		if !ok {
			return nil, unix.EINVAL
		}
		// The UDP checksum is optional over IPv4 and is left zero: the
		// kernel fills in the real source address after this point, so a
		// checksum computed here could not cover it.
		binary.BigEndian.PutUint16(udp[6:8], 0)

		hdr := buildIPv4Header(view, params.TTL, unix.IPPROTO_UDP, inet4.Addr, udpLen)
		return append(hdr, udp...), nil

	case probeengine.IPv6:
		// UDP checksum over IPv6 is mandatory, but the send socket lacks
		// IPV6_HDRINCL; the kernel fills the source address and, because
		// the socket has IPV6_CHECKSUM set, recomputes the checksum from
		// the real pseudo-header, so we
		// only need to stamp something non-zero for the kernel to
		// overwrite (spec.md §4.2's IPv6 UDP send path).
		binary.BigEndian.PutUint16(udp[6:8], 0xffff)
		return udp, nil

	default:
		return nil, unix.EINVAL
	}
}
