//go:build linux

package probeengine

import (
	"golang.org/x/sys/unix"
)

// socketSet owns the long-lived raw sockets (spec.md §4.1 "Socket
// Set"). Per-probe stream sockets are owned by individual Slot values
// instead, and are closed by Table.Free.
type socketSet struct {
	ip4Send  int // raw, IPPROTO_RAW, IP_HDRINCL — engine builds the IP header itself
	ip4Recv  int // raw, IPPROTO_ICMP
	icmp6Send int // raw, IPPROTO_ICMPV6
	udp6Send  int // raw, IPPROTO_UDP (IPv6)
	ip6Recv   int // raw, IPPROTO_ICMPV6
}

// openSocketSet opens all five long-lived raw sockets. Any failure
// here is fatal (spec.md §4.1 "Any failure during privileged init is
// fatal"), since it must run before privileges are dropped.
func openSocketSet() (*socketSet, error) {
	ip4Send, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_RAW)
	if err != nil {
		return nil, fatal("open IPv4 send socket", err)
	}
	if err := unix.SetsockoptInt(ip4Send, unix.IPPROTO_IP, unix.IP_HDRINCL, 1); err != nil {
		_ = unix.Close(ip4Send)
		return nil, fatal("set IP_HDRINCL", err)
	}

	ip4Recv, err := unix.Socket(unix.AF_INET, unix.SOCK_RAW, unix.IPPROTO_ICMP)
	if err != nil {
		_ = unix.Close(ip4Send)
		return nil, fatal("open IPv4 receive socket", err)
	}

	icmp6Send, err := unix.Socket(unix.AF_INET6, unix.SOCK_RAW, unix.IPPROTO_ICMPV6)
	if err != nil {
		_ = unix.Close(ip4Send)
		_ = unix.Close(ip4Recv)
		return nil, fatal("open ICMPv6 send socket", err)
	}

	udp6Send, err := unix.Socket(unix.AF_INET6, unix.SOCK_RAW, unix.IPPROTO_UDP)
	if err != nil {
		_ = unix.Close(ip4Send)
		_ = unix.Close(ip4Recv)
		_ = unix.Close(icmp6Send)
		return nil, fatal("open UDPv6 send socket", err)
	}
	// Have the kernel compute the UDP checksum (offset 6 in the UDP
	// header) over the real IPv6 pseudo-header on every send.
	if err := unix.SetsockoptInt(udp6Send, unix.IPPROTO_IPV6, unix.IPV6_CHECKSUM, 6); err != nil {
		_ = unix.Close(ip4Send)
		_ = unix.Close(ip4Recv)
		_ = unix.Close(icmp6Send)
		_ = unix.Close(udp6Send)
		return nil, fatal("set IPV6_CHECKSUM", err)
	}

	ip6Recv, err := unix.Socket(unix.AF_INET6, unix.SOCK_RAW, unix.IPPROTO_ICMPV6)
	if err != nil {
		_ = unix.Close(ip4Send)
		_ = unix.Close(ip4Recv)
		_ = unix.Close(icmp6Send)
		_ = unix.Close(udp6Send)
		return nil, fatal("open IPv6 receive socket", err)
	}

	return &socketSet{
		ip4Send:   ip4Send,
		ip4Recv:   ip4Recv,
		icmp6Send: icmp6Send,
		udp6Send:  udp6Send,
		ip6Recv:   ip6Recv,
	}, nil
}

// setNonblocking places every long-lived socket in non-blocking mode.
// Failure is fatal (spec.md §4.1: "indicates a kernel bug, not a
// runtime condition").
func (s *socketSet) setNonblocking() error {
	for _, fd := range []int{s.ip4Recv, s.ip6Recv, s.ip4Send, s.icmp6Send, s.udp6Send} {
		if err := unix.SetNonblock(fd, true); err != nil {
			return fatal("set non-blocking", err)
		}
	}
	return nil
}

// sendRoute picks the long-lived send socket by address family and
// protocol (spec.md §4.1 "Send routing"). TCP/SCTP are not routed here:
// they transmit via their own connected stream socket.
func (s *socketSet) sendRoute(ipVersion IPVersion, protocol Protocol) (int, error) {
	switch {
	case ipVersion == IPv4 && (protocol == ProtoICMP || protocol == ProtoUDP):
		return s.ip4Send, nil
	case ipVersion == IPv6 && protocol == ProtoICMP:
		return s.icmp6Send, nil
	case ipVersion == IPv6 && protocol == ProtoUDP:
		return s.udp6Send, nil
	default:
		return 0, ErrUnsupportedCombo
	}
}

func (s *socketSet) close() {
	for _, fd := range []int{s.ip4Send, s.ip4Recv, s.icmp6Send, s.udp6Send, s.ip6Recv} {
		_ = unix.Close(fd)
	}
}
