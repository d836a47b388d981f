package probeengine

import (
	"time"

	"golang.org/x/sys/unix"
)

// Protocol identifies the probe's transport-level protocol.
type Protocol int

const (
	ProtoICMP Protocol = iota
	ProtoUDP
	ProtoTCP
	ProtoSCTP
)

func (p Protocol) String() string {
	switch p {
	case ProtoICMP:
		return "icmp"
	case ProtoUDP:
		return "udp"
	case ProtoTCP:
		return "tcp"
	case ProtoSCTP:
		return "sctp"
	default:
		return "unknown"
	}
}

// IPVersion identifies the IP address family used for a probe.
type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// Sockaddr is the address type threaded through construction, sending,
// and decoding. It is golang.org/x/sys/unix's socket address interface
// so the engine can hand addresses directly to Sendto/Recvfrom/Connect
// without an intermediate net.Addr translation.
type Sockaddr = unix.Sockaddr

// Params are the caller-supplied probe parameters (spec.md §3 "Probe
// parameters").
type Params struct {
	Protocol     Protocol
	IPVersion    IPVersion
	TTL          int
	Address      string
	DestPort     int
	Timeout      time.Duration
	CommandToken int
	PayloadSize  int
}

// Validate checks the locally-detectable invalid combinations (spec.md
// §3 "Constraints: invalid combinations fail locally with
// invalid-argument").
func (p Params) Validate() error {
	if p.TTL < 1 || p.TTL > 255 {
		return ErrInvalidArgument
	}
	if p.IPVersion != IPv4 && p.IPVersion != IPv6 {
		return ErrInvalidArgument
	}
	if p.Protocol != ProtoICMP && p.DestPort <= 0 {
		return ErrInvalidArgument
	}
	if p.Address == "" {
		return ErrInvalidArgument
	}
	return nil
}
