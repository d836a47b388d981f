package probeengine

import (
	"time"

	"golang.org/x/sys/unix"
)

// Slot is a single probe record (spec.md §3 "Probe record"). It is
// mutated only by the send/receive handlers that own it and is
// destroyed (zeroed, via Table.Free) when a terminal outcome is
// reported.
type Slot struct {
	used         bool
	commandToken int
	sourcePort   uint16
	protocol     Protocol
	ipVersion    IPVersion

	// streamFD is the owned per-probe stream socket for TCP/SCTP
	// probes, or -1 if none (spec.md I3: non-null stream socket implies
	// used=true, which Table.Alloc/Free maintain).
	streamFD int

	remoteAddr      Sockaddr
	departureTime   time.Time
	timeoutDeadline time.Time
}

// Used reports whether the slot currently holds a live probe.
func (s *Slot) Used() bool { return s.used }

// CommandToken returns the caller-supplied token echoed in outcome lines.
func (s *Slot) CommandToken() int { return s.commandToken }

// SourcePort returns the slot's unique (among live slots) source port.
func (s *Slot) SourcePort() uint16 { return s.sourcePort }

// Protocol returns the probe's transport protocol.
func (s *Slot) Protocol() Protocol { return s.protocol }

// IPVersion returns the probe's address family.
func (s *Slot) IPVersion() IPVersion { return s.ipVersion }

// RemoteAddr returns the probe's destination address.
func (s *Slot) RemoteAddr() Sockaddr { return s.remoteAddr }

// DepartureTime returns when the probe was sent.
func (s *Slot) DepartureTime() time.Time { return s.departureTime }

// TimeoutDeadline returns the time at which this probe becomes
// no-reply if nothing has matched it yet.
func (s *Slot) TimeoutDeadline() time.Time { return s.timeoutDeadline }

// start fills in the remaining probe fields (protocol, family,
// destination, departure time and deadline). SendProbe calls it before
// the packet is constructed, so the departure time is recorded ahead of
// construction and transmission.
func (s *Slot) start(protocol Protocol, ipVersion IPVersion, remoteAddr Sockaddr, departure time.Time, deadline time.Time) {
	s.protocol = protocol
	s.ipVersion = ipVersion
	s.remoteAddr = remoteAddr
	s.departureTime = departure
	s.timeoutDeadline = deadline
}

// StreamFD returns the slot's owned stream socket descriptor, or -1 if
// this probe has none (non-stream protocols, or construction never
// opened one).
func (s *Slot) StreamFD() int { return s.streamFD }

// SetStreamFD attaches an owned stream socket to the slot. Construction
// (internal/packetcodec) calls this for TCP/SCTP probes.
func (s *Slot) SetStreamFD(fd int) { s.streamFD = fd }

func (s *Slot) reset() {
	if s.streamFD > 0 {
		_ = unix.Close(s.streamFD)
	}
	*s = Slot{streamFD: -1}
}
