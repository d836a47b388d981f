//go:build linux

package probeengine

import "time"

// CheckProbeTimeouts scans the table in slot-index order (spec.md §5)
// and reports a no-reply outcome for every slot whose deadline has
// passed, freeing it (ported from probe_unix.c's check_probe_timeouts).
func (e *Engine) CheckProbeTimeouts(now time.Time) {
	var expired []*Slot

	e.table.Each(func(s *Slot) {
		if !s.TimeoutDeadline().IsZero() && !now.Before(s.TimeoutDeadline()) {
			expired = append(expired, s)
		}
	})

	for _, s := range expired {
		e.emit(Outcome{CommandToken: s.CommandToken(), Kind: OutcomeNoReply})
		e.table.Free(s)
	}
}

// NextTimeout returns the shortest remaining duration until any in-
// flight probe's deadline, and whether any probe is in flight at all
// (ported from probe_unix.c's get_next_probe_timeout; this is the
// select() timeout argument of spec.md §4.7's event-loop contract).
func (e *Engine) NextTimeout(now time.Time) (time.Duration, bool) {
	var (
		found    bool
		shortest time.Duration
	)

	e.table.Each(func(s *Slot) {
		if s.TimeoutDeadline().IsZero() {
			return
		}
		remaining := s.TimeoutDeadline().Sub(now)
		if remaining < 0 {
			// spec.md §4.6's testable property 6 allows a negative
			// minimum (an already-expired deadline); clamped to 0 here
			// since a select() timeout can't be negative and the next
			// tick's CheckProbeTimeouts reaps it immediately regardless.
			remaining = 0
		}
		if !found || remaining < shortest {
			shortest = remaining
			found = true
		}
	})

	return shortest, found
}

// GatherWriteSet returns the stream-socket descriptors of every in-
// flight TCP/SCTP probe, for inclusion in the event loop's select()
// write-set (ported from probe_unix.c's gather_probe_sockets).
func (e *Engine) GatherWriteSet() []int {
	var fds []int
	e.table.Each(func(s *Slot) {
		if fd := s.StreamFD(); fd >= 0 {
			fds = append(fds, fd)
		}
	})
	return fds
}

// ReadFDs returns the engine's long-lived ICMP receive descriptors, for
// the event loop's select() read-set.
func (e *Engine) ReadFDs() []int {
	return []int{e.sockets.ip4Recv, e.sockets.ip6Recv}
}
