//go:build linux

// Package engineloop drives a probeengine.Engine through the select-based
// event loop described by the engine's design: one process, one thread,
// combining the long-lived ICMP read sockets and the per-probe stream
// write sockets into a single select() call whose timeout tracks the
// nearest probe deadline (ported from probe_unix.c's main receive loop).
package engineloop

import (
	"context"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// Loop owns the engine for the duration of a single run and collects
// every Outcome it reports until no probe is left in flight.
type Loop struct {
	Engine *probeengine.Engine

	// Idle caps how long a single select() call blocks when no probe
	// deadline is closer; it bounds how promptly a freshly-submitted
	// probe's read-set change is picked up.
	Idle time.Duration
}

// New returns a Loop over eng with a conservative default idle cap.
func New(eng *probeengine.Engine) *Loop {
	return &Loop{Engine: eng, Idle: 200 * time.Millisecond}
}

// Drain runs the event loop until the engine has no probe in flight,
// returning every Outcome observed along the way in the order it was
// reported (spec.md §5's single observer-order guarantee).
func (l *Loop) Drain() ([]probeengine.Outcome, error) {
	return l.DrainContext(context.Background())
}

// DrainContext is Drain, but returns early with ctx.Err() if ctx is
// cancelled before every in-flight probe has a terminal outcome.
// Probes left in the table when this happens are still valid and may
// be drained later by a subsequent call.
func (l *Loop) DrainContext(ctx context.Context) ([]probeengine.Outcome, error) {
	var all []probeengine.Outcome

	for l.Engine.Table().Len() > 0 {
		select {
		case <-ctx.Done():
			return all, ctx.Err()
		default:
		}

		if err := l.tick(); err != nil {
			return all, err
		}
		all = append(all, l.Engine.DrainOutcomes()...)
	}

	return all, nil
}

// tick runs one select() iteration: build the read/write sets, block
// for at most the nearer of the idle cap or the closest probe
// deadline, then service whichever sockets became ready and expire any
// probe whose deadline has passed.
func (l *Loop) tick() error {
	now := time.Now()

	timeout := l.Idle
	if remaining, ok := l.Engine.NextTimeout(now); ok && remaining < timeout {
		timeout = remaining
	}

	readFDs := l.Engine.ReadFDs()
	writeFDs := l.Engine.GatherWriteSet()

	var rSet, wSet unix.FdSet
	maxFD := 0
	for _, fd := range readFDs {
		fdSet(&rSet, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}
	for _, fd := range writeFDs {
		fdSet(&wSet, fd)
		if fd > maxFD {
			maxFD = fd
		}
	}

	tv := unix.NsecToTimeval(timeout.Nanoseconds())
	_, err := unix.Select(maxFD+1, &rSet, &wSet, nil, &tv)
	if err != nil && err != unix.EINTR {
		return &probeengine.FatalError{Op: "select", Err: err}
	}

	if err := l.Engine.ReceiveReplies(); err != nil {
		return err
	}

	l.Engine.PollStreamProbes(func(fd int) bool {
		return fdIsSet(&wSet, fd)
	})

	l.Engine.CheckProbeTimeouts(time.Now())

	return nil
}
