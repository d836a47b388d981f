//go:build linux

package probeengine

import (
	"testing"
	"time"
)

func TestPollStreamProbesReportsSuccessOnZeroSOError(t *testing.T) {
	if !canOpenRawSocket() {
		t.Skip("requires raw-socket privileges (CAP_NET_RAW)")
	}

	// A connected loopback TCP socket pair has SO_ERROR == 0, exercising
	// the success branch without needing a real probe destination.
	fd1, fd2, ok := loopbackSocketPair(t)
	if !ok {
		t.Skip("could not create a loopback socket pair")
	}
	defer closeQuietly(fd1)
	defer closeQuietly(fd2)

	e := &Engine{table: NewTable()}
	s, err := e.table.Alloc(9)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	s.start(ProtoTCP, IPv4, nil, time.Now(), time.Now().Add(time.Minute))
	s.SetStreamFD(fd1)

	e.PollStreamProbes(func(fd int) bool { return true })

	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeReply {
		t.Fatalf("outcomes = %+v, want one reply outcome", outcomes)
	}
	if e.table.Len() != 0 {
		t.Error("matched stream probe was not freed")
	}
}

func TestPollStreamProbesSkipsNonWritableSlots(t *testing.T) {
	e := &Engine{table: NewTable()}
	s, _ := e.table.Alloc(1)
	s.SetStreamFD(3)

	e.PollStreamProbes(func(fd int) bool { return false })

	if len(e.DrainOutcomes()) != 0 {
		t.Error("non-writable slot must not be reported")
	}
	if !s.Used() {
		t.Error("non-writable slot must not be freed")
	}
}

func TestPollStreamProbesIgnoresSlotsWithoutStreamSocket(t *testing.T) {
	e := &Engine{table: NewTable()}
	_, _ = e.table.Alloc(1) // streamFD defaults to -1

	e.PollStreamProbes(func(fd int) bool { return true })

	if len(e.DrainOutcomes()) != 0 {
		t.Error("slot without a stream socket must not be polled")
	}
}
