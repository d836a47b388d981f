package probeengine

// Table is the fixed-capacity probe table (spec.md §3 "Probe table",
// §4.3). It maintains invariants I1 ("at most one used slot holds any
// given source_port") as a *declared, not enforced* invariant — see the
// Open Question decision in DESIGN.md — and I4 (cyclic port
// assignment in [MinPort, MaxPort]).
type Table struct {
	slots    [MaxProbes]Slot
	nextPort uint16
}

// NewTable returns an empty probe table with the port cursor positioned
// at MinPort (spec.md I4).
func NewTable() *Table {
	t := &Table{nextPort: MinPort}
	for i := range t.slots {
		t.slots[i].streamFD = -1
	}
	return t
}

// Alloc scans for the first free slot and assigns it the given command
// token and the next cyclic source port. Returns (nil, ErrProbesExhausted)
// if no slot is free; no slot is reserved in that case (spec.md §4.3).
func (t *Table) Alloc(commandToken int) (*Slot, error) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.used {
			continue
		}

		s.used = true
		s.commandToken = commandToken
		s.streamFD = -1
		s.sourcePort = t.nextPort

		if t.nextPort == MaxPort {
			t.nextPort = MinPort
		} else {
			t.nextPort++
		}

		return s, nil
	}

	return nil, ErrProbesExhausted
}

// Free closes any owned stream socket and zeroes the slot. Idempotent
// (spec.md §4.3).
func (t *Table) Free(s *Slot) {
	s.reset()
}

// Each invokes fn for every used slot, in slot-index order (spec.md §5:
// "timeout scan order (slot-index order within a single timeout
// sweep)").
func (t *Table) Each(fn func(*Slot)) {
	for i := range t.slots {
		if t.slots[i].used {
			fn(&t.slots[i])
		}
	}
}

// FindByPort returns the used slot holding the given source port, if
// any. Used by the receive path to correlate an incoming ICMP quotation
// or echo reply back to its probe.
func (t *Table) FindByPort(port uint16) (*Slot, bool) {
	for i := range t.slots {
		s := &t.slots[i]
		if s.used && s.sourcePort == port {
			return s, true
		}
	}
	return nil, false
}

// Len returns the number of currently-used slots.
func (t *Table) Len() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].used {
			n++
		}
	}
	return n
}
