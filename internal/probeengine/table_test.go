package probeengine

import "testing"

func TestTableAllocAssignsCyclicPorts(t *testing.T) {
	tab := NewTable()

	s1, err := tab.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if s1.SourcePort() != MinPort {
		t.Errorf("first port = %d, want %d", s1.SourcePort(), MinPort)
	}

	s2, err := tab.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if s2.SourcePort() != MinPort+1 {
		t.Errorf("second port = %d, want %d", s2.SourcePort(), MinPort+1)
	}
}

func TestTablePortWrapsAtMaxPort(t *testing.T) {
	tab := NewTable()
	tab.nextPort = MaxPort

	s1, err := tab.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if s1.SourcePort() != MaxPort {
		t.Fatalf("port = %d, want %d", s1.SourcePort(), MaxPort)
	}

	s2, err := tab.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if s2.SourcePort() != MinPort {
		t.Errorf("wrapped port = %d, want %d", s2.SourcePort(), MinPort)
	}
}

func TestTableAllocExhaustion(t *testing.T) {
	tab := NewTable()

	for i := 0; i < MaxProbes; i++ {
		if _, err := tab.Alloc(i); err != nil {
			t.Fatalf("Alloc() #%d error = %v", i, err)
		}
	}

	if _, err := tab.Alloc(MaxProbes); err != ErrProbesExhausted {
		t.Errorf("Alloc() past capacity error = %v, want ErrProbesExhausted", err)
	}
}

func TestTableFreeReleasesSlot(t *testing.T) {
	tab := NewTable()

	s, err := tab.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	port := s.SourcePort()

	tab.Free(s)

	if s.Used() {
		t.Error("slot still marked used after Free")
	}
	if _, ok := tab.FindByPort(port); ok {
		t.Error("FindByPort found a freed slot")
	}
}

func TestTableFindByPort(t *testing.T) {
	tab := NewTable()

	s, err := tab.Alloc(42)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}

	found, ok := tab.FindByPort(s.SourcePort())
	if !ok {
		t.Fatal("FindByPort() did not find allocated slot")
	}
	if found.CommandToken() != 42 {
		t.Errorf("CommandToken() = %d, want 42", found.CommandToken())
	}

	if _, ok := tab.FindByPort(MaxPort); ok {
		t.Error("FindByPort found a port that was never allocated")
	}
}

func TestTableEachVisitsOnlyUsedSlotsInOrder(t *testing.T) {
	tab := NewTable()

	a, _ := tab.Alloc(1)
	_, _ = tab.Alloc(2)
	tab.Free(a)
	c, _ := tab.Alloc(3)

	var tokens []int
	tab.Each(func(s *Slot) {
		tokens = append(tokens, s.CommandToken())
	})

	if len(tokens) != 2 {
		t.Fatalf("Each() visited %d slots, want 2", len(tokens))
	}
	if tokens[0] != c.CommandToken() {
		t.Errorf("first visited token = %d, want %d", tokens[0], c.CommandToken())
	}
}

func TestTableLen(t *testing.T) {
	tab := NewTable()
	if tab.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", tab.Len())
	}

	s, _ := tab.Alloc(1)
	if tab.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tab.Len())
	}

	tab.Free(s)
	if tab.Len() != 0 {
		t.Errorf("Len() after Free = %d, want 0", tab.Len())
	}
}
