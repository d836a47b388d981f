package packetcodec

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

func TestConstructTCPAttachesStreamSocketToSlot(t *testing.T) {
	tab := probeengine.NewTable()
	slot, err := tab.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	defer tab.Free(slot)

	c := New()
	dest, err := c.DecodeDestAddr(probeengine.Params{IPVersion: probeengine.IPv4, Address: "127.0.0.1", DestPort: 1})
	if err != nil {
		t.Fatalf("DecodeDestAddr() error = %v", err)
	}

	packet, constructErr := c.Construct(fakeView{}, slot, slot.SourcePort(), dest, probeengine.Params{
		Protocol:  probeengine.ProtoTCP,
		IPVersion: probeengine.IPv4,
		TTL:       64,
		DestPort:  1,
	})
	if packet != nil {
		t.Errorf("packet = %v, want nil (kernel transmits the SYN via connect)", packet)
	}

	if slot.StreamFD() < 0 {
		t.Fatal("slot has no stream socket attached after Construct")
	}

	// Either outcome is a legitimate result of a loopback connect to a
	// closed port: a pending non-blocking connect (nil error, resolved
	// later by PollStreamProbes) or an immediate ECONNREFUSED.
	if constructErr != nil && constructErr != unix.ECONNREFUSED {
		t.Errorf("Construct() error = %v, want nil or ECONNREFUSED", constructErr)
	}
}
