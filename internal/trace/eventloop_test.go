//go:build linux

package trace

import (
	"net"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

func TestEncodeDecodeTokenRoundTrips(t *testing.T) {
	for ttl := 1; ttl <= 64; ttl++ {
		for idx := 0; idx < 10; idx++ {
			token := encodeToken(ttl, idx)
			key := decodeToken(token)
			if key.ttl != ttl || key.index != idx {
				t.Fatalf("decodeToken(encodeToken(%d, %d)) = %+v", ttl, idx, key)
			}
		}
	}
}

func TestApplyOutcomeReply(t *testing.T) {
	hop := &Hop{Number: 5}
	hops := map[int]*Hop{5: hop}

	o := probeengine.Outcome{
		CommandToken:  encodeToken(5, 0),
		Kind:          probeengine.OutcomeReply,
		ResponderAddr: &unix.SockaddrInet4{Addr: [4]byte{1, 2, 3, 4}},
		RTT:           20 * time.Millisecond,
	}
	applyOutcome(hops, o)

	if !hop.Responded {
		t.Error("Responded = false, want true")
	}
	if len(hop.RTTs) != 1 || hop.RTTs[0] != 20 {
		t.Errorf("RTTs = %v, want [20]", hop.RTTs)
	}
	if !hop.IP.Equal(net.IPv4(1, 2, 3, 4)) {
		t.Errorf("IP = %v, want 1.2.3.4", hop.IP)
	}
}

func TestApplyOutcomeNoReplyRecordsTimeout(t *testing.T) {
	hop := &Hop{Number: 3}
	hops := map[int]*Hop{3: hop}

	applyOutcome(hops, probeengine.Outcome{CommandToken: encodeToken(3, 0), Kind: probeengine.OutcomeNoReply})

	if hop.Responded {
		t.Error("Responded = true, want false")
	}
	if len(hop.RTTs) != 1 || hop.RTTs[0] != -1 {
		t.Errorf("RTTs = %v, want [-1]", hop.RTTs)
	}
}

func TestApplyOutcomeIgnoresUnknownTTL(t *testing.T) {
	hops := map[int]*Hop{1: {Number: 1}}
	applyOutcome(hops, probeengine.Outcome{CommandToken: encodeToken(99, 0), Kind: probeengine.OutcomeNoReply})
	if len(hops[1].RTTs) != 0 {
		t.Error("outcome for unknown ttl leaked into hop 1")
	}
}

func TestSockaddrIP(t *testing.T) {
	v4 := sockaddrIP(&unix.SockaddrInet4{Addr: [4]byte{192, 168, 1, 1}})
	if !v4.Equal(net.IPv4(192, 168, 1, 1)) {
		t.Errorf("sockaddrIP(v4) = %v, want 192.168.1.1", v4)
	}

	if sockaddrIP(nil) != nil {
		t.Error("sockaddrIP(nil) should return nil")
	}
}
