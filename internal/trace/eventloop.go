//go:build linux

package trace

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// sockaddrIP converts the raw socket address the engine reports a
// reply from into a net.IP, for the output/enrichment layers that deal
// exclusively in net.IP.
func sockaddrIP(addr probeengine.Sockaddr) net.IP {
	switch a := addr.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:])
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:])
	default:
		return nil
	}
}

// probeKey recovers which hop and which probe-within-a-hop a
// CommandToken refers to. The engine treats CommandToken as an opaque
// caller value; encoding (ttl, index) into it lets a single shared
// engine carry every in-flight probe of a trace without per-probe
// bookkeeping outside the table itself.
type probeKey struct {
	ttl   int
	index int
}

func encodeToken(ttl, index int) int {
	return ttl*64 + index
}

func decodeToken(token int) probeKey {
	return probeKey{ttl: token / 64, index: token % 64}
}

// applyOutcome folds a single probeengine.Outcome into the Hop it
// belongs to (addressed via its CommandToken), mirroring probeHop's
// RTT/timeout bookkeeping from the previous per-protocol prober design.
func applyOutcome(hops map[int]*Hop, o probeengine.Outcome) {
	key := decodeToken(o.CommandToken)
	hop := hops[key.ttl]
	if hop == nil {
		return
	}

	if o.Kind == probeengine.OutcomeReply {
		rtt := float64(o.RTT) / float64(time.Millisecond)
		hop.RTTs = append(hop.RTTs, rtt)
		hop.Responded = true
		if ip := sockaddrIP(o.ResponderAddr); ip != nil {
			hop.IP = ip
		}
		return
	}

	hop.RTTs = append(hop.RTTs, -1)
}
