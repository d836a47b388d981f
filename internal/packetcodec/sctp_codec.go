package packetcodec

import (
	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// constructSCTP mirrors constructTCP but establishes an SCTP
// association instead, gated by probeengine.Engine.IsProtocolSupported
// having already confirmed SCTP is available on this host (spec.md
// §4.2).
func constructSCTP(slot *probeengine.Slot, dest probeengine.Sockaddr, params probeengine.Params) ([]byte, error) {
	return openStreamProbe(slot, dest, params, unix.SOCK_STREAM, unix.IPPROTO_SCTP)
}
