//go:build linux

package probeengine

import (
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// stubCodec is a minimal Codec for exercising SendProbe's control flow
// without touching real sockets.
type stubCodec struct {
	destErr      error
	constructErr error
	packet       []byte
}

func (c *stubCodec) DecodeDestAddr(params Params) (Sockaddr, error) {
	if c.destErr != nil {
		return nil, c.destErr
	}
	return &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}, nil
}

func (c *stubCodec) Construct(view CalibrationView, slot *Slot, srcPort uint16, dest Sockaddr, params Params) ([]byte, error) {
	if c.constructErr != nil {
		return nil, c.constructErr
	}
	return c.packet, nil
}

func (c *stubCodec) DecodeIP4(eng *Engine, sender Sockaddr, data []byte, ts time.Time) {}
func (c *stubCodec) DecodeIP6(eng *Engine, sender Sockaddr, data []byte, ts time.Time) {}

func validParams() Params {
	return Params{
		Protocol: ProtoUDP,
		IPVersion: IPv4,
		TTL:       1,
		Address:   "127.0.0.1",
		DestPort:  33434,
		Timeout:   time.Second,
	}
}

func TestSendProbeRejectsInvalidParamsLocally(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{}, sctpSupport: true}

	bad := validParams()
	bad.TTL = 0

	if err := e.SendProbe(bad); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeInvalidArgument {
		t.Fatalf("outcomes = %+v, want one invalid-argument outcome", outcomes)
	}
	if e.table.Len() != 0 {
		t.Error("invalid params must not consume a slot")
	}
}

func TestSendProbeRejectsUnsupportedProtocol(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{}, sctpSupport: false}

	p := validParams()
	p.Protocol = ProtoSCTP
	p.DestPort = 1

	if err := e.SendProbe(p); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeInvalidArgument {
		t.Fatalf("outcomes = %+v, want one invalid-argument outcome", outcomes)
	}
}

func TestSendProbeReportsDestAddrError(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{destErr: unix.ENETUNREACH}, sctpSupport: true}

	if err := e.SendProbe(validParams()); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeNoRoute {
		t.Fatalf("outcomes = %+v, want one no-route outcome", outcomes)
	}
	if e.table.Len() != 0 {
		t.Error("dest-addr failure must not consume a slot")
	}
}

func TestSendProbeExhaustion(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{}, sctpSupport: true}

	for i := 0; i < MaxProbes; i++ {
		s, err := e.table.Alloc(i)
		if err != nil {
			t.Fatalf("Alloc() #%d error = %v", i, err)
		}
		s.start(ProtoUDP, IPv4, nil, time.Now(), time.Now().Add(time.Minute))
	}

	if err := e.SendProbe(validParams()); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeProbesExhausted {
		t.Fatalf("outcomes = %+v, want one probes-exhausted outcome", outcomes)
	}
}

func TestSendProbeTreatsECONNREFUSEDAsArrival(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{constructErr: unix.ECONNREFUSED}, sctpSupport: true}

	p := validParams()
	p.Protocol = ProtoTCP

	if err := e.SendProbe(p); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	outcomes := e.DrainOutcomes()
	if len(outcomes) != 1 || outcomes[0].Kind != OutcomeReply {
		t.Fatalf("outcomes = %+v, want one reply outcome", outcomes)
	}
	if outcomes[0].RTT < 0 || outcomes[0].RTT > time.Second {
		t.Errorf("RTT = %v, want small non-negative duration (departure_time must be recorded before Construct)", outcomes[0].RTT)
	}
	if e.table.Len() != 0 {
		t.Error("ECONNREFUSED arrival must free its slot")
	}
}

func TestSendProbeNilPacketMeansAlreadyTransmitted(t *testing.T) {
	e := &Engine{table: NewTable(), codec: &stubCodec{packet: nil}, sctpSupport: true}

	p := validParams()
	p.Protocol = ProtoTCP

	if err := e.SendProbe(p); err != nil {
		t.Fatalf("SendProbe() error = %v", err)
	}
	if len(e.DrainOutcomes()) != 0 {
		t.Error("nil packet with no error must not emit an outcome")
	}
	if e.table.Len() != 1 {
		t.Errorf("table.Len() = %d, want 1 (slot stays in flight)", e.table.Len())
	}
}
