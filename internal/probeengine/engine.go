//go:build linux

package probeengine

// Engine is the process-wide net state of spec.md §3 ("Net state"):
// the probe table, socket set, port cursor (owned by Table), and the
// two calibration flags, constructed in the privileged/unprivileged
// two-phase split spec.md §9 calls for.
type Engine struct {
	table   *Table
	sockets *socketSet
	codec   Codec

	ipLengthHostOrder bool
	sctpSupport       bool

	outcomes []Outcome
}

// NewPrivileged performs phase one of initialization: opening the raw
// sockets (spec.md §3 "initialised in two phases — privileged"). Call
// Calibrate afterward, once privileges have been dropped.
func NewPrivileged(codec Codec) (*Engine, error) {
	sockets, err := openSocketSet()
	if err != nil {
		return nil, err
	}

	return &Engine{
		table:   NewTable(),
		sockets: sockets,
		codec:   codec,
	}, nil
}

// Calibrate performs phase two: setting non-blocking mode and running
// the byte-order and SCTP-support probes (spec.md §3 "unprivileged").
func (e *Engine) Calibrate() error {
	if err := e.sockets.setNonblocking(); err != nil {
		return err
	}
	if err := e.checkLengthOrder(); err != nil {
		return err
	}
	e.checkSCTPSupport()
	return nil
}

// Close releases the long-lived sockets. Per-probe stream sockets are
// released individually as their slots are freed.
func (e *Engine) Close() {
	e.sockets.close()
}

// IPLengthHostOrder implements CalibrationView.
func (e *Engine) IPLengthHostOrder() bool { return e.ipLengthHostOrder }

// SCTPSupported implements CalibrationView, and spec.md §4.2's
// is_protocol_supported for SCTP specifically (ICMP/UDP/TCP are
// unconditionally supported and are not gated through this method).
func (e *Engine) SCTPSupported() bool { return e.sctpSupport }

// IsProtocolSupported mirrors spec.md §4.2's is_protocol_supported.
func (e *Engine) IsProtocolSupported(p Protocol) bool {
	switch p {
	case ProtoICMP, ProtoUDP, ProtoTCP:
		return true
	case ProtoSCTP:
		return e.sctpSupport
	default:
		return false
	}
}

// LookupSlot finds the used slot holding the given source port. Called
// by a Codec's DecodeIP4/DecodeIP6 to correlate an incoming packet.
func (e *Engine) LookupSlot(port uint16) (*Slot, bool) {
	return e.table.FindByPort(port)
}

// Table exposes the probe table for the timeout scheduler and event
// loop (internal/engineloop); the engine itself is the only package
// that mutates it.
func (e *Engine) Table() *Table { return e.table }

// emit appends a terminal outcome to the pending queue, draining at the
// caller's convenience via DrainOutcomes.
func (e *Engine) emit(o Outcome) {
	e.outcomes = append(e.outcomes, o)
}

// DrainOutcomes returns and clears all outcomes queued since the last
// drain. This is the Go-idiomatic stand-in for spec.md §6's
// line-oriented command-output stream: outcomes are still emitted
// exactly once per terminated probe, in the order their terminal event
// was observed (spec.md §5), just handed back as values instead of
// printed.
func (e *Engine) DrainOutcomes() []Outcome {
	out := e.outcomes
	e.outcomes = nil
	return out
}
