package probeengine

import "time"

// CalibrationView is the read-only calibration state a Codec needs to
// build wire-correct packets (spec.md §6: "Reads net_state.ip_length_
// host_order and sctp_support").
type CalibrationView interface {
	IPLengthHostOrder() bool
	SCTPSupported() bool
}

// Codec is the "Packet Codec"/"Packet Decoder" external collaborator of
// spec.md §6, implemented in this repository by internal/packetcodec.
//
// Construct builds the outgoing packet bytes for params, optionally
// opening (and attaching to slot via slot.SetStreamFD) a per-probe
// stream socket for TCP/SCTP. Its three possible outcomes mirror
// spec.md §4.4 step 4 exactly:
//   - a negative-size/error return with errors.Is(err, unix.ECONNREFUSED)
//     true signals the FreeBSD-localhost-connect-completed case,
//   - any other error maps through the errno taxonomy,
//   - packet_size >= 0 means the bytes (if any) are ready to transmit.
//
// DecodeIP4/DecodeIP6 are handed a raw received packet plus its sender
// address and arrival timestamp; they are responsible for recognizing
// an ICMP echo reply or an ICMP error quotation, recovering the
// original probe's source port (or identifier/sequence, for ICMP
// probes), looking the owning slot up via eng.LookupSlot, and invoking
// eng.ReceiveProbe on a match. A non-match is silently dropped.
type Codec interface {
	DecodeDestAddr(params Params) (Sockaddr, error)
	Construct(view CalibrationView, slot *Slot, srcPort uint16, dest Sockaddr, params Params) (packet []byte, err error)
	DecodeIP4(eng *Engine, sender Sockaddr, data []byte, ts time.Time)
	DecodeIP6(eng *Engine, sender Sockaddr, data []byte, ts time.Time)
}
