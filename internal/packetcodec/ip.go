package packetcodec

import (
	"encoding/binary"

	"github.com/hoplight/hoplight/internal/probeengine"
)

const ipv4HeaderLen = 20

// buildIPv4Header constructs a 20-byte IPv4 header for transmission on
// the engine's IP_HDRINCL raw send socket. The total-length field's
// byte order is decided by the engine's calibration result
// (probeengine.CalibrationView.IPLengthHostOrder), mirroring
// probe_unix.c's use of net_state.ip_length_host_order.
//
// Source address is left as 0.0.0.0; Linux fills in the outgoing
// interface's address for a zero source even under IP_HDRINCL.
func buildIPv4Header(view probeengine.CalibrationView, ttl int, protocol byte, dst [4]byte, payloadLen int) []byte {
	hdr := make([]byte, ipv4HeaderLen)

	hdr[0] = 0x45 // version 4, IHL 5 (no options)
	hdr[1] = 0    // TOS

	totalLen := uint16(ipv4HeaderLen + payloadLen)
	if view.IPLengthHostOrder() {
		binary.LittleEndian.PutUint16(hdr[2:4], totalLen)
	} else {
		binary.BigEndian.PutUint16(hdr[2:4], totalLen)
	}

	binary.BigEndian.PutUint16(hdr[4:6], 0) // identification
	binary.BigEndian.PutUint16(hdr[6:8], 0) // flags/fragment offset

	hdr[8] = byte(ttl)
	hdr[9] = protocol

	// checksum at 10:12, computed last
	hdr[10] = 0
	hdr[11] = 0

	// source left as 0.0.0.0 (hdr[12:16] already zero)
	copy(hdr[16:20], dst[:])

	binary.BigEndian.PutUint16(hdr[10:12], checksum(hdr))

	return hdr
}
