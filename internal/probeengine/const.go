// Package probeengine implements the probe table, socket set, platform
// calibration, send/receive paths, and timeout scheduler described as
// the probe engine core of a traceroute/mtr-style path tracer.
package probeengine

// Tunables. Mirrors the compile-time constants of mtr's packet/probe.h.
const (
	// PacketBufferSize is the scratch buffer size used to build and
	// receive raw packets.
	PacketBufferSize = 4096

	// MaxProbes is the fixed capacity of the probe table.
	MaxProbes = 1024

	// MinPort and MaxPort bound the cyclic source-port allocator.
	MinPort uint16 = 33000
	MaxPort uint16 = 65535

	// ICMPTypeEchoReply is the ICMPv4 echo-reply type value (RFC 792),
	// used to report the synthetic arrival of a connect()-completed
	// stream probe (spec.md §4.4 step 4's ECONNREFUSED special case)
	// without depending on a decoder package for a single constant.
	ICMPTypeEchoReply = 0
)
