//go:build linux

package probeengine

import (
	"encoding/binary"

	"golang.org/x/sys/unix"
)

// checkLengthOrder detects whether this kernel expects the IPv4 header's
// total-length field in host or network byte order when IP_HDRINCL is
// set, by sending a bare 20-byte IPv4 header (protocol UDP, TTL 1) to
// 127.0.0.1, first with the length in network order and then in host
// order, and keeping the first order whose send succeeds (ported from
// probe_unix.c's check_length_order). If neither send succeeds,
// calibration fails with a FatalError.
//
// Some BSD-derived raw-socket stacks silently reinterpret ip_len in
// host order; Linux expects network order. Probing is more reliable
// than hardcoding by GOOS, since this has changed across kernel
// versions.
func (e *Engine) checkLengthOrder() error {
	const totalLen = 20

	probe := func(hostOrder bool) error {
		hdr := make([]byte, totalLen)
		hdr[0] = 0x45 // version 4, IHL 5
		if hostOrder {
			binary.LittleEndian.PutUint16(hdr[2:4], uint16(totalLen))
		} else {
			binary.BigEndian.PutUint16(hdr[2:4], uint16(totalLen))
		}
		hdr[8] = 1 // ttl
		hdr[9] = unix.IPPROTO_UDP

		dest := &unix.SockaddrInet4{Port: 0, Addr: [4]byte{127, 0, 0, 1}}
		return unix.Sendto(e.sockets.ip4Send, hdr, 0, dest)
	}

	if probe(false) == nil {
		e.ipLengthHostOrder = false
		return nil
	}
	err := probe(true)
	if err == nil {
		e.ipLengthHostOrder = true
		return nil
	}

	// Neither byte order produced a successful send.
	return fatal("detect IP length byte order", err)
}

// checkSCTPSupport probes for kernel SCTP support by attempting to open
// an SCTP socket (ported from probe_unix.c's check_sctp_support). A
// missing SCTP module is common and is not an error condition; it just
// disables the protocol (spec.md §4.2 is_protocol_supported).
func (e *Engine) checkSCTPSupport() {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, unix.IPPROTO_SCTP)
	if err != nil {
		e.sctpSupport = false
		return
	}
	_ = unix.Close(fd)
	e.sctpSupport = true
}
