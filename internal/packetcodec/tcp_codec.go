package packetcodec

import (
	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

// constructTCP opens a non-blocking TCP stream socket, sets its TTL
// (or hop limit) to the probe's TTL, binds it to the slot's source
// port, attaches it to slot, and starts a
// non-blocking connect. A synchronously-completed connect whose errno
// is ECONNREFUSED is reported to the caller so SendProbe can treat it
// as an immediate arrival (spec.md §4.4 step 4, §7): the destination
// host answered with a RST, which only happens once the SYN reached
// it.
//
// Construct returns a nil packet in all non-error cases: the kernel
// transmits the SYN as part of connect(), there is nothing left to
// hand the raw-socket send path.
func constructTCP(slot *probeengine.Slot, dest probeengine.Sockaddr, params probeengine.Params) ([]byte, error) {
	return openStreamProbe(slot, dest, params, unix.SOCK_STREAM, 0)
}

func openStreamProbe(slot *probeengine.Slot, dest probeengine.Sockaddr, params probeengine.Params, sockType, proto int) ([]byte, error) {
	family := unix.AF_INET
	if params.IPVersion == probeengine.IPv6 {
		family = unix.AF_INET6
	}

	fd, err := unix.Socket(family, sockType, proto)
	if err != nil {
		return nil, err
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	if err := setTTL(fd, params.IPVersion, params.TTL); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	// Bind to the slot's source port so that ICMP errors quoting this
	// probe can be correlated back to the slot.
	var local unix.Sockaddr = &unix.SockaddrInet4{Port: int(slot.SourcePort())}
	if params.IPVersion == probeengine.IPv6 {
		local = &unix.SockaddrInet6{Port: int(slot.SourcePort())}
	}
	if err := unix.Bind(fd, local); err != nil {
		_ = unix.Close(fd)
		return nil, err
	}

	slot.SetStreamFD(fd)

	err = unix.Connect(fd, dest)
	if err == nil || err == unix.EINPROGRESS {
		return nil, nil
	}

	// A synchronous refusal (common on loopback) is handed back as-is;
	// the caller (probeengine.SendProbe) special-cases ECONNREFUSED.
	return nil, err
}

func setTTL(fd int, ipVersion probeengine.IPVersion, ttl int) error {
	if ipVersion == probeengine.IPv6 {
		return unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ttl)
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_TTL, ttl)
}
