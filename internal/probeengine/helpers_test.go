//go:build linux

package probeengine

import (
	"testing"

	"golang.org/x/sys/unix"
)

// loopbackSocketPair returns a connected TCP socket pair over loopback,
// used to exercise the SO_ERROR-polling path with a real, already-
// succeeded connection instead of a raw socket.
func loopbackSocketPair(t *testing.T) (client, server int, ok bool) {
	t.Helper()

	listenFD, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, 0, false
	}
	defer unix.Close(listenFD)

	addr := &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}}
	if err := unix.Bind(listenFD, addr); err != nil {
		return 0, 0, false
	}
	if err := unix.Listen(listenFD, 1); err != nil {
		return 0, 0, false
	}

	bound, err := unix.Getsockname(listenFD)
	if err != nil {
		return 0, 0, false
	}
	boundAddr, ok := bound.(*unix.SockaddrInet4)
	if !ok {
		return 0, 0, false
	}

	clientFD, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return 0, 0, false
	}
	if err := unix.Connect(clientFD, boundAddr); err != nil {
		unix.Close(clientFD)
		return 0, 0, false
	}

	serverFD, _, err := unix.Accept(listenFD)
	if err != nil {
		unix.Close(clientFD)
		return 0, 0, false
	}

	if err := unix.SetNonblock(clientFD, true); err != nil {
		unix.Close(clientFD)
		unix.Close(serverFD)
		return 0, 0, false
	}

	return clientFD, serverFD, true
}

func closeQuietly(fd int) {
	_ = unix.Close(fd)
}
