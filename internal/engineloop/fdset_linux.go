//go:build linux

package engineloop

import "golang.org/x/sys/unix"

// fdSet and fdIsSet implement the FD_SET/FD_ISSET macros for
// golang.org/x/sys/unix.FdSet, whose Bits field layout is
// platform-specific (here, Linux's [16]int64).
func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}
