//go:build linux

package engineloop

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestFdSetAndIsSet(t *testing.T) {
	var set unix.FdSet

	fdSet(&set, 3)
	fdSet(&set, 70)

	if !fdIsSet(&set, 3) {
		t.Error("fd 3 not reported set")
	}
	if !fdIsSet(&set, 70) {
		t.Error("fd 70 not reported set")
	}
	if fdIsSet(&set, 4) {
		t.Error("fd 4 incorrectly reported set")
	}
}
