package probeengine

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

// Sentinel errors returned by local validation (spec.md §7).
var (
	ErrInvalidArgument  = errors.New("probeengine: invalid argument")
	ErrProbesExhausted  = errors.New("probeengine: no free probe slot")
	ErrNoRoute          = errors.New("probeengine: no route to destination")
	ErrSCTPUnsupported  = errors.New("probeengine: SCTP is not supported on this host")
	ErrUnsupportedCombo = errors.New("probeengine: unsupported protocol/address-family combination")
)

// OutcomeKind enumerates the outcome lines of spec.md §6.
type OutcomeKind int

const (
	OutcomeReply OutcomeKind = iota
	OutcomeNoReply
	OutcomeProbesExhausted
	OutcomeInvalidArgument
	OutcomeNetworkDown
	OutcomeNoRoute
	OutcomePermissionDenied
	OutcomeAddressInUse
	OutcomeUnexpectedError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReply:
		return "reply"
	case OutcomeNoReply:
		return "no-reply"
	case OutcomeProbesExhausted:
		return "probes-exhausted"
	case OutcomeInvalidArgument:
		return "invalid-argument"
	case OutcomeNetworkDown:
		return "network-down"
	case OutcomeNoRoute:
		return "no-route"
	case OutcomePermissionDenied:
		return "permission-denied"
	case OutcomeAddressInUse:
		return "address-in-use"
	case OutcomeUnexpectedError:
		return "unexpected-error"
	default:
		return "unknown"
	}
}

// Outcome is a single terminal probe event, generalizing spec.md §6's
// ASCII outcome line into a struct consumed in-process by the command
// layer (internal/trace via internal/engineloop).
type Outcome struct {
	CommandToken  int
	Kind          OutcomeKind
	Errno         int // populated for OutcomeUnexpectedError
	ICMPType      int // populated for OutcomeReply
	ResponderAddr Sockaddr
	RTT           time.Duration
}

// errnoToOutcome maps an errno to an outcome kind, mirroring
// probe_unix.c's report_packet_error.
func errnoToOutcome(token int, err error) Outcome {
	o := Outcome{CommandToken: token}

	switch {
	case errors.Is(err, unix.EINVAL), errors.Is(err, ErrSCTPUnsupported), errors.Is(err, ErrUnsupportedCombo):
		o.Kind = OutcomeInvalidArgument
	case errors.Is(err, unix.ENETDOWN):
		o.Kind = OutcomeNetworkDown
	case errors.Is(err, unix.ENETUNREACH), errors.Is(err, ErrNoRoute):
		o.Kind = OutcomeNoRoute
	case errors.Is(err, unix.EPERM):
		o.Kind = OutcomePermissionDenied
	case errors.Is(err, unix.EADDRINUSE):
		o.Kind = OutcomeAddressInUse
	default:
		o.Kind = OutcomeUnexpectedError
		var errno unix.Errno
		if errors.As(err, &errno) {
			o.Errno = int(errno)
		}
	}

	return o
}

// isTransientRecvError reports whether err is a transient receive condition that
// should be silently absorbed by a drain loop (spec.md §7).
func isTransientRecvError(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

func isInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}
