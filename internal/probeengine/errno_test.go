package probeengine

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestErrnoToOutcomeMapsKnownErrnos(t *testing.T) {
	cases := []struct {
		err  error
		want OutcomeKind
	}{
		{unix.EINVAL, OutcomeInvalidArgument},
		{unix.ENETDOWN, OutcomeNetworkDown},
		{unix.ENETUNREACH, OutcomeNoRoute},
		{unix.EPERM, OutcomePermissionDenied},
		{unix.EADDRINUSE, OutcomeAddressInUse},
		{unix.ECONNRESET, OutcomeUnexpectedError},
	}

	for _, tc := range cases {
		got := errnoToOutcome(7, tc.err)
		if got.Kind != tc.want {
			t.Errorf("errnoToOutcome(%v).Kind = %v, want %v", tc.err, got.Kind, tc.want)
		}
		if got.CommandToken != 7 {
			t.Errorf("CommandToken = %d, want 7", got.CommandToken)
		}
	}
}

func TestErrnoToOutcomeMapsSentinelErrors(t *testing.T) {
	cases := []struct {
		err  error
		want OutcomeKind
	}{
		{ErrNoRoute, OutcomeNoRoute},
		{ErrSCTPUnsupported, OutcomeInvalidArgument},
		{ErrUnsupportedCombo, OutcomeInvalidArgument},
	}

	for _, tc := range cases {
		if got := errnoToOutcome(1, tc.err); got.Kind != tc.want {
			t.Errorf("errnoToOutcome(%v).Kind = %v, want %v", tc.err, got.Kind, tc.want)
		}
	}
}

func TestErrnoToOutcomeCarriesRawErrnoForUnexpected(t *testing.T) {
	got := errnoToOutcome(1, unix.ECONNRESET)
	if got.Kind != OutcomeUnexpectedError {
		t.Fatalf("Kind = %v, want OutcomeUnexpectedError", got.Kind)
	}
	if got.Errno != int(unix.ECONNRESET) {
		t.Errorf("Errno = %d, want %d", got.Errno, int(unix.ECONNRESET))
	}
}

func TestOutcomeKindStringMatchesSpecKeywords(t *testing.T) {
	cases := map[OutcomeKind]string{
		OutcomeReply:            "reply",
		OutcomeNoReply:          "no-reply",
		OutcomeProbesExhausted:  "probes-exhausted",
		OutcomeInvalidArgument:  "invalid-argument",
		OutcomeNetworkDown:      "network-down",
		OutcomeNoRoute:          "no-route",
		OutcomePermissionDenied: "permission-denied",
		OutcomeAddressInUse:     "address-in-use",
		OutcomeUnexpectedError:  "unexpected-error",
	}

	for kind, want := range cases {
		if got := kind.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", kind, got, want)
		}
	}
}

func TestParamsValidate(t *testing.T) {
	valid := Params{Protocol: ProtoUDP, IPVersion: IPv4, TTL: 1, Address: "10.0.0.1", DestPort: 33434}
	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() on valid params error = %v", err)
	}

	cases := []Params{
		{Protocol: ProtoUDP, IPVersion: IPv4, TTL: 0, Address: "10.0.0.1", DestPort: 1},
		{Protocol: ProtoUDP, IPVersion: IPv4, TTL: 256, Address: "10.0.0.1", DestPort: 1},
		{Protocol: ProtoUDP, IPVersion: 99, TTL: 1, Address: "10.0.0.1", DestPort: 1},
		{Protocol: ProtoUDP, IPVersion: IPv4, TTL: 1, Address: "10.0.0.1", DestPort: 0},
		{Protocol: ProtoICMP, IPVersion: IPv4, TTL: 1, Address: ""},
	}
	for i, c := range cases {
		if err := c.Validate(); err != ErrInvalidArgument {
			t.Errorf("case %d: Validate() error = %v, want ErrInvalidArgument", i, err)
		}
	}
}
