//go:build linux

package probeengine

import "testing"

func canOpenRawSocket() bool {
	sockets, err := openSocketSet()
	if err != nil {
		return false
	}
	sockets.close()
	return true
}

func TestOpenSocketSetAndClose(t *testing.T) {
	if !canOpenRawSocket() {
		t.Skip("requires raw-socket privileges (CAP_NET_RAW)")
	}

	sockets, err := openSocketSet()
	if err != nil {
		t.Fatalf("openSocketSet() error = %v", err)
	}
	defer sockets.close()

	if err := sockets.setNonblocking(); err != nil {
		t.Errorf("setNonblocking() error = %v", err)
	}
}

func TestSendRouteSelectsCorrectSocket(t *testing.T) {
	sockets := &socketSet{ip4Send: 1, ip4Recv: 2, icmp6Send: 3, udp6Send: 4, ip6Recv: 5}

	cases := []struct {
		ip       IPVersion
		protocol Protocol
		want     int
	}{
		{IPv4, ProtoICMP, 1},
		{IPv4, ProtoUDP, 1},
		{IPv6, ProtoICMP, 3},
		{IPv6, ProtoUDP, 4},
	}

	for _, c := range cases {
		got, err := sockets.sendRoute(c.ip, c.protocol)
		if err != nil {
			t.Errorf("sendRoute(%v, %v) error = %v", c.ip, c.protocol, err)
			continue
		}
		if got != c.want {
			t.Errorf("sendRoute(%v, %v) = %d, want %d", c.ip, c.protocol, got, c.want)
		}
	}

	if _, err := sockets.sendRoute(IPv4, ProtoTCP); err != ErrUnsupportedCombo {
		t.Errorf("sendRoute(IPv4, TCP) error = %v, want ErrUnsupportedCombo", err)
	}
}
