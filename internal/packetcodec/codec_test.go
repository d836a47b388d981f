package packetcodec

import (
	"testing"

	"golang.org/x/sys/unix"

	"github.com/hoplight/hoplight/internal/probeengine"
)

func TestDecodeDestAddrIPv4Literal(t *testing.T) {
	c := New()
	addr, err := c.DecodeDestAddr(probeengine.Params{
		IPVersion: probeengine.IPv4,
		Address:   "93.184.216.34",
		DestPort:  80,
	})
	if err != nil {
		t.Fatalf("DecodeDestAddr() error = %v", err)
	}
	inet4, ok := addr.(*unix.SockaddrInet4)
	if !ok {
		t.Fatalf("addr type = %T, want *unix.SockaddrInet4", addr)
	}
	if inet4.Addr != [4]byte{93, 184, 216, 34} {
		t.Errorf("Addr = %v, want [93 184 216 34]", inet4.Addr)
	}
	if inet4.Port != 80 {
		t.Errorf("Port = %d, want 80", inet4.Port)
	}
}

func TestDecodeDestAddrIPv6Literal(t *testing.T) {
	c := New()
	addr, err := c.DecodeDestAddr(probeengine.Params{
		IPVersion: probeengine.IPv6,
		Address:   "::1",
		DestPort:  443,
	})
	if err != nil {
		t.Fatalf("DecodeDestAddr() error = %v", err)
	}
	if _, ok := addr.(*unix.SockaddrInet6); !ok {
		t.Fatalf("addr type = %T, want *unix.SockaddrInet6", addr)
	}
}

func TestDecodeDestAddrRejectsGarbage(t *testing.T) {
	c := New()
	if _, err := c.DecodeDestAddr(probeengine.Params{IPVersion: probeengine.IPv4, Address: "not-an-address.invalid.invalid"}); err == nil {
		t.Error("DecodeDestAddr() on unresolvable address: error = nil, want non-nil")
	}
}

func TestConstructUDPIPv4ProducesValidIPHeader(t *testing.T) {
	c := New()
	dest, _ := c.DecodeDestAddr(probeengine.Params{IPVersion: probeengine.IPv4, Address: "127.0.0.1", DestPort: 33434})

	packet, err := c.Construct(fakeView{hostOrder: false}, nil, 33000, dest, probeengine.Params{
		Protocol:    probeengine.ProtoUDP,
		IPVersion:   probeengine.IPv4,
		TTL:         5,
		DestPort:    33434,
		PayloadSize: 12,
	})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	if len(packet) != ipv4HeaderLen+8+12 {
		t.Fatalf("len(packet) = %d, want %d", len(packet), ipv4HeaderLen+8+12)
	}
	if packet[9] != unix.IPPROTO_UDP {
		t.Errorf("IP protocol field = %d, want %d", packet[9], unix.IPPROTO_UDP)
	}
}

func TestConstructICMPIPv4SetsIdentifierToSourcePort(t *testing.T) {
	c := New()
	dest, _ := c.DecodeDestAddr(probeengine.Params{IPVersion: probeengine.IPv4, Address: "127.0.0.1"})

	packet, err := c.Construct(fakeView{hostOrder: false}, nil, 40001, dest, probeengine.Params{
		Protocol:  probeengine.ProtoICMP,
		IPVersion: probeengine.IPv4,
		TTL:       10,
	})
	if err != nil {
		t.Fatalf("Construct() error = %v", err)
	}
	icmp := packet[ipv4HeaderLen:]
	if int(icmp[0]) != icmpv4EchoRequest {
		t.Errorf("ICMP type = %d, want %d", icmp[0], icmpv4EchoRequest)
	}
	id := uint16(icmp[4])<<8 | uint16(icmp[5])
	if id != 40001 {
		t.Errorf("ICMP identifier = %d, want 40001", id)
	}
}
