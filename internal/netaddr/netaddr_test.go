package netaddr

import (
	"errors"
	"net"
	"testing"

	"github.com/rs/zerolog"
)

func ipNet(s string) *net.IPNet {
	ip, n, err := net.ParseCIDR(s)
	if err != nil {
		panic(err)
	}
	n.IP = ip
	return n
}

func TestPickAddressPrefersPrivate(t *testing.T) {
	addrs := []net.Addr{
		ipNet("127.0.0.1/8"),
		ipNet("169.254.10.1/16"),
		ipNet("203.0.113.7/24"),
		ipNet("192.168.1.20/24"),
		ipNet("fe80::1/64"),
	}
	got, err := pickAddress(addrs)
	if err != nil {
		t.Fatalf("pickAddress: %v", err)
	}
	if got != "192.168.1.20" {
		t.Fatalf("expected private address, got %q", got)
	}
}

func TestPickAddressFallsBackToPublic(t *testing.T) {
	got, err := pickAddress([]net.Addr{ipNet("127.0.0.1/8"), ipNet("203.0.113.7/24")})
	if err != nil {
		t.Fatalf("pickAddress: %v", err)
	}
	if got != "203.0.113.7" {
		t.Fatalf("expected public address, got %q", got)
	}
}

func TestPickAddressNone(t *testing.T) {
	if _, err := pickAddress([]net.Addr{ipNet("127.0.0.1/8")}); err == nil {
		t.Fatalf("expected error with only loopback")
	}
}

func TestLocalAddressFallsBackToLoopback(t *testing.T) {
	failing := ResolverFunc(func() (string, error) { return "", errors.New("no network") })
	addr, fallback := LocalAddress(failing, zerolog.Nop())
	if addr != Loopback || !fallback {
		t.Fatalf("expected loopback fallback, got %q (%v)", addr, fallback)
	}

	empty := ResolverFunc(func() (string, error) { return "", nil })
	if addr, fallback := LocalAddress(empty, zerolog.Nop()); addr != Loopback || !fallback {
		t.Fatalf("expected loopback fallback for empty address, got %q (%v)", addr, fallback)
	}
}

func TestLocalAddressUsesResolver(t *testing.T) {
	ok := ResolverFunc(func() (string, error) { return "10.0.0.4", nil })
	addr, fallback := LocalAddress(ok, zerolog.Nop())
	if addr != "10.0.0.4" || fallback {
		t.Fatalf("expected resolver address, got %q (%v)", addr, fallback)
	}
}

func TestFirstOf(t *testing.T) {
	calls := 0
	fail := func() (string, error) { calls++; return "", errors.New("nope") }
	skip := func() (string, error) { calls++; return "", errSkip }
	hit := func() (string, error) { calls++; return "10.1.1.1", nil }

	addr, err := firstOf(skip, fail, hit).LocalAddress()
	if err != nil || addr != "10.1.1.1" {
		t.Fatalf("expected third resolver to win, got %q, %v", addr, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	unsupported := func() (string, error) { return "", ErrUnsupported }
	calls = 0
	if _, err := firstOf(unsupported, hit).LocalAddress(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected unsupported to stop the chain, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no further resolvers, got %d calls", calls)
	}

	if _, err := firstOf(skip).LocalAddress(); err == nil {
		t.Fatalf("expected error when every resolver skips")
	}
}
