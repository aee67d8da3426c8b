// Package netaddr discovers the address a host advertises to its opponent.
package netaddr

import (
	"errors"
	"fmt"
	"net"

	"github.com/rs/zerolog"
)

// Loopback is the fallback address. A host advertising it can only be
// reached from the same machine.
const Loopback = "127.0.0.1"

// probeTarget is only used to pick a route; no packet is sent.
const probeTarget = "8.8.8.8:80"

// ErrUnsupported is returned when the platform cannot expose a LAN address.
var ErrUnsupported = errors.New("LAN address discovery is not supported in this environment")

// errSkip lets a resolver in a chain pass without an opinion.
var errSkip = errors.New("skip")

// Resolver finds the local LAN address.
type Resolver interface {
	LocalAddress() (string, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func() (string, error)

// LocalAddress implements Resolver.
func (f ResolverFunc) LocalAddress() (string, error) {
	return f()
}

// Default returns the resolver for the current platform.
func Default() Resolver {
	return platformResolver()
}

// LocalAddress asks r for the LAN address and falls back to Loopback with a
// warning when discovery fails. The second result reports whether the
// fallback was used.
func LocalAddress(r Resolver, log zerolog.Logger) (string, bool) {
	if r == nil {
		r = Default()
	}
	addr, err := r.LocalAddress()
	if err == nil && addr != "" {
		return addr, false
	}
	if err == nil {
		err = fmt.Errorf("no address found")
	}
	log.Warn().Err(err).Str("fallback", Loopback).Msg("failed to discover LAN address; opponent must run on this machine")
	return Loopback, true
}

// routeAddress returns the source address the kernel would use to reach the
// internet, which is the LAN address on a typical home network.
func routeAddress() (string, error) {
	conn, err := net.Dial("udp4", probeTarget)
	if err != nil {
		return "", fmt.Errorf("failed to probe route: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close of the probe socket.
			_ = cerr
		}
	}()
	udp, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || udp.IP == nil || udp.IP.IsLoopback() || udp.IP.IsUnspecified() {
		return "", fmt.Errorf("route probe returned no usable address")
	}
	return udp.IP.String(), nil
}

// interfaceAddress scans the interfaces for the first private IPv4 address.
func interfaceAddress() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", fmt.Errorf("failed to list interface addresses: %w", err)
	}
	return pickAddress(addrs)
}

func pickAddress(addrs []net.Addr) (string, error) {
	var fallback string
	for _, a := range addrs {
		ipNet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip := ipNet.IP.To4()
		if ip == nil || ip.IsLoopback() || ip.IsLinkLocalUnicast() {
			continue
		}
		if ip.IsPrivate() {
			return ip.String(), nil
		}
		if fallback == "" {
			fallback = ip.String()
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found")
}

// firstOf tries each resolver in order. ErrUnsupported ends the chain.
func firstOf(resolvers ...ResolverFunc) Resolver {
	return ResolverFunc(func() (string, error) {
		var errs []error
		for _, r := range resolvers {
			addr, err := r()
			switch {
			case err == nil:
				return addr, nil
			case errors.Is(err, errSkip):
				continue
			case errors.Is(err, ErrUnsupported):
				return "", err
			}
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			return "", fmt.Errorf("no resolver produced an address")
		}
		return "", errors.Join(errs...)
	})
}
