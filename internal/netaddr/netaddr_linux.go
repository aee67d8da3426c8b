//go:build linux

package netaddr

import (
	"os"
	"strings"
)

const procVersion = "/proc/version"

func platformResolver() Resolver {
	return firstOf(refuseWSL(procVersion), routeAddress, interfaceAddress)
}

// refuseWSL stops discovery under WSL, whose NAT address is not reachable
// from the LAN.
func refuseWSL(path string) ResolverFunc {
	return func() (string, error) {
		data, err := os.ReadFile(path)
		if err == nil && isWSL(string(data)) {
			return "", ErrUnsupported
		}
		return "", errSkip
	}
}

func isWSL(version string) bool {
	v := strings.ToLower(version)
	return strings.Contains(v, "microsoft") || strings.Contains(v, "wsl")
}
