//go:build !linux

package netaddr

func platformResolver() Resolver {
	return firstOf(routeAddress, interfaceAddress)
}
