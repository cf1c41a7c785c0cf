package core

import (
	"net"
	"time"
)

func isIPv4(ip net.IP) bool {
	return ip.To4() != nil
}

// familyOf returns the address family of ip.
func familyOf(ip net.IP) AddressFamily {
	if isIPv4(ip) {
		return FamilyIPv4
	}
	return FamilyIPv6
}

// stopTimer stops a timer that may be nil.
func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}
