package core

import (
	"context"
	"fmt"
	"net"
)

// AddressFamily restricts which addresses of a host are acceptable.
type AddressFamily int

const (
	// FamilyAny accepts the first address found, IPv4 or IPv6.
	FamilyAny AddressFamily = iota
	// FamilyIPv4 accepts only IPv4 addresses.
	FamilyIPv4
	// FamilyIPv6 accepts only IPv6 addresses.
	FamilyIPv6
)

func (f AddressFamily) String() string {
	switch f {
	case FamilyAny:
		return "any"
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	default:
		return fmt.Sprintf("AddressFamily(%d)", int(f))
	}
}

// ParseAddressFamily parses the names accepted on the command line.
func ParseAddressFamily(s string) (AddressFamily, error) {
	switch s {
	case "", "any":
		return FamilyAny, nil
	case "4", "ipv4", "ip4":
		return FamilyIPv4, nil
	case "6", "ipv6", "ip6":
		return FamilyIPv6, nil
	default:
		return FamilyAny, fmt.Errorf("unknown address family %q", s)
	}
}

// accepts returns whether ip is compatible with the family.
func (f AddressFamily) accepts(ip net.IP) bool {
	switch f {
	case FamilyIPv4:
		return isIPv4(ip)
	case FamilyIPv6:
		return !isIPv4(ip)
	default:
		return true
	}
}

// ResolvedAddress is the concrete address a session pings.
type ResolvedAddress struct {
	// IP is the address of the target.
	IP net.IP

	// Zone is the IPv6 scoped addressing zone, if any.
	Zone string

	// Family is FamilyIPv4 or FamilyIPv6, never FamilyAny.
	Family AddressFamily
}

func (a *ResolvedAddress) String() string {
	return (&net.IPAddr{IP: a.IP, Zone: a.Zone}).String()
}

// Resolver turns a host name into a single address of the preferred family.
type Resolver interface {
	Resolve(ctx context.Context, host string, family AddressFamily) (*ResolvedAddress, error)
}

// NetResolver resolves names with a net.Resolver. The zero value uses net.DefaultResolver.
type NetResolver struct {
	Resolver *net.Resolver
}

// Resolve looks up host and returns its first address compatible with family.
// Cancelling ctx abandons the lookup.
func (r *NetResolver) Resolve(ctx context.Context, host string, family AddressFamily) (*ResolvedAddress, error) {
	resolver := r.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup of %s: %v", ErrResolutionFailed, host, err)
	}

	addr, ok := selectAddress(addrs, family)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no %s address among %d", ErrResolutionFailed, host, family, len(addrs))
	}

	return addr, nil
}

// selectAddress picks the first address of addrs that family accepts.
func selectAddress(addrs []net.IPAddr, family AddressFamily) (*ResolvedAddress, bool) {
	for _, a := range addrs {
		if !family.accepts(a.IP) {
			continue
		}

		ip := a.IP
		if v4 := ip.To4(); v4 != nil {
			ip = v4
		}

		return &ResolvedAddress{IP: ip, Zone: a.Zone, Family: familyOf(ip)}, true
	}

	return nil, false
}
