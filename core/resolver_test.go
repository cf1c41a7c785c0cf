package core

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var mixedAddrs = []net.IPAddr{
	{IP: net.ParseIP("2001:db8::1")},
	{IP: net.ParseIP("192.0.2.1")},
	{IP: net.ParseIP("fe80::1"), Zone: "eth0"},
	{IP: net.ParseIP("192.0.2.2")},
}

// TestSelectAddressAny verifies that the first address wins when any family is accepted
func TestSelectAddressAny(t *testing.T) {
	addr, ok := selectAddress(mixedAddrs, FamilyAny)
	require.True(t, ok)
	assert.Equal(t, "2001:db8::1", addr.IP.String())
	assert.Equal(t, FamilyIPv6, addr.Family)
}

// TestSelectAddressIPv4 verifies that the first IPv4 address is returned in its 4 byte form
func TestSelectAddressIPv4(t *testing.T) {
	addr, ok := selectAddress(mixedAddrs, FamilyIPv4)
	require.True(t, ok)
	assert.Equal(t, "192.0.2.1", addr.IP.String())
	assert.Len(t, addr.IP, net.IPv4len)
	assert.Equal(t, FamilyIPv4, addr.Family)
}

// TestSelectAddressIPv6 verifies that the first IPv6 address is returned
func TestSelectAddressIPv6(t *testing.T) {
	addr, ok := selectAddress(mixedAddrs[1:], FamilyIPv6)
	require.True(t, ok)
	assert.Equal(t, "fe80::1%eth0", addr.String())
	assert.Equal(t, FamilyIPv6, addr.Family)
}

// TestSelectAddressNone verifies that no address is selected when none is compatible
func TestSelectAddressNone(t *testing.T) {
	_, ok := selectAddress(mixedAddrs[1:2], FamilyIPv6)
	assert.False(t, ok)

	_, ok = selectAddress(nil, FamilyAny)
	assert.False(t, ok)
}

// TestNetResolverLiteral verifies that address literals resolve without DNS
func TestNetResolverLiteral(t *testing.T) {
	r := &NetResolver{}

	addr, err := r.Resolve(context.Background(), "127.0.0.1", FamilyAny)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", addr.String())
	assert.Equal(t, FamilyIPv4, addr.Family)

	addr, err = r.Resolve(context.Background(), "::1", FamilyIPv6)
	require.NoError(t, err)
	assert.Equal(t, "::1", addr.String())
	assert.Equal(t, FamilyIPv6, addr.Family)
}

// TestNetResolverIncompatibleFamily verifies that a missing family is a resolution failure
func TestNetResolverIncompatibleFamily(t *testing.T) {
	r := &NetResolver{}

	_, err := r.Resolve(context.Background(), "127.0.0.1", FamilyIPv6)
	assert.True(t, errors.Is(err, ErrResolutionFailed))
}

// TestNetResolverCancelled verifies that a cancelled lookup is a resolution failure
func TestNetResolverCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&NetResolver{}).Resolve(ctx, "host.invalid", FamilyAny)
	assert.True(t, errors.Is(err, ErrResolutionFailed))
}

// TestParseAddressFamily verifies the accepted spellings
func TestParseAddressFamily(t *testing.T) {
	for in, want := range map[string]AddressFamily{
		"": FamilyAny, "any": FamilyAny,
		"4": FamilyIPv4, "ipv4": FamilyIPv4, "ip4": FamilyIPv4,
		"6": FamilyIPv6, "ipv6": FamilyIPv6, "ip6": FamilyIPv6,
	} {
		got, err := ParseAddressFamily(in)
		assert.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseAddressFamily("ipx")
	assert.Error(t, err)
}
