package client

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string][]netip.Addr

func (r staticResolver) LookupNetIP(_ context.Context, _, host string) ([]netip.Addr, error) {
	addrs, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	return addrs, nil
}

func TestDenyList_HostnameMatch(t *testing.T) {
	d, err := NewDenyList([]string{"internal.example.com"}, staticResolver{})
	require.NoError(t, err)

	assert.True(t, d.IsHostDenied(context.Background(), "internal.example.com"))
	assert.True(t, d.IsHostDenied(context.Background(), "INTERNAL.example.COM"))
}

func TestDenyList_IPLiteral(t *testing.T) {
	d, err := NewDenyList([]string{"10.0.0.5"}, staticResolver{})
	require.NoError(t, err)

	assert.True(t, d.IsHostDenied(context.Background(), "10.0.0.5"))
	assert.False(t, d.IsHostDenied(context.Background(), "10.0.0.6"))
}

func TestDenyList_CIDRBlock(t *testing.T) {
	d, err := NewDenyList([]string{"192.168.0.0/16"}, staticResolver{})
	require.NoError(t, err)

	assert.True(t, d.IsHostDenied(context.Background(), "192.168.34.12"))
	assert.False(t, d.IsHostDenied(context.Background(), "192.169.0.1"))
}

func TestDenyList_ResolvedAddressDenied(t *testing.T) {
	resolver := staticResolver{
		"metadata.internal": {netip.MustParseAddr("169.254.169.254")},
		"safe.example.com":  {netip.MustParseAddr("93.184.216.34")},
	}
	d, err := NewDenyList([]string{"169.254.0.0/16"}, resolver)
	require.NoError(t, err)

	assert.True(t, d.IsHostDenied(context.Background(), "metadata.internal"))
	assert.False(t, d.IsHostDenied(context.Background(), "safe.example.com"))
}

func TestDenyList_ResolutionFailureDenies(t *testing.T) {
	d, err := NewDenyList([]string{"10.0.0.0/8"}, staticResolver{})
	require.NoError(t, err)

	assert.True(t, d.IsHostDenied(context.Background(), "does-not-resolve.example"))
}

func TestDenyList_EmptyListAllowsEverything(t *testing.T) {
	d, err := NewDenyList(nil, staticResolver{})
	require.NoError(t, err)

	assert.False(t, d.IsHostDenied(context.Background(), "anything.example.com"))
	assert.False(t, d.IsURLDenied(context.Background(), "https://anything.example.com/hook"))
}

func TestDenyList_InvalidCIDRFailsConstruction(t *testing.T) {
	_, err := NewDenyList([]string{"10.0.0.0/99"}, staticResolver{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "host_deny_list")
}

func TestDenyList_URLVariants(t *testing.T) {
	d, err := NewDenyList([]string{"hooks.internal"}, staticResolver{})
	require.NoError(t, err)

	assert.True(t, d.IsURLDenied(context.Background(), "https://hooks.internal/path"))
	assert.True(t, d.IsURLDenied(context.Background(), "https://hooks.internal:8443/path"))
	assert.True(t, d.IsURLDenied(context.Background(), "not a url"))
	assert.False(t, d.IsURLDenied(context.Background(), "https://hooks.external/path"))
}
