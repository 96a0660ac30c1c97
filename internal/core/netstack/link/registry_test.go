package link

import (
	"errors"
	"net"
	"net/netip"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

func testLinks() []types.Link {
	return []types.Link{
		{
			Index: 2, Name: "eth0", Type: types.LinkTypeEther,
			Flags:        net.FlagUp,
			HardwareAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
			Addrs:        []netip.Prefix{netip.MustParsePrefix("10.0.0.1/24")},
		},
		{
			Index: 1, Name: "lo", Type: types.LinkTypeLoopback,
			Flags:        net.FlagUp | net.FlagLoopback,
			HardwareAddr: make(net.HardwareAddr, 6),
			Addrs:        []netip.Prefix{netip.MustParsePrefix("127.0.0.1/8")},
		},
	}
}

func TestStaticRegistry_Lookup(t *testing.T) {
	r := NewStaticRegistry(testLinks()...)

	l, err := r.LinkByIndex(2)
	require.NoError(t, err)
	assert.Equal(t, "eth0", l.Name)

	_, err = r.LinkByIndex(9)
	assert.ErrorIs(t, err, types.ErrDeviceUnavailable)

	l, err = r.LinkByName("lo")
	require.NoError(t, err)
	assert.Equal(t, 1, l.Index)

	_, err = r.LinkByName("ib0")
	assert.ErrorIs(t, err, types.ErrDeviceUnavailable)

	l, err = r.LinkByAddr(netip.MustParseAddr("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, 2, l.Index)

	_, err = r.LinkByAddr(netip.MustParseAddr("10.0.0.2"))
	assert.ErrorIs(t, err, types.ErrAddrNotAvailable)

	lo, ok := r.Loopback()
	require.True(t, ok)
	assert.Equal(t, "lo", lo.Name)
}

func TestRegistry_LinksSorted(t *testing.T) {
	r := NewStaticRegistry(testLinks()...)
	links := r.Links()
	require.Len(t, links, 2)
	assert.Equal(t, 1, links[0].Index)
	assert.Equal(t, 2, links[1].Index)
}

func TestRegistry_Refresh(t *testing.T) {
	var mu sync.Mutex
	links := testLinks()
	r := NewRegistryWithSource(func() ([]types.Link, error) {
		mu.Lock()
		defer mu.Unlock()
		return append([]types.Link(nil), links...), nil
	})

	changed, err := r.Refresh()
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = r.Refresh()
	require.NoError(t, err)
	assert.False(t, changed)

	// 地址变化
	mu.Lock()
	links[0].Addrs = []netip.Prefix{netip.MustParsePrefix("10.0.0.9/24")}
	mu.Unlock()

	changed, err = r.Refresh()
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = r.LinkByAddr(netip.MustParseAddr("10.0.0.9"))
	assert.NoError(t, err)
}

func TestRegistry_RefreshError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistryWithSource(func() ([]types.Link, error) { return nil, boom })

	changed, err := r.Refresh()
	assert.ErrorIs(t, err, boom)
	assert.False(t, changed)
}

func TestParseVlanID(t *testing.T) {
	tests := []struct {
		name string
		want uint16
	}{
		{"eth0", 0},
		{"eth0.100", 100},
		{"bond0.4094", 4094},
		{"eth0.4095", 0},
		{"eth0.0", 0},
		{"eth0.", 0},
		{".100", 0},
		{"eth0.abc", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseVlanID(tt.name))
		})
	}
}

func TestFromInterface_Loopback(t *testing.T) {
	l := fromInterface(net.Interface{Index: 1, Name: "lo-test", Flags: net.FlagUp | net.FlagLoopback})
	assert.True(t, l.IsLoopback())
	assert.Equal(t, make(net.HardwareAddr, 6), l.HardwareAddr)
}

func TestParseHW(t *testing.T) {
	hw, err := parseHW("00:ff:ff:ff:ff:12:40:1b")
	require.NoError(t, err)
	assert.Len(t, hw, 8)

	_, err = parseHW("")
	assert.Error(t, err)
	_, err = parseHW("zz:00")
	assert.Error(t, err)
}

func TestHostLinks(t *testing.T) {
	links, err := HostLinks()
	if err != nil {
		t.Skipf("net.Interfaces unavailable: %v", err)
	}
	for _, l := range links {
		assert.NotZero(t, l.Index)
		assert.NotEmpty(t, l.Name)
	}
}
