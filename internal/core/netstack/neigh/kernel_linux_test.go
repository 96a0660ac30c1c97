//go:build linux

package neigh

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

func TestFromNeigh(t *testing.T) {
	e, ok := fromNeigh(netlink.Neigh{
		LinkIndex:    2,
		Family:       unix.AF_INET,
		State:        unix.NUD_REACHABLE,
		IP:           net.IPv4(10, 0, 0, 2),
		HardwareAddr: peerMAC,
	})
	require.True(t, ok)
	assert.Equal(t, 2, e.IfIndex)
	assert.Equal(t, peerIP, e.IP, "v4-mapped form is unmapped")
	assert.Equal(t, peerMAC, e.HardwareAddr)
	assert.Equal(t, types.NeighborReachable, e.State)

	e, ok = fromNeigh(netlink.Neigh{
		LinkIndex: 3,
		Family:    unix.AF_INET6,
		State:     unix.NUD_INCOMPLETE,
		IP:        net.ParseIP("fd00::2"),
	})
	require.True(t, ok)
	assert.True(t, e.IP.Is6())
	assert.Empty(t, e.HardwareAddr)
	assert.False(t, e.State.Valid())
}

func TestFromNeigh_NoDestination(t *testing.T) {
	_, ok := fromNeigh(netlink.Neigh{LinkIndex: 2, State: unix.NUD_REACHABLE})
	assert.False(t, ok)
}

func TestNudState(t *testing.T) {
	assert.Equal(t, types.NeighborPermanent, nudState(unix.NUD_PERMANENT))
	assert.Equal(t, types.NeighborPermanent, nudState(unix.NUD_NOARP))
	assert.Equal(t, types.NeighborReachable, nudState(unix.NUD_REACHABLE))
	assert.Equal(t, types.NeighborStale, nudState(unix.NUD_STALE))
	assert.Equal(t, types.NeighborStale, nudState(unix.NUD_PROBE))
	assert.Equal(t, types.NeighborIncomplete, nudState(unix.NUD_INCOMPLETE))
	assert.Equal(t, types.NeighborIncomplete, nudState(unix.NUD_FAILED))
}
