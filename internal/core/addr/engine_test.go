package addr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

func TestEngine_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("DirectNeighbor", func(t *testing.T) {
		f := newFakeNet()
		f.setNeighbor("10.0.0.2", macPeer)
		e := NewEngine(f, f, f)

		src, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("10.0.0.2"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, netipAddr("10.0.0.1"), src.IP)
		assert.Equal(t, macPeer, addr.DstDevAddr)
		assert.Equal(t, macEth0, addr.SrcDevAddr)
		assert.Equal(t, types.LinkTypeEther, addr.DevType)
		assert.Equal(t, types.NetworkIB, addr.Network, "no gateway keeps the default network type")
		assert.Equal(t, 2, addr.BoundIfIndex)
	})

	t.Run("NeighborMissTriggersProbe", func(t *testing.T) {
		f := newFakeNet()
		e := NewEngine(f, f, f)

		_, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("10.0.0.9"), types.DevAddr{}, true)
		assert.ErrorIs(t, err, types.ErrNoData)
		assert.True(t, IsRetry(err))
		assert.Equal(t, 1, f.probeCount("10.0.0.9"))
		assert.Equal(t, 2, addr.BoundIfIndex, "route part filled even when the neighbor is unknown")
	})

	t.Run("GatewayUsesNextHop", func(t *testing.T) {
		f := newFakeNet()
		f.setNeighbor("10.0.0.254", macGW)
		e := NewEngine(f, f, f)

		_, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("172.16.1.1"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, macGW, addr.DstDevAddr)
		assert.Equal(t, types.NetworkIPv4, addr.Network)
		assert.Equal(t, 63, addr.HopLimit)
		assert.Equal(t, 0, f.probeCount("172.16.1.1"))
	})

	t.Run("IPv6", func(t *testing.T) {
		f := newFakeNet()
		f.setNeighbor("fd00::2", macPeer)
		e := NewEngine(f, f, f)

		src, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv6), sockAddr("fd00::2"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, types.FamilyIPv6, src.Family)
		assert.Equal(t, netipAddr("fd00::1"), src.IP)
		assert.Equal(t, macPeer, addr.DstDevAddr)
	})

	t.Run("NoARPLink", func(t *testing.T) {
		f := newFakeNet()
		e := NewEngine(f, f, f)

		_, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("10.2.3.4"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, macIB, addr.SrcDevAddr)
		assert.Nil(t, addr.DstDevAddr)
		assert.Equal(t, types.LinkTypeInfiniband, addr.DevType)
		assert.Equal(t, 0, f.probeCount("10.2.3.4"))
	})

	t.Run("Loopback", func(t *testing.T) {
		f := newFakeNet()
		e := NewEngine(f, f, f)

		src, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("127.0.0.1"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, netipAddr("127.0.0.1"), src.IP)
		assert.Equal(t, macLo, addr.SrcDevAddr)
		assert.Equal(t, addr.SrcDevAddr, addr.DstDevAddr)
		assert.Equal(t, 1, addr.BoundIfIndex)
	})

	t.Run("CallerSourceKept", func(t *testing.T) {
		f := newFakeNet()
		f.setNeighbor("10.0.0.2", macPeer)
		e := NewEngine(f, f, f)

		in := sockAddr("10.0.0.1")
		in.Port = 4791
		src, _, err := e.Resolve(ctx, in, sockAddr("10.0.0.2"), types.DevAddr{}, true)
		require.NoError(t, err)
		assert.Equal(t, in, src)
	})

	t.Run("HintDoesNotLeak", func(t *testing.T) {
		f := newFakeNet()
		f.setNeighbor("10.0.0.2", macPeer)
		e := NewEngine(f, f, f)

		hint := types.DevAddr{BoundIfIndex: 2, DstDevAddr: macGW}
		_, addr, err := e.Resolve(ctx, types.Unspecified(types.FamilyIPv4), sockAddr("10.0.0.2"), hint, true)
		require.NoError(t, err)
		addr.DstDevAddr[0] = 0xaa
		assert.Equal(t, mustMAC("02:00:00:00:00:fe"), hint.DstDevAddr)
	})
}

func TestEngine_TranslateIP(t *testing.T) {
	f := newFakeNet()
	e := NewEngine(f, f, f)

	var addr types.DevAddr
	vlan, err := e.TranslateIP(netipAddr("192.168.100.1"), &addr)
	require.NoError(t, err)
	assert.Equal(t, uint16(100), vlan)
	assert.Equal(t, macVlan, addr.SrcDevAddr)
	assert.Equal(t, 4, addr.BoundIfIndex)

	// 绑定接口优先
	addr = types.DevAddr{BoundIfIndex: 2}
	vlan, err = e.TranslateIP(netipAddr("192.168.100.1"), &addr)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), vlan)
	assert.Equal(t, macEth0, addr.SrcDevAddr)

	addr = types.DevAddr{BoundIfIndex: 42}
	_, err = e.TranslateIP(netipAddr("10.0.0.1"), &addr)
	assert.ErrorIs(t, err, types.ErrDeviceUnavailable)

	addr = types.DevAddr{}
	_, err = e.TranslateIP(netipAddr("198.51.100.7"), &addr)
	assert.ErrorIs(t, err, types.ErrAddrNotAvailable)
}

func TestCopyAddr(t *testing.T) {
	f := newFakeNet()
	link, err := f.LinkByIndex(2)
	require.NoError(t, err)

	addr := types.DevAddr{DstDevAddr: macPeer}
	CopyAddr(&addr, link, nil)
	assert.Equal(t, macPeer, addr.DstDevAddr, "nil destination keeps the previous value")
	assert.Equal(t, link.Broadcast, addr.Broadcast)
	assert.Equal(t, 2, addr.BoundIfIndex)

	CopyAddr(&addr, link, macGW)
	assert.Equal(t, macGW, addr.DstDevAddr)

	// 拷贝而非共享
	addr.SrcDevAddr[0] = 0xff
	assert.Equal(t, macEth0, link.HardwareAddr)
}
