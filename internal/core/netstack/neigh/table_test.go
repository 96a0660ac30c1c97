package neigh

import (
	"context"
	"errors"
	"net"
	"net/netip"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/eventbus"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/link"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var (
	eth0 = types.Link{
		Index: 2, Name: "eth0", Type: types.LinkTypeEther, Flags: net.FlagUp,
		HardwareAddr: net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
		Addrs:        []netip.Prefix{netip.MustParsePrefix("10.0.0.1/24")},
	}
	peerIP  = netip.MustParseAddr("10.0.0.2")
	peerMAC = net.HardwareAddr{0x02, 0, 0, 0, 0, 0x02}
)

// fakeProber 记录探测请求
type fakeProber struct {
	mu    sync.Mutex
	calls []netip.Addr
	reply net.HardwareAddr
	err   error
	seen  chan netip.Addr
}

func newFakeProber() *fakeProber {
	return &fakeProber{seen: make(chan netip.Addr, 16)}
}

func (p *fakeProber) Probe(_ context.Context, _ types.Link, ip netip.Addr) (net.HardwareAddr, error) {
	p.mu.Lock()
	p.calls = append(p.calls, ip)
	reply, err := p.reply, p.err
	p.mu.Unlock()
	p.seen <- ip
	return reply, err
}

func newTestTable(t *testing.T, opts ...Option) (*Table, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	cfg := DefaultConfig()
	cfg.KernelSync = false
	opts = append([]Option{
		WithClock(mock),
		WithProber(newFakeProber()),
		WithKernelSource(func() ([]KernelEntry, error) { return nil, nil }),
	}, opts...)
	return NewTable(cfg, opts...), mock
}

func drainProbes(tbl *Table) int {
	n := 0
	for {
		select {
		case <-tbl.probeQueue:
			n++
		default:
			return n
		}
	}
}

func TestTable_LookupMissProbes(t *testing.T) {
	tbl, mock := newTestTable(t)

	hw, ok := tbl.Lookup(eth0, peerIP)
	assert.False(t, ok)
	assert.Nil(t, hw)
	assert.Equal(t, 1, drainProbes(tbl))

	e, ok := tbl.Get(eth0.Index, peerIP)
	require.True(t, ok)
	assert.Equal(t, types.NeighborIncomplete, e.State)

	// RetransTime 内不重复探测
	_, ok = tbl.Lookup(eth0, peerIP)
	assert.False(t, ok)
	assert.Equal(t, 0, drainProbes(tbl))

	mock.Add(time.Second)
	_, ok = tbl.Lookup(eth0, peerIP)
	assert.False(t, ok)
	assert.Equal(t, 1, drainProbes(tbl))
}

func TestTable_UpdateThenLookup(t *testing.T) {
	tbl, mock := newTestTable(t)

	tbl.Update(eth0.Index, peerIP, peerMAC, types.NeighborReachable)
	hw, ok := tbl.Lookup(eth0, peerIP)
	require.True(t, ok)
	assert.Equal(t, peerMAC, hw)

	// 返回副本
	hw[0] = 0xff
	hw, _ = tbl.Lookup(eth0, peerIP)
	assert.Equal(t, peerMAC, hw)

	// 过期后需要重新探测
	mock.Add(31 * time.Second)
	_, ok = tbl.Lookup(eth0, peerIP)
	assert.False(t, ok)
	assert.Equal(t, 1, drainProbes(tbl))

	e, _ := tbl.Get(eth0.Index, peerIP)
	assert.Equal(t, types.NeighborStale, e.State)
}

func TestTable_IPv4MappedKey(t *testing.T) {
	tbl, _ := newTestTable(t)
	tbl.Update(eth0.Index, netip.MustParseAddr("::ffff:10.0.0.2"), peerMAC, types.NeighborReachable)

	_, ok := tbl.Lookup(eth0, peerIP)
	assert.True(t, ok)
}

func TestTable_Static(t *testing.T) {
	tbl, mock := newTestTable(t)
	reg := link.NewStaticRegistry(eth0)

	err := tbl.LoadStatic([]config.StaticNeighbor{
		{Interface: "eth0", IP: "10.0.0.3", MAC: "02:00:00:00:00:03"},
	}, reg)
	require.NoError(t, err)

	mock.Add(time.Hour)
	hw, ok := tbl.Lookup(eth0, netip.MustParseAddr("10.0.0.3"))
	require.True(t, ok)
	assert.Equal(t, "02:00:00:00:00:03", hw.String())

	e, ok := tbl.Get(eth0.Index, netip.MustParseAddr("10.0.0.3"))
	require.True(t, ok)
	assert.Equal(t, types.NeighborPermanent, e.State)
	assert.Equal(t, 0, tbl.Len())

	static := tbl.StaticEntries()
	require.Len(t, static, 1)
	assert.Equal(t, netip.MustParseAddr("10.0.0.3"), static[0].IP)
	assert.Equal(t, types.NeighborPermanent, static[0].State)

	assert.Error(t, tbl.LoadStatic([]config.StaticNeighbor{{Interface: "ib9", IP: "10.0.0.3", MAC: "02:00:00:00:00:03"}}, reg))
	assert.Error(t, tbl.LoadStatic([]config.StaticNeighbor{{Interface: "eth0", IP: "x", MAC: "02:00:00:00:00:03"}}, reg))
	assert.Error(t, tbl.LoadStatic([]config.StaticNeighbor{{Interface: "eth0", IP: "10.0.0.3", MAC: "zz"}}, reg))
}

func TestTable_EmitsNeighborUpdate(t *testing.T) {
	bus := eventbus.NewBus()
	sub, err := bus.Subscribe(new(types.EvtNeighborUpdate))
	require.NoError(t, err)
	defer sub.Close()
	em, err := bus.Emitter(new(types.EvtNeighborUpdate))
	require.NoError(t, err)
	defer em.Close()

	tbl, _ := newTestTable(t, WithEmitter(em))

	tbl.Update(eth0.Index, peerIP, peerMAC, types.NeighborReachable)
	select {
	case raw := <-sub.Out():
		evt := raw.(types.EvtNeighborUpdate)
		assert.Equal(t, peerIP, evt.IP)
		assert.Equal(t, eth0.Index, evt.IfIndex)
		assert.Equal(t, peerMAC, evt.HardwareAddr)
		assert.True(t, evt.State.Valid())
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	// 相同地址的刷新不重复发布
	tbl.Update(eth0.Index, peerIP, peerMAC, types.NeighborReachable)
	select {
	case <-sub.Out():
		t.Fatal("unexpected event")
	case <-time.After(50 * time.Millisecond):
	}

	// 地址变化重新发布
	tbl.Update(eth0.Index, peerIP, net.HardwareAddr{0x02, 0, 0, 0, 0, 0x09}, types.NeighborReachable)
	select {
	case <-sub.Out():
	case <-time.After(time.Second):
		t.Fatal("no event after address change")
	}

	// 变为无效不发布
	tbl.Update(eth0.Index, peerIP, nil, types.NeighborStale)
	select {
	case <-sub.Out():
		t.Fatal("unexpected event for stale")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTable_DeleteFlush(t *testing.T) {
	tbl, _ := newTestTable(t)
	tbl.Update(2, peerIP, peerMAC, types.NeighborReachable)
	tbl.Update(3, peerIP, peerMAC, types.NeighborReachable)
	tbl.Update(3, netip.MustParseAddr("10.0.0.9"), peerMAC, types.NeighborReachable)
	assert.Equal(t, 3, tbl.Len())

	tbl.Delete(2, peerIP)
	assert.Equal(t, 2, tbl.Len())

	tbl.Flush(3)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Entries())
}

func TestTable_MaxEntries(t *testing.T) {
	mock := clock.NewMock()
	tbl := NewTable(Config{MaxEntries: 2}, WithClock(mock), WithProber(newFakeProber()))
	for i := 1; i <= 3; i++ {
		tbl.Update(2, netip.AddrFrom4([4]byte{10, 0, 0, byte(i)}), peerMAC, types.NeighborReachable)
	}
	assert.Equal(t, 2, tbl.Len())
	_, ok := tbl.Get(2, netip.MustParseAddr("10.0.0.1"))
	assert.False(t, ok)
}

func TestTable_ProbeLoop(t *testing.T) {
	prober := newFakeProber()
	prober.reply = peerMAC
	tbl, _ := newTestTable(t, WithProber(prober))

	require.NoError(t, tbl.Start(context.Background()))
	defer tbl.Stop()
	assert.ErrorIs(t, tbl.Start(context.Background()), types.ErrAlreadyStarted)

	_, ok := tbl.Lookup(eth0, peerIP)
	assert.False(t, ok)

	select {
	case ip := <-prober.seen:
		assert.Equal(t, peerIP, ip)
	case <-time.After(time.Second):
		t.Fatal("probe not run")
	}

	assert.Eventually(t, func() bool {
		_, ok := tbl.Lookup(eth0, peerIP)
		return ok
	}, time.Second, 10*time.Millisecond)
}

func TestTable_ProbeError(t *testing.T) {
	prober := newFakeProber()
	prober.err = errors.New("unreachable")
	tbl, _ := newTestTable(t, WithProber(prober))

	tbl.runProbe(context.Background(), probeJob{link: eth0, ip: peerIP})
	<-prober.seen
	_, ok := tbl.Get(eth0.Index, peerIP)
	assert.False(t, ok)
}

func TestTable_StopIdempotent(t *testing.T) {
	tbl, _ := newTestTable(t)
	assert.NoError(t, tbl.Stop())
	require.NoError(t, tbl.Start(context.Background()))
	assert.NoError(t, tbl.Stop())
	assert.NoError(t, tbl.Stop())
}

func TestTable_SyncKernel(t *testing.T) {
	kernel := []KernelEntry{
		{IfIndex: 2, IP: peerIP, HardwareAddr: peerMAC, State: types.NeighborReachable},
		{IfIndex: 2, IP: netip.MustParseAddr("10.0.0.7"), HardwareAddr: peerMAC, State: types.NeighborReachable},
		{IfIndex: 2, IP: netip.MustParseAddr("10.0.0.8"), State: types.NeighborIncomplete},
	}
	tbl, _ := newTestTable(t, WithKernelSource(func() ([]KernelEntry, error) { return kernel, nil }))

	// 只合并查询过的地址
	tbl.Lookup(eth0, peerIP)
	tbl.Lookup(eth0, netip.MustParseAddr("10.0.0.8"))
	require.NoError(t, tbl.SyncKernel())

	hw, ok := tbl.Lookup(eth0, peerIP)
	require.True(t, ok)
	assert.Equal(t, peerMAC, hw)

	_, ok = tbl.Get(2, netip.MustParseAddr("10.0.0.7"))
	assert.False(t, ok)

	_, ok = tbl.Lookup(eth0, netip.MustParseAddr("10.0.0.8"))
	assert.False(t, ok)
}

func TestTable_SyncKernelError(t *testing.T) {
	boom := errors.New("boom")
	tbl, _ := newTestTable(t, WithKernelSource(func() ([]KernelEntry, error) { return nil, boom }))
	assert.ErrorIs(t, tbl.SyncKernel(), boom)
}

func TestTable_SyncLoop(t *testing.T) {
	mock := clock.NewMock()
	synced := make(chan struct{}, 4)
	cfg := DefaultConfig()
	tbl := NewTable(cfg,
		WithClock(mock),
		WithProber(newFakeProber()),
		WithKernelSource(func() ([]KernelEntry, error) {
			select {
			case synced <- struct{}{}:
			default:
			}
			return nil, nil
		}),
	)
	require.NoError(t, tbl.Start(context.Background()))
	defer tbl.Stop()

	// 等待 ticker 注册后推进时钟
	assert.Eventually(t, func() bool {
		mock.Add(cfg.KernelSyncInterval)
		select {
		case <-synced:
			return true
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

const procARP = `IP address       HW type     Flags       HW address            Mask     Device
10.0.0.2         0x1         0x2         02:00:00:00:00:02     *        eth0
10.0.0.3         0x1         0x0         00:00:00:00:00:00     *        eth0
10.0.0.4         0x1         0x6         02:00:00:00:00:04     *        eth0
10.0.0.5         0x1         0x2         02:00:00:00:00:05     *        wlan9
`

func TestReadProcARP(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "net"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "net", "arp"), []byte(procARP), 0o644))

	entries, err := ReadProcARP(root, func(dev string) (int, bool) {
		return 2, dev == "eth0"
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, peerIP, entries[0].IP)
	assert.Equal(t, types.NeighborReachable, entries[0].State)
	assert.Equal(t, peerMAC, entries[0].HardwareAddr)
	assert.Equal(t, "eth0", entries[0].Device)

	assert.Equal(t, types.NeighborIncomplete, entries[1].State)
	assert.Equal(t, types.NeighborPermanent, entries[2].State)
}

func TestReadProcARP_Errors(t *testing.T) {
	_, err := ReadProcARP(filepath.Join(t.TempDir(), "missing"), ifindexByName)
	assert.Error(t, err)

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "net"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "net", "arp"), []byte("garbage line\n"), 0o644))
	_, err = ReadProcARP(root, ifindexByName)
	assert.Error(t, err)
}
