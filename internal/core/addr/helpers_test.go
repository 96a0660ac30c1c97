package addr

import (
	"context"
	"net"
	"net/netip"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ============================================================================
//                              测试用网络栈
// ============================================================================

var (
	macLo   = net.HardwareAddr{0, 0, 0, 0, 0, 0}
	macEth0 = mustMAC("02:00:00:00:00:01")
	macPeer = mustMAC("02:00:00:00:00:02")
	macGW   = mustMAC("02:00:00:00:00:fe")
	macVlan = mustMAC("02:00:00:00:01:00")
	macIB   = mustMAC("00:00:00:48:fe:80:00:00:00:00:00:00:00:02:c9:03:00:0a:0b:0c")
)

func mustMAC(s string) net.HardwareAddr {
	hw, err := net.ParseMAC(s)
	if err != nil {
		panic(err)
	}
	return hw
}

type fakeRoute struct {
	prefix netip.Prefix
	info   types.RouteInfo
}

// fakeNet 同时实现 RouteService、NeighborService、InterfaceRegistry
//
// 接口：
//
//	1 lo        127.0.0.1/8
//	2 eth0      10.0.0.1/24, fd00::1/64
//	3 ib0       10.2.0.1/16 (NoARP)
//	4 eth0.100  192.168.100.1/24 (VLAN 100)
//
// 172.16.0.0/12 经网关 10.0.0.254 从 eth0 出。
type fakeNet struct {
	mu     sync.Mutex
	links  map[int]types.Link
	routes []fakeRoute
	neigh  map[netip.Addr]net.HardwareAddr
	probes map[netip.Addr]int
}

func newFakeNet() *fakeNet {
	f := &fakeNet{
		links:  make(map[int]types.Link),
		neigh:  make(map[netip.Addr]net.HardwareAddr),
		probes: make(map[netip.Addr]int),
	}
	f.addLink(types.Link{Index: 1, Name: "lo", HardwareAddr: macLo, Type: types.LinkTypeLoopback,
		Flags: net.FlagUp | net.FlagLoopback, MTU: 65536,
		Addrs: []netip.Prefix{netip.MustParsePrefix("127.0.0.1/8"), netip.MustParsePrefix("::1/128")}})
	f.addLink(types.Link{Index: 2, Name: "eth0", HardwareAddr: macEth0, Broadcast: mustMAC("ff:ff:ff:ff:ff:ff"),
		Type: types.LinkTypeEther, Flags: net.FlagUp | net.FlagBroadcast, MTU: 1500,
		Addrs: []netip.Prefix{netip.MustParsePrefix("10.0.0.1/24"), netip.MustParsePrefix("fd00::1/64")}})
	f.addLink(types.Link{Index: 3, Name: "ib0", HardwareAddr: macIB, Type: types.LinkTypeInfiniband,
		Flags: net.FlagUp, MTU: 2044, NoARP: true,
		Addrs: []netip.Prefix{netip.MustParsePrefix("10.2.0.1/16")}})
	f.addLink(types.Link{Index: 4, Name: "eth0.100", HardwareAddr: macVlan, Type: types.LinkTypeEther,
		Flags: net.FlagUp, MTU: 1500, VlanID: 100,
		Addrs: []netip.Prefix{netip.MustParsePrefix("192.168.100.1/24")}})

	f.addRoute("10.0.0.0/24", types.RouteInfo{Src: netip.MustParseAddr("10.0.0.1"), IfIndex: 2, HopLimit: 64})
	f.addRoute("fd00::/64", types.RouteInfo{Src: netip.MustParseAddr("fd00::1"), IfIndex: 2, HopLimit: 64})
	f.addRoute("10.2.0.0/16", types.RouteInfo{Src: netip.MustParseAddr("10.2.0.1"), IfIndex: 3, HopLimit: 64})
	f.addRoute("192.168.100.0/24", types.RouteInfo{Src: netip.MustParseAddr("192.168.100.1"), IfIndex: 4, HopLimit: 64})
	f.addRoute("172.16.0.0/12", types.RouteInfo{Src: netip.MustParseAddr("10.0.0.1"), IfIndex: 2,
		Gateway: netip.MustParseAddr("10.0.0.254"), UsesGateway: true, HopLimit: 63})
	return f
}

func (f *fakeNet) addLink(l types.Link) {
	f.links[l.Index] = l
}

func (f *fakeNet) addRoute(prefix string, info types.RouteInfo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = append(f.routes, fakeRoute{prefix: netip.MustParsePrefix(prefix), info: info})
}

func (f *fakeNet) dropRoutes() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes = nil
}

func (f *fakeNet) setNeighbor(ip string, hw net.HardwareAddr) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.neigh[netip.MustParseAddr(ip)] = hw
}

func (f *fakeNet) probeCount(ip string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes[netip.MustParseAddr(ip)]
}

func (f *fakeNet) LookupRoute(_ context.Context, _, dst netip.Addr, oif int) (types.RouteInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// 本机地址走回环
	for _, l := range f.links {
		if l.HasAddr(dst) && (oif == 0 || oif == 1) {
			return types.RouteInfo{Src: dst, IfIndex: 1, HopLimit: 64}, nil
		}
	}

	best := -1
	var out types.RouteInfo
	for _, r := range f.routes {
		if !r.prefix.Contains(dst) || r.prefix.Bits() <= best {
			continue
		}
		if oif != 0 && r.info.IfIndex != oif {
			continue
		}
		best, out = r.prefix.Bits(), r.info
	}
	if best < 0 {
		return types.RouteInfo{}, types.ErrNoRoute
	}
	return out, nil
}

func (f *fakeNet) Lookup(_ types.Link, ip netip.Addr) (net.HardwareAddr, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if hw, ok := f.neigh[ip]; ok {
		return hw, true
	}
	f.probes[ip]++
	return nil, false
}

func (f *fakeNet) LinkByIndex(ifindex int) (types.Link, error) {
	if l, ok := f.links[ifindex]; ok {
		return l, nil
	}
	return types.Link{}, types.ErrDeviceUnavailable
}

func (f *fakeNet) LinkByAddr(ip netip.Addr) (types.Link, error) {
	for _, l := range f.links {
		if l.HasAddr(ip) {
			return l, nil
		}
	}
	return types.Link{}, types.ErrAddrNotAvailable
}

// ============================================================================
//                              测试辅助
// ============================================================================

// recorder 记录回调，按完成顺序保存
type recorder struct {
	mu      sync.Mutex
	results []interfaces.ResolveResult
	tags    []string
}

func (r *recorder) callback(tag string) interfaces.ResolveCallback {
	return func(res interfaces.ResolveResult) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.results = append(r.results, res)
		r.tags = append(r.tags, tag)
	}
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}

func (r *recorder) get(i int) interfaces.ResolveResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[i]
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tags...)
}

// newTestScheduler 创建未启动的调度器，用 mock 时钟手动驱动
func newTestScheduler(t *testing.T) (*Scheduler, *fakeNet, *clock.Mock) {
	t.Helper()
	f := newFakeNet()
	mock := clock.NewMock()
	s := NewScheduler(NewEngine(f, f, f), DefaultConfig(), WithClock(mock))
	return s, f, mock
}

// newRunningScheduler 创建使用真实时钟并已启动的调度器
func newRunningScheduler(t *testing.T) (*Scheduler, *fakeNet) {
	t.Helper()
	f := newFakeNet()
	s := NewScheduler(NewEngine(f, f, f), Config{DefaultTimeout: time.Second, SyncTimeout: 200 * time.Millisecond})
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		_ = s.Stop(context.Background())
	})
	return s, f
}

func sockAddr(s string) types.SockAddr {
	return types.NewSockAddr(netip.MustParseAddr(s))
}

func sockAddrPtr(s string) *types.SockAddr {
	a := sockAddr(s)
	return &a
}

func netipAddr(s string) netip.Addr {
	return netip.MustParseAddr(s)
}
