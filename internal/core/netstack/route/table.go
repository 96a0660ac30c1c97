package route

import (
	"context"
	"fmt"
	"net/netip"
	"sort"
	"sync"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("core/netstack/route")

// DefaultHopLimit 路由未指定跳数限制时的默认值
const DefaultHopLimit = 64

// Origin 路由来源
type Origin int

const (
	// OriginHost 由接口地址生成
	OriginHost Origin = iota
	// OriginGateway 网关探测
	OriginGateway
	// OriginStatic 配置
	OriginStatic
)

// String 返回来源的字符串表示
func (o Origin) String() string {
	switch o {
	case OriginHost:
		return "host"
	case OriginGateway:
		return "gateway"
	case OriginStatic:
		return "static"
	default:
		return "unknown"
	}
}

// Route 路由表项
type Route struct {
	Prefix   netip.Prefix
	IfIndex  int
	Gateway  netip.Addr
	Src      netip.Addr
	HopLimit int
	Metric   int

	// Local 目的地址为本机地址
	Local bool

	Origin Origin
}

func (r Route) String() string {
	s := fmt.Sprintf("%s dev %d", r.Prefix, r.IfIndex)
	if r.Gateway.IsValid() {
		s += " via " + r.Gateway.String()
	}
	if r.Local {
		s += " local"
	}
	return s
}

// LinkLister 枚举接口
type LinkLister interface {
	Links() []types.Link
}

// Table 路由表
type Table struct {
	mu     sync.RWMutex
	routes []Route

	links           LinkLister
	defaultHopLimit int
}

var _ interfaces.RouteService = (*Table)(nil)

// NewTable 创建空路由表
func NewTable(links LinkLister, defaultHopLimit int) *Table {
	if defaultHopLimit <= 0 {
		defaultHopLimit = DefaultHopLimit
	}
	return &Table{
		links:           links,
		defaultHopLimit: defaultHopLimit,
	}
}

// Add 添加路由
func (t *Table) Add(r Route) error {
	if !r.Prefix.IsValid() {
		return fmt.Errorf("%w: invalid prefix", types.ErrInvalidArgument)
	}
	if r.IfIndex <= 0 {
		return fmt.Errorf("%w: route %s has no interface", types.ErrInvalidArgument, r.Prefix)
	}
	if r.Gateway.IsValid() && r.Gateway.Unmap().Is4() != r.Prefix.Addr().Is4() {
		return fmt.Errorf("%w: gateway %s does not match %s", types.ErrInvalidArgument, r.Gateway, r.Prefix)
	}
	r.Prefix = r.Prefix.Masked()
	r.Gateway = r.Gateway.Unmap()

	t.mu.Lock()
	t.routes = append(t.routes, r)
	sortRoutes(t.routes)
	t.mu.Unlock()
	return nil
}

// Remove 删除与 prefix、ifindex 相同的路由，返回删除数量
func (t *Table) Remove(prefix netip.Prefix, ifindex int) int {
	prefix = prefix.Masked()

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.routes[:0]
	n := 0
	for _, r := range t.routes {
		if r.Prefix == prefix && r.IfIndex == ifindex {
			n++
			continue
		}
		kept = append(kept, r)
	}
	t.routes = kept
	return n
}

// Routes 返回路由表快照
func (t *Table) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Route(nil), t.routes...)
}

// Replace 替换指定来源的全部路由
func (t *Table) Replace(origin Origin, routes []Route) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := make([]Route, 0, len(t.routes)+len(routes))
	for _, r := range t.routes {
		if r.Origin != origin {
			kept = append(kept, r)
		}
	}
	for _, r := range routes {
		r.Origin = origin
		r.Prefix = r.Prefix.Masked()
		kept = append(kept, r)
	}
	sortRoutes(kept)
	t.routes = kept
}

// LookupRoute 查找到 dst 的最长前缀匹配路由
func (t *Table) LookupRoute(_ context.Context, src, dst netip.Addr, oif int) (types.RouteInfo, error) {
	dst = dst.Unmap()
	src = src.Unmap()
	if !dst.IsValid() {
		return types.RouteInfo{}, fmt.Errorf("%w: invalid destination", types.ErrInvalidArgument)
	}

	r, ok := t.match(dst, oif)
	if !ok {
		return types.RouteInfo{}, types.ErrNoRoute
	}

	info := types.RouteInfo{
		IfIndex:  r.IfIndex,
		HopLimit: r.HopLimit,
	}
	if info.HopLimit <= 0 {
		info.HopLimit = t.defaultHopLimit
	}
	if r.Gateway.IsValid() {
		info.Gateway = r.Gateway
		info.UsesGateway = true
	}

	switch {
	case src.IsValid():
		if !t.isLocal(src) {
			return types.RouteInfo{}, fmt.Errorf("%w: %s is not a local address", types.ErrAddrNotAvailable, src)
		}
		info.Src = src
	case r.Src.IsValid():
		info.Src = r.Src
	default:
		info.Src = t.selectSrc(r, dst)
	}
	return info, nil
}

func (t *Table) match(dst netip.Addr, oif int) (Route, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	// routes 按前缀长度降序、metric 升序排列，第一个匹配即最优。
	// 本机路由不受出接口约束，绑定到任何接口都经回环到达本机地址。
	for _, r := range t.routes {
		if oif != 0 && r.IfIndex != oif && !r.Local {
			continue
		}
		if r.Prefix.Contains(dst) {
			return r, true
		}
	}
	return Route{}, false
}

func (t *Table) isLocal(ip netip.Addr) bool {
	if t.links == nil {
		return false
	}
	for _, l := range t.links.Links() {
		if l.HasAddr(ip) {
			return true
		}
	}
	return false
}

// selectSrc 为没有指定首选源地址的路由选择源地址
//
// 优先选择出接口上与下一跳同前缀的地址，其次是出接口上同地址族的
// 任意地址，最后是其它启用接口上同地址族的地址。
func (t *Table) selectSrc(r Route, dst netip.Addr) netip.Addr {
	if t.links == nil {
		return netip.Addr{}
	}
	nextHop := dst
	if r.Gateway.IsValid() {
		nextHop = r.Gateway
	}
	links := t.links.Links()

	var fallback netip.Addr
	for _, l := range links {
		if l.Index != r.IfIndex {
			continue
		}
		for _, p := range l.Addrs {
			a := p.Addr().Unmap()
			if a.Is4() != dst.Is4() {
				continue
			}
			if p.Contains(nextHop) {
				return a
			}
			if !fallback.IsValid() {
				fallback = a
			}
		}
	}
	if fallback.IsValid() {
		return fallback
	}

	for _, l := range links {
		if !l.IsUp() || l.IsLoopback() {
			continue
		}
		for _, p := range l.Addrs {
			if a := p.Addr().Unmap(); a.Is4() == dst.Is4() && !a.IsLinkLocalUnicast() {
				return a
			}
		}
	}
	return netip.Addr{}
}

func sortRoutes(routes []Route) {
	sort.SliceStable(routes, func(i, j int) bool {
		a, b := routes[i], routes[j]
		if a.Prefix.Bits() != b.Prefix.Bits() {
			return a.Prefix.Bits() > b.Prefix.Bits()
		}
		return a.Metric < b.Metric
	})
}
