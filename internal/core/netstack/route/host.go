package route

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/jackpal/gateway"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// GatewayFunc 探测默认网关
type GatewayFunc func() (net.IP, error)

// DiscoverGateway 使用系统路由表探测默认网关
var DiscoverGateway GatewayFunc = gateway.DiscoverGateway

// HostRoutes 由接口地址生成本机路由与直连路由
//
// 本机路由经回环接口；没有回环接口时本机路由从拥有该地址的接口出。
// 未启用的接口被跳过。
func HostRoutes(links []types.Link) []Route {
	loIndex := 0
	for _, l := range links {
		if l.IsLoopback() {
			loIndex = l.Index
			break
		}
	}

	var routes []Route
	for _, l := range links {
		if !l.IsUp() {
			continue
		}
		for _, p := range l.Addrs {
			a := p.Addr().Unmap()
			local := loIndex
			if local == 0 {
				local = l.Index
			}
			routes = append(routes, Route{
				Prefix:  netip.PrefixFrom(a, a.BitLen()),
				IfIndex: local,
				Src:     a,
				Local:   true,
			})
			if l.IsLoopback() {
				continue
			}
			bits := p.Bits()
			if a.Is4() && bits > 32 {
				bits -= 96
			}
			routes = append(routes, Route{
				Prefix:  netip.PrefixFrom(a, bits).Masked(),
				IfIndex: l.Index,
				Src:     a,
				Metric:  100,
			})
		}
	}
	return routes
}

// LoadHost 用 links 重建本机路由与直连路由
func (t *Table) LoadHost(links []types.Link) {
	routes := HostRoutes(links)
	t.Replace(OriginHost, routes)
	logger.Debug("已加载主机路由", "routes", len(routes))
}

// LoadGateway 探测默认网关并安装 IPv4 默认路由
//
// 网关必须位于某个启用接口的直连前缀内。
func (t *Table) LoadGateway(discover GatewayFunc, links []types.Link) error {
	if discover == nil {
		discover = DiscoverGateway
	}
	ip, err := discover()
	if err != nil {
		return fmt.Errorf("discover gateway: %w", err)
	}
	gw, ok := netip.AddrFromSlice(ip)
	if !ok {
		return fmt.Errorf("%w: gateway %v", types.ErrInvalidArgument, ip)
	}
	gw = gw.Unmap()

	for _, l := range links {
		if !l.IsUp() || l.IsLoopback() {
			continue
		}
		for _, p := range l.Addrs {
			if p.Masked().Contains(gw) {
				def := netip.PrefixFrom(netip.IPv4Unspecified(), 0)
				if gw.Is6() {
					def = netip.PrefixFrom(netip.IPv6Unspecified(), 0)
				}
				t.Replace(OriginGateway, []Route{{
					Prefix:  def,
					IfIndex: l.Index,
					Gateway: gw,
					Metric:  100,
				}})
				logger.Info("已安装默认路由", "gateway", gw, "ifindex", l.Index)
				return nil
			}
		}
	}
	return fmt.Errorf("%w: gateway %s is not on a connected network", types.ErrNoRoute, gw)
}

// LinkResolver 按名称查找接口
type LinkResolver interface {
	LinkByName(name string) (types.Link, error)
}

// LoadStatic 安装配置中的静态路由
func (t *Table) LoadStatic(static []config.StaticRoute, links LinkResolver) error {
	routes := make([]Route, 0, len(static))
	for _, s := range static {
		prefix, err := netip.ParsePrefix(s.Prefix)
		if err != nil {
			return fmt.Errorf("static route %q: %w", s.Prefix, err)
		}
		l, err := links.LinkByName(s.Interface)
		if err != nil {
			return fmt.Errorf("static route %s: %w", s.Prefix, err)
		}
		r := Route{
			Prefix:   prefix.Masked(),
			IfIndex:  l.Index,
			HopLimit: s.HopLimit,
		}
		if s.Gateway != "" {
			gw, err := netip.ParseAddr(s.Gateway)
			if err != nil {
				return fmt.Errorf("static route %s gateway: %w", s.Prefix, err)
			}
			if gw.Unmap().Is4() != prefix.Addr().Is4() {
				return fmt.Errorf("%w: static route %s gateway %s family mismatch",
					types.ErrInvalidArgument, s.Prefix, s.Gateway)
			}
			r.Gateway = gw.Unmap()
		}
		routes = append(routes, r)
	}
	t.Replace(OriginStatic, routes)
	return nil
}
