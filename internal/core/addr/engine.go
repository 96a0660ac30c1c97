package addr

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// Engine 执行一次同步解析尝试
//
// 第一步查询路由，确定出接口、源地址、是否经过网关和跳数限制；
// 第二步（可选）解析下一跳的链路层地址。邻居尚未解析时返回
// types.ErrNoData，并由邻居服务异步发起探测。
type Engine struct {
	routes interfaces.RouteService
	neigh  interfaces.NeighborService
	links  interfaces.InterfaceRegistry
}

// NewEngine 创建解析引擎
func NewEngine(routes interfaces.RouteService, neigh interfaces.NeighborService, links interfaces.InterfaceRegistry) *Engine {
	return &Engine{
		routes: routes,
		neigh:  neigh,
		links:  links,
	}
}

// Resolve 解析 dst
//
// src 未指定时使用路由选择的源地址。hint.BoundIfIndex 非零时要求从该接口出。
// 返回更新后的源地址与设备地址绑定；即使返回 ErrNoData，
// 绑定中的路由部分（Network、HopLimit、BoundIfIndex）也已填充。
func (e *Engine) Resolve(ctx context.Context, src, dst types.SockAddr, hint types.DevAddr, resolveNeigh bool) (types.SockAddr, types.DevAddr, error) {
	addr := hint.Clone()

	if err := checkFamilies(src, dst); err != nil {
		return src, addr, err
	}
	if dst.Family == types.FamilyIB {
		return src, addr, fmt.Errorf("%w: no ip route for %s", types.ErrAddrNotAvailable, dst)
	}

	var srcIP netip.Addr
	if !src.IsUnspecified() {
		srcIP = src.IP.Unmap()
	}
	dstIP := dst.IP.Unmap()

	route, err := e.routes.LookupRoute(ctx, srcIP, dstIP, addr.BoundIfIndex)
	if err != nil {
		return src, addr, fmt.Errorf("route %s: %w", dstIP, err)
	}

	if !srcIP.IsValid() {
		if !route.Src.IsValid() {
			return src, addr, fmt.Errorf("%w: no source address for %s", types.ErrAddrNotAvailable, dstIP)
		}
		src.Family = dst.Family
		src.IP = route.Src.Unmap()
	}

	// 经过网关说明路径可路由（RoCE v2）
	if route.UsesGateway {
		if dst.Family == types.FamilyIPv4 {
			addr.Network = types.NetworkIPv4
		} else {
			addr.Network = types.NetworkIPv6
		}
	}
	addr.HopLimit = route.HopLimit

	if resolveNeigh {
		err = e.resolveNeigh(route, dstIP, &addr)
	}
	addr.BoundIfIndex = route.IfIndex

	return src, addr, err
}

// resolveNeigh 解析链路层地址
func (e *Engine) resolveNeigh(route types.RouteInfo, dst netip.Addr, addr *types.DevAddr) error {
	link, err := e.links.LinkByIndex(route.IfIndex)
	if err != nil {
		return fmt.Errorf("route interface %d: %w", route.IfIndex, err)
	}

	switch {
	case link.IsLoopback():
		// 本机地址：对端链路层地址等于本端
		if _, err := e.TranslateIP(dst, addr); err != nil {
			return err
		}
		addr.DstDevAddr = cloneHW(addr.SrcDevAddr)
		return nil

	case link.NoARP:
		CopyAddr(addr, link, nil)
		return nil
	}

	hw, ok := e.neigh.Lookup(link, route.NextHop(dst))
	if !ok {
		return types.ErrNoData
	}
	CopyAddr(addr, link, hw)
	return nil
}

// checkFamilies 调用方指定了源地址时，源/目的地址族必须一致
func checkFamilies(src, dst types.SockAddr) error {
	if !dst.IsIP() && dst.Family != types.FamilyIB {
		return fmt.Errorf("%w: unsupported destination family %s", types.ErrInvalidArgument, dst.Family)
	}
	if src.Family != types.FamilyUnspec && src.Family != dst.Family {
		return fmt.Errorf("%w: source family %s does not match destination family %s",
			types.ErrInvalidArgument, src.Family, dst.Family)
	}
	if dst.IsIP() && !dst.IP.IsValid() {
		return fmt.Errorf("%w: destination address missing", types.ErrInvalidArgument)
	}
	return nil
}

// IsRetry 是否为需要重试的错误
func IsRetry(err error) bool {
	return errors.Is(err, types.ErrNoData)
}
