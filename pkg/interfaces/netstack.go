// Package interfaces 定义 go-ibaddr 公共接口
//
// 本文件定义地址解析依赖的网络栈协作方接口。
package interfaces

import (
	"context"
	"net"
	"net/netip"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// RouteService 路由查询服务
type RouteService interface {
	// LookupRoute 查找从 src 到 dst 的路由
	//
	// src 可以是无效地址（由路由选择源地址）；oif 非零时要求从该接口出。
	// 无路由时返回 types.ErrNoRoute。
	LookupRoute(ctx context.Context, src, dst netip.Addr, oif int) (types.RouteInfo, error)
}

// NeighborService 邻居（ARP/ND）查询服务
type NeighborService interface {
	// Lookup 返回 ip 在 link 上的有效链路层地址
	//
	// 表项缺失或失效时返回 false，并以副作用方式异步发起一次探测。
	Lookup(link types.Link, ip netip.Addr) (net.HardwareAddr, bool)
}

// InterfaceRegistry 网络接口注册表
type InterfaceRegistry interface {
	// LinkByIndex 按索引查找接口，不存在时返回 types.ErrDeviceUnavailable
	LinkByIndex(ifindex int) (types.Link, error)

	// LinkByAddr 查找配置了 ip 的本地接口，不存在时返回 types.ErrAddrNotAvailable
	LinkByAddr(ip netip.Addr) (types.Link, error)
}
