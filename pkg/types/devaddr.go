package types

import (
	"bytes"
	"net"
	"net/netip"
	"strconv"
)

// ============================================================================
//                              DevAddr - 解析结果
// ============================================================================

// DevAddr 设备地址绑定
//
// 地址解析的输出：所属接口、本端/对端链路层地址、广播地址、
// 网络类型与跳数限制。BoundIfIndex 在提交时也作为输入，
// 非零时要求路由从该接口出。
type DevAddr struct {
	// SrcDevAddr 本端接口链路层地址
	SrcDevAddr net.HardwareAddr

	// DstDevAddr 对端（下一跳）链路层地址
	DstDevAddr net.HardwareAddr

	// Broadcast 接口广播地址
	Broadcast net.HardwareAddr

	// DevType 接口链路类型
	DevType LinkType

	// BoundIfIndex 绑定的接口索引
	BoundIfIndex int

	// Network 网络类型分类
	Network NetworkType

	// HopLimit 路径跳数限制
	HopLimit int
}

// Clone 深拷贝
func (d DevAddr) Clone() DevAddr {
	d.SrcDevAddr = cloneHW(d.SrcDevAddr)
	d.DstDevAddr = cloneHW(d.DstDevAddr)
	d.Broadcast = cloneHW(d.Broadcast)
	return d
}

// Loopback 对端地址是否等于本端地址（自解析）
func (d DevAddr) Loopback() bool {
	return len(d.SrcDevAddr) > 0 && bytes.Equal(d.SrcDevAddr, d.DstDevAddr)
}

func cloneHW(hw net.HardwareAddr) net.HardwareAddr {
	if hw == nil {
		return nil
	}
	out := make(net.HardwareAddr, len(hw))
	copy(out, hw)
	return out
}

// ============================================================================
//                              Link - 网络接口
// ============================================================================

// LinkType 链路类型（ARPHRD_*）
type LinkType uint16

const (
	// LinkTypeEther 以太网
	LinkTypeEther LinkType = 1
	// LinkTypeInfiniband IPoIB
	LinkTypeInfiniband LinkType = 32
	// LinkTypeLoopback 回环
	LinkTypeLoopback LinkType = 772
	// LinkTypeNone 无链路层地址（隧道等）
	LinkTypeNone LinkType = 65534
)

// String 返回链路类型的字符串表示
func (t LinkType) String() string {
	switch t {
	case LinkTypeEther:
		return "ether"
	case LinkTypeInfiniband:
		return "infiniband"
	case LinkTypeLoopback:
		return "loopback"
	case LinkTypeNone:
		return "none"
	default:
		return "linktype(" + strconv.Itoa(int(t)) + ")"
	}
}

// Link 网络接口句柄
type Link struct {
	Index        int
	Name         string
	HardwareAddr net.HardwareAddr
	Broadcast    net.HardwareAddr
	MTU          int
	Type         LinkType
	Flags        net.Flags

	// NoARP 接口内部完成链路层解析（IFF_NOARP）
	NoARP bool

	// VlanID VLAN 标识，非 VLAN 接口为 0
	VlanID uint16

	// Addrs 接口上配置的地址
	Addrs []netip.Prefix
}

// IsLoopback 是否为回环接口
func (l Link) IsLoopback() bool {
	return l.Flags&net.FlagLoopback != 0 || l.Type == LinkTypeLoopback
}

// IsUp 接口是否启用
func (l Link) IsUp() bool {
	return l.Flags&net.FlagUp != 0
}

// HasAddr 接口上是否配置了指定地址
func (l Link) HasAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	for _, p := range l.Addrs {
		if p.Addr().Unmap() == ip {
			return true
		}
	}
	return false
}

// ============================================================================
//                              RouteInfo - 路由信息
// ============================================================================

// RouteInfo 一次路由查询的结果
type RouteInfo struct {
	// Src 路由选择的源地址
	Src netip.Addr

	// IfIndex 出接口索引
	IfIndex int

	// Gateway 网关地址（UsesGateway 为 true 时有效）
	Gateway netip.Addr

	// UsesGateway 路径是否经过网关
	UsesGateway bool

	// HopLimit 路径跳数限制
	HopLimit int
}

// NextHop 返回到达 dst 的下一跳地址
func (r RouteInfo) NextHop(dst netip.Addr) netip.Addr {
	if r.UsesGateway && r.Gateway.IsValid() {
		return r.Gateway
	}
	return dst
}
