package addr

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// TranslateIP 查找本地地址 ip 所在的接口并把接口信息填入 addr
//
// addr.BoundIfIndex 非零时直接使用该接口。返回接口的 VLAN 标识。
func (e *Engine) TranslateIP(ip netip.Addr, addr *types.DevAddr) (uint16, error) {
	if addr.BoundIfIndex != 0 {
		link, err := e.links.LinkByIndex(addr.BoundIfIndex)
		if err != nil {
			return 0, fmt.Errorf("bound interface %d: %w", addr.BoundIfIndex, err)
		}
		CopyAddr(addr, link, nil)
		return link.VlanID, nil
	}

	link, err := e.links.LinkByAddr(ip.Unmap())
	if err != nil {
		return 0, fmt.Errorf("local address %s: %w", ip, err)
	}
	CopyAddr(addr, link, nil)
	return link.VlanID, nil
}

// CopyAddr 用接口信息填充设备地址绑定
//
// dst 为 nil 时保留 addr 原有的对端地址。
func CopyAddr(addr *types.DevAddr, link types.Link, dst net.HardwareAddr) {
	addr.DevType = link.Type
	addr.SrcDevAddr = cloneHW(link.HardwareAddr)
	addr.Broadcast = cloneHW(link.Broadcast)
	if dst != nil {
		addr.DstDevAddr = cloneHW(dst)
	}
	addr.BoundIfIndex = link.Index
}

func cloneHW(hw net.HardwareAddr) net.HardwareAddr {
	if hw == nil {
		return nil
	}
	return append(net.HardwareAddr(nil), hw...)
}
