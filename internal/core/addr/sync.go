package addr

import (
	"context"
	"fmt"
	"net"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ============================================================================
//                              同步查询
// ============================================================================

// L2Info GID 对应的以太网二层信息
type L2Info struct {
	// DMAC 对端 MAC 地址
	DMAC net.HardwareAddr

	// VlanID 出接口的 VLAN 标识
	VlanID uint16

	// IfIndex 出接口索引
	IfIndex int

	// HopLimit 路径跳数限制
	HopLimit int
}

// FindL2EthByGRH 同步解析 dgid 的二层信息
//
// 把 GID 转换为 IP 后通过内部客户端提交请求，超时为 SyncTimeout，
// 并等待回调。ifindex 非零时要求从该接口出。
func (s *Scheduler) FindL2EthByGRH(ctx context.Context, sgid, dgid types.GID, ifindex int) (L2Info, error) {
	self := s.selfClient()
	if self == nil {
		return L2Info{}, types.ErrNotStarted
	}

	src := types.GIDToIP(sgid)
	dst := types.GIDToIP(dgid)

	resc := make(chan interfaces.ResolveResult, 1)
	r, err := s.submit(self, interfaces.ResolveRequest{
		Src:     &src,
		Dst:     dst,
		Hint:    types.DevAddr{BoundIfIndex: ifindex},
		Timeout: s.cfg.SyncTimeout,
		Callback: func(res interfaces.ResolveResult) {
			resc <- res
		},
	})
	if err != nil {
		return L2Info{}, err
	}

	var res interfaces.ResolveResult
	select {
	case res = <-resc:
	case <-ctx.Done():
		// 回调仍会执行，结果写入带缓冲的通道后被丢弃
		s.Cancel(r)
		return L2Info{}, ctx.Err()
	}
	if res.Err != nil {
		return L2Info{}, res.Err
	}

	link, err := s.engine.links.LinkByIndex(res.Addr.BoundIfIndex)
	if err != nil {
		return L2Info{}, fmt.Errorf("resolved interface %d: %w", res.Addr.BoundIfIndex, err)
	}

	return L2Info{
		DMAC:     cloneHW(res.Addr.DstDevAddr),
		VlanID:   link.VlanID,
		IfIndex:  res.Addr.BoundIfIndex,
		HopLimit: res.Addr.HopLimit,
	}, nil
}

// FindSMACBySGID 返回本地 GID 所在接口的 MAC 地址与 VLAN 标识
func (s *Scheduler) FindSMACBySGID(sgid types.GID) (net.HardwareAddr, uint16, error) {
	ip := types.GIDToIP(sgid)

	var addr types.DevAddr
	vlan, err := s.engine.TranslateIP(ip.IP, &addr)
	if err != nil {
		return nil, 0, err
	}
	return addr.SrcDevAddr, vlan, nil
}
