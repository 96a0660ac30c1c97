package neigh

import (
	"context"
	"net"
	"net/netip"

	"github.com/prometheus/procfs"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// KernelEntry 内核邻居表项
type KernelEntry struct {
	IfIndex      int
	Device       string
	IP           netip.Addr
	HardwareAddr net.HardwareAddr
	State        types.NeighborState
}

// KernelSource 导出内核邻居表
type KernelSource func() ([]KernelEntry, error)

// syncLoop 定期把内核邻居表合并到本地表
func (t *Table) syncLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := t.clock.Ticker(t.cfg.KernelSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.SyncKernel(); err != nil {
				logger.Debug("同步内核邻居表失败", "err", err)
			}
		}
	}
}

// SyncKernel 读取一次内核邻居表并合并
//
// 只合并本地表中已存在的表项（即曾经查询过的地址），避免把整个
// 内核邻居表搬进有容量限制的缓存。
func (t *Table) SyncKernel() error {
	entries, err := t.kernel()
	if err != nil {
		return err
	}
	for _, ke := range entries {
		if !ke.State.Valid() || len(ke.HardwareAddr) == 0 {
			continue
		}
		cur, ok := t.Get(ke.IfIndex, ke.IP)
		if !ok || cur.State == types.NeighborPermanent {
			continue
		}
		t.Update(ke.IfIndex, ke.IP, ke.HardwareAddr, types.NeighborReachable)
	}
	return nil
}

// ReadProcARP 通过 procfs 读取 <mount>/net/arp（仅 IPv4）
//
// 设备名到接口索引的映射由 ifindex 提供；无法映射的表项被跳过。
func ReadProcARP(mount string, ifindex func(dev string) (int, bool)) ([]KernelEntry, error) {
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, err
	}
	arp, err := fs.GatherARPEntries()
	if err != nil {
		return nil, err
	}

	out := make([]KernelEntry, 0, len(arp))
	for _, a := range arp {
		e, ok := fromARPEntry(a, ifindex)
		if ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// fromARPEntry 把 ATF_* 标志映射为邻居状态
func fromARPEntry(a procfs.ARPEntry, ifindex func(dev string) (int, bool)) (KernelEntry, bool) {
	ip, ok := netip.AddrFromSlice(a.IPAddr)
	if !ok {
		return KernelEntry{}, false
	}
	idx, ok := ifindex(a.Device)
	if !ok {
		return KernelEntry{}, false
	}

	state := types.NeighborIncomplete
	switch {
	case a.Flags&procfs.ATFPermanent != 0:
		state = types.NeighborPermanent
	case a.IsComplete():
		state = types.NeighborReachable
	}
	return KernelEntry{
		IfIndex:      idx,
		Device:       a.Device,
		IP:           ip.Unmap(),
		HardwareAddr: a.HWAddr,
		State:        state,
	}, true
}

func ifindexByName(dev string) (int, bool) {
	iface, err := net.InterfaceByName(dev)
	if err != nil {
		return 0, false
	}
	return iface.Index, true
}
