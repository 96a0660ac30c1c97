//go:build linux

package neigh

import (
	"fmt"
	"net/netip"

	"github.com/prometheus/procfs"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// HostKernelSource 通过 netlink 导出内核邻居表，失败时读取 /proc/net/arp
func HostKernelSource() ([]KernelEntry, error) {
	entries, err := dumpNeighbors()
	if err == nil {
		return entries, nil
	}
	logger.Debug("netlink 邻居导出失败，改用 /proc/net/arp", "err", err)
	return ReadProcARP(procfs.DefaultMountPoint, ifindexByName)
}

func dumpNeighbors() ([]KernelEntry, error) {
	neighs, err := netlink.NeighList(0, netlink.FAMILY_ALL)
	if err != nil {
		return nil, fmt.Errorf("netlink neigh list: %w", err)
	}

	out := make([]KernelEntry, 0, len(neighs))
	for _, n := range neighs {
		if e, ok := fromNeigh(n); ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// fromNeigh 转换 RTM_NEWNEIGH 表项，跳过没有目的地址的表项
func fromNeigh(n netlink.Neigh) (KernelEntry, bool) {
	ip, ok := netip.AddrFromSlice(n.IP)
	if !ok {
		return KernelEntry{}, false
	}
	return KernelEntry{
		IfIndex:      n.LinkIndex,
		IP:           ip.Unmap(),
		HardwareAddr: n.HardwareAddr,
		State:        nudState(n.State),
	}, true
}

// nudState 把内核 NUD_* 状态映射为邻居状态
func nudState(s int) types.NeighborState {
	switch {
	case s&unix.NUD_PERMANENT != 0, s&unix.NUD_NOARP != 0:
		return types.NeighborPermanent
	case s&unix.NUD_REACHABLE != 0:
		return types.NeighborReachable
	case s&(unix.NUD_STALE|unix.NUD_DELAY|unix.NUD_PROBE) != 0:
		return types.NeighborStale
	default:
		return types.NeighborIncomplete
	}
}
