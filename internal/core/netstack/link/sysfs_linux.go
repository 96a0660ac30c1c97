//go:build linux

package link

import (
	"github.com/prometheus/procfs/sysfs"
	"golang.org/x/sys/unix"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// sysfsMount sysfs 挂载点，测试中可替换
var sysfsMount = sysfs.DefaultMountPoint

// applySysfs 从 /sys/class/net/<name> 读取链路类型、IFF_NOARP 和广播地址
//
// 读取失败时保持 net.Interface 给出的值。
func applySysfs(l *types.Link) {
	fs, err := sysfs.NewFS(sysfsMount)
	if err != nil {
		return
	}
	nc, err := fs.NetClassByIface(l.Name)
	if err != nil {
		logger.Debug("读取接口 sysfs 属性失败", "link", l.Name, "err", err)
		return
	}

	if nc.Type != nil {
		l.Type = linkType(*nc.Type)
	}
	if nc.Flags != nil {
		l.NoARP = *nc.Flags&unix.IFF_NOARP != 0
	}
	if l.Type == types.LinkTypeInfiniband && nc.Broadcast != "" {
		if hw, err := parseHW(nc.Broadcast); err == nil {
			l.Broadcast = hw
		}
	}
}

// linkType 把 ARPHRD_* 映射为链路类型
func linkType(arphrd int64) types.LinkType {
	switch arphrd {
	case unix.ARPHRD_ETHER:
		return types.LinkTypeEther
	case unix.ARPHRD_INFINIBAND:
		return types.LinkTypeInfiniband
	case unix.ARPHRD_LOOPBACK:
		return types.LinkTypeLoopback
	case unix.ARPHRD_NONE:
		return types.LinkTypeNone
	default:
		return types.LinkType(arphrd)
	}
}
