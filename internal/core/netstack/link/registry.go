package link

import (
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("core/netstack/link")

// Source 枚举接口
type Source func() ([]types.Link, error)

// Registry 接口表
type Registry struct {
	mu      sync.RWMutex
	byIndex map[int]types.Link
	source  Source
}

var _ interfaces.InterfaceRegistry = (*Registry)(nil)

// NewRegistry 创建读取主机接口的接口表
func NewRegistry() *Registry {
	return NewRegistryWithSource(HostLinks)
}

// NewRegistryWithSource 使用指定来源创建接口表
func NewRegistryWithSource(src Source) *Registry {
	return &Registry{
		byIndex: make(map[int]types.Link),
		source:  src,
	}
}

// NewStaticRegistry 创建固定内容的接口表，Refresh 不会改变它
func NewStaticRegistry(links ...types.Link) *Registry {
	r := NewRegistryWithSource(func() ([]types.Link, error) {
		return links, nil
	})
	_, _ = r.Refresh()
	return r
}

// Refresh 重新枚举接口，返回接口集合或地址是否有变化
func (r *Registry) Refresh() (bool, error) {
	links, err := r.source()
	if err != nil {
		return false, fmt.Errorf("enumerate interfaces: %w", err)
	}

	next := make(map[int]types.Link, len(links))
	for _, l := range links {
		next[l.Index] = l
	}

	r.mu.Lock()
	changed := !sameLinks(r.byIndex, next)
	r.byIndex = next
	r.mu.Unlock()

	if changed {
		logger.Debug("接口表已更新", "links", len(next))
	}
	return changed, nil
}

// LinkByIndex 按索引查找接口
func (r *Registry) LinkByIndex(ifindex int) (types.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byIndex[ifindex]
	if !ok {
		return types.Link{}, fmt.Errorf("%w: ifindex %d", types.ErrDeviceUnavailable, ifindex)
	}
	return l, nil
}

// LinkByName 按名称查找接口
func (r *Registry) LinkByName(name string) (types.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.byIndex {
		if l.Name == name {
			return l, nil
		}
	}
	return types.Link{}, fmt.Errorf("%w: %s", types.ErrDeviceUnavailable, name)
}

// LinkByAddr 查找配置了 ip 的接口
//
// 多个接口配置同一地址时返回索引最小的一个。
func (r *Registry) LinkByAddr(ip netip.Addr) (types.Link, error) {
	for _, l := range r.Links() {
		if l.HasAddr(ip) {
			return l, nil
		}
	}
	return types.Link{}, fmt.Errorf("%w: %s", types.ErrAddrNotAvailable, ip)
}

// Links 按索引排序返回所有接口
func (r *Registry) Links() []types.Link {
	r.mu.RLock()
	out := make([]types.Link, 0, len(r.byIndex))
	for _, l := range r.byIndex {
		out = append(out, l)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Loopback 返回第一个回环接口
func (r *Registry) Loopback() (types.Link, bool) {
	for _, l := range r.Links() {
		if l.IsLoopback() {
			return l, true
		}
	}
	return types.Link{}, false
}

func sameLinks(a, b map[int]types.Link) bool {
	if len(a) != len(b) {
		return false
	}
	for idx, la := range a {
		lb, ok := b[idx]
		if !ok || la.Name != lb.Name || la.Flags != lb.Flags || len(la.Addrs) != len(lb.Addrs) {
			return false
		}
		for i := range la.Addrs {
			if la.Addrs[i] != lb.Addrs[i] {
				return false
			}
		}
	}
	return true
}

// ============================================================================
//                              主机接口
// ============================================================================

var etherBroadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// HostLinks 从 net.Interfaces 枚举主机接口
func HostLinks() ([]types.Link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	links := make([]types.Link, 0, len(ifaces))
	for _, iface := range ifaces {
		links = append(links, fromInterface(iface))
	}
	return links, nil
}

func fromInterface(iface net.Interface) types.Link {
	l := types.Link{
		Index:        iface.Index,
		Name:         iface.Name,
		HardwareAddr: iface.HardwareAddr,
		MTU:          iface.MTU,
		Flags:        iface.Flags,
		VlanID:       ParseVlanID(iface.Name),
	}

	switch {
	case iface.Flags&net.FlagLoopback != 0:
		l.Type = types.LinkTypeLoopback
		if len(l.HardwareAddr) == 0 {
			l.HardwareAddr = make(net.HardwareAddr, 6)
		}
	case len(iface.HardwareAddr) == 6:
		l.Type = types.LinkTypeEther
		l.Broadcast = etherBroadcast
	case len(iface.HardwareAddr) == 20:
		l.Type = types.LinkTypeInfiniband
	default:
		l.Type = types.LinkTypeNone
		l.NoARP = true
	}
	applySysfs(&l)

	if addrs, err := iface.Addrs(); err == nil {
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip, ok := netip.AddrFromSlice(ipn.IP)
			if !ok {
				continue
			}
			bits, _ := ipn.Mask.Size()
			ip = ip.Unmap()
			if ip.Is4() && bits > 32 {
				bits -= 96
			}
			l.Addrs = append(l.Addrs, netip.PrefixFrom(ip, bits))
		}
	}
	return l
}

// ParseVlanID 从 "<parent>.<vid>" 形式的接口名解析 VLAN 标识
func ParseVlanID(name string) uint16 {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return 0
	}
	vid, err := strconv.ParseUint(name[i+1:], 10, 16)
	if err != nil || vid == 0 || vid > 4094 {
		return 0
	}
	return uint16(vid)
}
