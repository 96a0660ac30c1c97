package neigh

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// Start 启动探测协程与内核同步循环
func (t *Table) Start(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return types.ErrAlreadyStarted
	}
	// 后台循环的生命周期独立于启动 ctx
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(1)
	go t.probeLoop(ctx)

	if t.cfg.KernelSync && t.kernel != nil {
		t.wg.Add(1)
		go t.syncLoop(ctx)
	}
	return nil
}

// Stop 停止后台循环
func (t *Table) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	t.wg.Wait()
	return nil
}

// LinkResolver 按名称查找接口
type LinkResolver interface {
	LinkByName(name string) (types.Link, error)
}

// LoadStatic 安装配置中的静态邻居
func (t *Table) LoadStatic(static []config.StaticNeighbor, links LinkResolver) error {
	for _, s := range static {
		l, err := links.LinkByName(s.Interface)
		if err != nil {
			return fmt.Errorf("static neighbor %s: %w", s.IP, err)
		}
		ip, err := netip.ParseAddr(s.IP)
		if err != nil {
			return fmt.Errorf("static neighbor %q: %w", s.IP, err)
		}
		hw, err := net.ParseMAC(s.MAC)
		if err != nil {
			return fmt.Errorf("static neighbor %s: %w", s.IP, err)
		}
		t.Update(l.Index, ip, hw, types.NeighborPermanent)
	}
	return nil
}
