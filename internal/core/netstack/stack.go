package netstack

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/link"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/neigh"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/route"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("core/netstack")

// Config 网络栈配置
type Config struct {
	Neighbor        neigh.Config
	RawARP          bool
	DiscoverGateway bool
	DefaultHopLimit int
	StaticRoutes    []config.StaticRoute
	StaticNeighbors []config.StaticNeighbor
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Neighbor:        neigh.DefaultConfig(),
		DiscoverGateway: true,
		DefaultHopLimit: route.DefaultHopLimit,
	}
}

// ConfigFromUnified 从统一配置创建网络栈配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		return DefaultConfig()
	}
	n := cfg.Neighbor
	return Config{
		Neighbor: neigh.Config{
			MaxEntries:         n.MaxEntries,
			ReachableTime:      n.ReachableTime.Duration(),
			RetransTime:        n.RetransTime.Duration(),
			KernelSync:         n.KernelSync,
			KernelSyncInterval: n.KernelSyncInterval.Duration(),
		},
		RawARP:          n.RawARP,
		DiscoverGateway: cfg.Route.DiscoverGateway,
		DefaultHopLimit: cfg.Route.DefaultHopLimit,
		StaticRoutes:    cfg.Route.Static,
		StaticNeighbors: n.Static,
	}
}

// Stack 主机网络栈
type Stack struct {
	cfg   Config
	clock clock.Clock

	links     *link.Registry
	routes    *route.Table
	neighbors *neigh.Table
	gateway   route.GatewayFunc

	bus     interfaces.EventBus
	monitor interfaces.NetworkMonitor

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	emMu    sync.Mutex
	linkEm  interfaces.Emitter
	neighEm interfaces.Emitter
}

// Option 网络栈选项
type Option func(*stackOptions)

type stackOptions struct {
	clock      clock.Clock
	linkSource link.Source
	gateway    route.GatewayFunc
	neighOpts  []neigh.Option
	bus        interfaces.EventBus
	monitor    interfaces.NetworkMonitor
}

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(o *stackOptions) { o.clock = c }
}

// WithLinkSource 设置接口来源
func WithLinkSource(src link.Source) Option {
	return func(o *stackOptions) { o.linkSource = src }
}

// WithGateway 设置默认网关探测函数
func WithGateway(fn route.GatewayFunc) Option {
	return func(o *stackOptions) { o.gateway = fn }
}

// WithNeighborOptions 追加邻居表选项
func WithNeighborOptions(opts ...neigh.Option) Option {
	return func(o *stackOptions) { o.neighOpts = append(o.neighOpts, opts...) }
}

// WithEventBus 设置事件总线
func WithEventBus(bus interfaces.EventBus) Option {
	return func(o *stackOptions) { o.bus = bus }
}

// WithMonitor 设置网络变化监控器
func WithMonitor(m interfaces.NetworkMonitor) Option {
	return func(o *stackOptions) { o.monitor = m }
}

// New 创建网络栈
func New(cfg Config, opts ...Option) *Stack {
	o := stackOptions{
		clock:      clock.New(),
		linkSource: link.HostLinks,
		gateway:    route.DiscoverGateway,
	}
	for _, opt := range opts {
		opt(&o)
	}

	prober := neigh.Prober(neigh.NewUDPProber())
	if cfg.RawARP {
		prober = neigh.FallbackProber{neigh.NewARPProber(cfg.Neighbor.RetransTime), neigh.NewUDPProber()}
	}
	neighOpts := append([]neigh.Option{neigh.WithClock(o.clock), neigh.WithProber(prober)}, o.neighOpts...)

	links := link.NewRegistryWithSource(o.linkSource)
	return &Stack{
		cfg:       cfg,
		clock:     o.clock,
		links:     links,
		routes:    route.NewTable(links, cfg.DefaultHopLimit),
		neighbors: neigh.NewTable(cfg.Neighbor, neighOpts...),
		gateway:   o.gateway,
		bus:       o.bus,
		monitor:   o.monitor,
	}
}

// Links 接口表
func (s *Stack) Links() *link.Registry { return s.links }

// Routes 路由表
func (s *Stack) Routes() *route.Table { return s.routes }

// Neighbors 邻居表
func (s *Stack) Neighbors() *neigh.Table { return s.neighbors }

// ============================================================================
//                              生命周期
// ============================================================================

// Start 加载主机网络状态并启动后台任务
func (s *Stack) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return types.ErrAlreadyStarted
	}

	if _, err := s.Refresh(); err != nil {
		return err
	}
	if err := s.neighbors.LoadStatic(s.cfg.StaticNeighbors, s.links); err != nil {
		return err
	}

	if err := s.openEmitters(); err != nil {
		return err
	}

	if err := s.neighbors.Start(ctx); err != nil {
		return multierr.Append(err, s.closeEmitters())
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	if s.monitor != nil {
		s.wg.Add(1)
		go s.watch(loopCtx, s.monitor.Subscribe())
	}

	s.started = true
	logger.Info("网络栈已启动", "links", len(s.links.Links()), "routes", len(s.routes.Routes()))
	return nil
}

// Stop 停止后台任务
func (s *Stack) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	s.cancel()
	s.wg.Wait()

	return multierr.Combine(s.neighbors.Stop(), s.closeEmitters())
}

func (s *Stack) openEmitters() error {
	if s.bus == nil {
		return nil
	}
	neighEm, err := s.bus.Emitter(new(types.EvtNeighborUpdate))
	if err != nil {
		return fmt.Errorf("neighbor update emitter: %w", err)
	}
	linkEm, err := s.bus.Emitter(new(types.EvtLinkChange))
	if err != nil {
		return multierr.Append(fmt.Errorf("link change emitter: %w", err), neighEm.Close())
	}

	s.emMu.Lock()
	s.neighEm, s.linkEm = neighEm, linkEm
	s.emMu.Unlock()
	s.neighbors.SetEmitter(neighEm)
	return nil
}

func (s *Stack) closeEmitters() error {
	s.emMu.Lock()
	defer s.emMu.Unlock()

	var err error
	if s.neighEm != nil {
		s.neighbors.SetEmitter(nil)
		err = multierr.Append(err, s.neighEm.Close())
		s.neighEm = nil
	}
	if s.linkEm != nil {
		err = multierr.Append(err, s.linkEm.Close())
		s.linkEm = nil
	}
	return err
}

// Refresh 重新枚举接口并重建主机路由、静态路由和默认路由
//
// 默认网关探测失败只记录日志，不影响其它路由。
func (s *Stack) Refresh() (bool, error) {
	changed, err := s.links.Refresh()
	if err != nil {
		return false, err
	}
	links := s.links.Links()

	s.routes.LoadHost(links)
	if err := s.routes.LoadStatic(s.cfg.StaticRoutes, s.links); err != nil {
		return changed, err
	}
	if s.cfg.DiscoverGateway {
		if err := s.routes.LoadGateway(s.gateway, links); err != nil {
			logger.Debug("未安装默认路由", "err", err)
		}
	}
	return changed, nil
}

// watch 处理网络变化事件
func (s *Stack) watch(ctx context.Context, ch <-chan interfaces.NetworkChangeEvent) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			s.handleChange(evt)
		}
	}
}

func (s *Stack) handleChange(evt interfaces.NetworkChangeEvent) {
	changed, err := s.Refresh()
	if err != nil {
		logger.Warn("刷新网络栈失败", "err", err)
		return
	}

	typ := types.LinkChangeMinor
	if evt.Type == interfaces.NetworkChangeMajor {
		typ = types.LinkChangeMajor
		for _, idx := range evt.Removed {
			s.neighbors.Flush(idx)
		}
		s.pruneNeighbors()
	}
	if !changed && typ == types.LinkChangeMinor {
		return
	}

	s.emMu.Lock()
	em := s.linkEm
	s.emMu.Unlock()
	if em == nil {
		return
	}

	links := s.links.Links()
	if err := em.Emit(types.EvtLinkChange{
		Type:      typ,
		Links:     len(links),
		Timestamp: s.clock.Now(),
	}); err != nil {
		logger.Debug("发布链路变化失败", "err", err)
	}
	logger.Info("网络接口变化", "type", typ, "links", len(links))
}

// pruneNeighbors 删除已不存在接口上的邻居表项
func (s *Stack) pruneNeighbors() {
	for _, e := range s.neighbors.Entries() {
		if _, err := s.links.LinkByIndex(e.IfIndex); err != nil {
			s.neighbors.Delete(e.IfIndex, e.IP)
		}
	}
}
