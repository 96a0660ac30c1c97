package netmon

import (
	"context"
	"net"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
)

var logger = log.Logger("core/netmon")

// subscriberBuf 订阅通道容量
const subscriberBuf = 8

// StateFunc 读取当前接口快照
type StateFunc func() (interfaces.NetworkState, error)

// Config 监控配置
type Config struct {
	PollInterval     time.Duration
	FastPollInterval time.Duration
	FastPollDuration time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		PollInterval:     2 * time.Second,
		FastPollInterval: 500 * time.Millisecond,
		FastPollDuration: 10 * time.Second,
	}
}

// Monitor 轮询式接口监控器
type Monitor struct {
	cfg   Config
	clock clock.Clock
	read  StateFunc

	subsMu sync.Mutex
	subs   []chan interfaces.NetworkChangeEvent

	stateMu   sync.RWMutex
	state     interfaces.NetworkState
	fastUntil time.Time

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var _ interfaces.NetworkMonitor = (*Monitor)(nil)

// Option 监控器选项
type Option func(*Monitor)

// WithClock 设置时间源
func WithClock(c clock.Clock) Option {
	return func(m *Monitor) { m.clock = c }
}

// WithStateFunc 设置快照来源，默认 HostState
func WithStateFunc(fn StateFunc) Option {
	return func(m *Monitor) { m.read = fn }
}

// NewMonitor 创建监控器并读取初始快照
func NewMonitor(cfg Config, opts ...Option) *Monitor {
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.FastPollInterval <= 0 {
		cfg.FastPollInterval = def.FastPollInterval
	}

	m := &Monitor{cfg: cfg, clock: clock.New(), read: HostState}
	for _, opt := range opts {
		opt(m)
	}

	st, err := m.read()
	if err != nil {
		logger.Warn("读取初始接口快照失败", "err", err)
	}
	m.state = st
	return m
}

// Start 启动轮询，重复调用无效
func (m *Monitor) Start(_ context.Context) error {
	m.runMu.Lock()
	defer m.runMu.Unlock()

	if m.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.loop(ctx, m.done)

	logger.Info("网络监控已启动", "poll_interval", m.cfg.PollInterval)
	return nil
}

// Stop 停止轮询并关闭全部订阅通道
func (m *Monitor) Stop() error {
	m.runMu.Lock()
	if m.cancel == nil {
		m.runMu.Unlock()
		return nil
	}
	m.cancel()
	<-m.done
	m.cancel = nil
	m.runMu.Unlock()

	m.subsMu.Lock()
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
	m.subsMu.Unlock()

	logger.Info("网络监控已停止")
	return nil
}

// Subscribe 订阅变化事件
func (m *Monitor) Subscribe() <-chan interfaces.NetworkChangeEvent {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	ch := make(chan interfaces.NetworkChangeEvent, subscriberBuf)
	m.subs = append(m.subs, ch)
	return ch
}

// NotifyChange 立即检查一次
func (m *Monitor) NotifyChange() {
	m.check()
}

// CurrentState 最近一次快照
func (m *Monitor) CurrentState() interfaces.NetworkState {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

// ============================================================================
//                              轮询
// ============================================================================

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(m.interval()):
			m.check()
		}
	}
}

// interval 最近一次变化后的 FastPollDuration 内使用快速轮询
func (m *Monitor) interval() time.Duration {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	if m.clock.Now().Before(m.fastUntil) {
		return m.cfg.FastPollInterval
	}
	return m.cfg.PollInterval
}

// check 读取快照，与上一次不同则通知订阅者，返回是否变化
func (m *Monitor) check() bool {
	next, err := m.read()
	if err != nil {
		logger.Warn("读取接口快照失败", "err", err)
		return false
	}

	m.stateMu.Lock()
	evt, changed := diff(m.state, next)
	if changed {
		m.state = next
		m.fastUntil = m.clock.Now().Add(m.cfg.FastPollDuration)
	}
	m.stateMu.Unlock()
	if !changed {
		return false
	}

	evt.Timestamp = m.clock.Now()
	logger.Info("检测到接口变化",
		"type", evt.Type,
		"added", evt.Added,
		"removed", evt.Removed,
		"changed", evt.Changed)

	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- evt:
		default:
			logger.Warn("订阅者通道已满，丢弃接口变化事件")
		}
	}
	return true
}

// diff 按接口索引比较两次快照
//
// 接口增删或启用状态变化为 Major，只有地址变化为 Minor。
func diff(prev, next interfaces.NetworkState) (interfaces.NetworkChangeEvent, bool) {
	old := make(map[int]interfaces.NetworkInterface, len(prev.Interfaces))
	for _, i := range prev.Interfaces {
		old[i.Index] = i
	}

	var evt interfaces.NetworkChangeEvent
	for _, n := range next.Interfaces {
		o, ok := old[n.Index]
		delete(old, n.Index)
		switch {
		case !ok:
			evt.Added = append(evt.Added, n.Index)
			evt.Type = interfaces.NetworkChangeMajor
		case o.Up != n.Up || o.Name != n.Name:
			evt.Changed = append(evt.Changed, n.Index)
			evt.Type = interfaces.NetworkChangeMajor
		case !samePrefixes(o.Addrs, n.Addrs):
			evt.Changed = append(evt.Changed, n.Index)
		}
	}
	for idx := range old {
		evt.Removed = append(evt.Removed, idx)
		evt.Type = interfaces.NetworkChangeMajor
	}
	slices.Sort(evt.Removed)

	return evt, len(evt.Added)+len(evt.Removed)+len(evt.Changed) > 0
}

func samePrefixes(a, b []netip.Prefix) bool {
	if len(a) != len(b) {
		return false
	}
	x := slices.Clone(a)
	y := slices.Clone(b)
	less := func(p, q netip.Prefix) int {
		if c := p.Addr().Compare(q.Addr()); c != 0 {
			return c
		}
		return p.Bits() - q.Bits()
	}
	slices.SortFunc(x, less)
	slices.SortFunc(y, less)
	return slices.Equal(x, y)
}

// HostState 从 net.Interfaces 读取快照，包含未启用的接口
func HostState() (interfaces.NetworkState, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return interfaces.NetworkState{}, err
	}

	var st interfaces.NetworkState
	for _, iface := range ifaces {
		ni := interfaces.NetworkInterface{
			Index:    iface.Index,
			Name:     iface.Name,
			Up:       iface.Flags&net.FlagUp != 0,
			Loopback: iface.Flags&net.FlagLoopback != 0,
		}
		addrs, err := iface.Addrs()
		if err != nil {
			logger.Debug("读取接口地址失败", "iface", iface.Name, "err", err)
		}
		for _, a := range addrs {
			ipn, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			ip, ok := netip.AddrFromSlice(ipn.IP)
			if !ok {
				continue
			}
			ones, _ := ipn.Mask.Size()
			ip = ip.Unmap()
			if ip.Is4() && ones > 32 {
				ones -= 96
			}
			ni.Addrs = append(ni.Addrs, netip.PrefixFrom(ip, ones))
		}
		st.Interfaces = append(st.Interfaces, ni)
	}
	return st, nil
}
