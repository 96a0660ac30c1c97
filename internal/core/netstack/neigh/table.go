package neigh

import (
	"bytes"
	"context"
	"net"
	"net/netip"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("core/netstack/neigh")

// staleFactor 过期表项在缓存中保留的时长（相对 ReachableTime）
const staleFactor = 4

// probeQueueSize 待探测队列长度，满时丢弃新的探测
const probeQueueSize = 256

// Config 邻居表配置
type Config struct {
	MaxEntries         int
	ReachableTime      time.Duration
	RetransTime        time.Duration
	KernelSync         bool
	KernelSyncInterval time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxEntries:         1024,
		ReachableTime:      30 * time.Second,
		RetransTime:        time.Second,
		KernelSync:         true,
		KernelSyncInterval: 200 * time.Millisecond,
	}
}

type key struct {
	ifindex int
	ip      netip.Addr
}

// Entry 邻居表项
type Entry struct {
	IfIndex      int
	IP           netip.Addr
	HardwareAddr net.HardwareAddr
	State        types.NeighborState
	Updated      time.Time

	lastProbe time.Time
	probes    int
}

type probeJob struct {
	link types.Link
	ip   netip.Addr
}

// Table 邻居表
type Table struct {
	cfg   Config
	clock clock.Clock

	mu      sync.Mutex
	cache   *expirable.LRU[key, *Entry]
	static  map[key]net.HardwareAddr
	emitter interfaces.Emitter

	prober     Prober
	kernel     KernelSource
	probeQueue chan probeJob

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ interfaces.NeighborService = (*Table)(nil)

// Option 邻居表选项
type Option func(*Table)

// WithClock 设置时钟
func WithClock(c clock.Clock) Option {
	return func(t *Table) { t.clock = c }
}

// WithProber 设置探测器
func WithProber(p Prober) Option {
	return func(t *Table) { t.prober = p }
}

// WithKernelSource 设置内核邻居表来源
func WithKernelSource(src KernelSource) Option {
	return func(t *Table) { t.kernel = src }
}

// WithEmitter 设置邻居更新事件发射器
func WithEmitter(e interfaces.Emitter) Option {
	return func(t *Table) { t.emitter = e }
}

// NewTable 创建邻居表
func NewTable(cfg Config, opts ...Option) *Table {
	def := DefaultConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.ReachableTime <= 0 {
		cfg.ReachableTime = def.ReachableTime
	}
	if cfg.RetransTime <= 0 {
		cfg.RetransTime = def.RetransTime
	}
	if cfg.KernelSyncInterval <= 0 {
		cfg.KernelSyncInterval = def.KernelSyncInterval
	}

	t := &Table{
		cfg:        cfg,
		clock:      clock.New(),
		static:     make(map[key]net.HardwareAddr),
		prober:     NewUDPProber(),
		kernel:     HostKernelSource,
		probeQueue: make(chan probeJob, probeQueueSize),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.cache = expirable.NewLRU[key, *Entry](cfg.MaxEntries, nil, cfg.ReachableTime*staleFactor)
	return t
}

// SetEmitter 设置邻居更新事件发射器
func (t *Table) SetEmitter(e interfaces.Emitter) {
	t.mu.Lock()
	t.emitter = e
	t.mu.Unlock()
}

// ============================================================================
//                              查询
// ============================================================================

// Lookup 返回 ip 在 link 上的有效链路层地址
//
// 未命中时返回 false，并在距上次探测超过 RetransTime 时排队一次探测。
func (t *Table) Lookup(link types.Link, ip netip.Addr) (net.HardwareAddr, bool) {
	k := key{ifindex: link.Index, ip: ip.Unmap()}
	now := t.clock.Now()

	t.mu.Lock()
	if hw, ok := t.static[k]; ok {
		t.mu.Unlock()
		return cloneHW(hw), true
	}

	e, ok := t.cache.Get(k)
	if ok && e.State == types.NeighborReachable {
		if now.Sub(e.Updated) < t.cfg.ReachableTime {
			hw := cloneHW(e.HardwareAddr)
			t.mu.Unlock()
			return hw, true
		}
		e.State = types.NeighborStale
	}
	if !ok {
		e = &Entry{IfIndex: k.ifindex, IP: k.ip, State: types.NeighborIncomplete, Updated: now}
		t.cache.Add(k, e)
	}

	probe := e.lastProbe.IsZero() || now.Sub(e.lastProbe) >= t.cfg.RetransTime
	if probe {
		e.lastProbe = now
		e.probes++
	}
	t.mu.Unlock()

	if probe {
		t.enqueueProbe(link, k.ip)
	}
	return nil, false
}

// Get 返回表项快照
func (t *Table) Get(ifindex int, ip netip.Addr) (Entry, bool) {
	k := key{ifindex: ifindex, ip: ip.Unmap()}

	t.mu.Lock()
	defer t.mu.Unlock()

	if hw, ok := t.static[k]; ok {
		return Entry{IfIndex: ifindex, IP: k.ip, HardwareAddr: cloneHW(hw), State: types.NeighborPermanent}, true
	}
	e, ok := t.cache.Peek(k)
	if !ok {
		return Entry{}, false
	}
	out := *e
	out.HardwareAddr = cloneHW(e.HardwareAddr)
	return out, true
}

// Entries 返回所有动态表项快照
func (t *Table) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	vals := t.cache.Values()
	out := make([]Entry, 0, len(vals))
	for _, e := range vals {
		c := *e
		c.HardwareAddr = cloneHW(e.HardwareAddr)
		out = append(out, c)
	}
	return out
}

// StaticEntries 返回永久表项快照
func (t *Table) StaticEntries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Entry, 0, len(t.static))
	for k, hw := range t.static {
		out = append(out, Entry{IfIndex: k.ifindex, IP: k.ip, HardwareAddr: cloneHW(hw), State: types.NeighborPermanent})
	}
	return out
}

// Len 动态表项数量
func (t *Table) Len() int {
	return t.cache.Len()
}

// ============================================================================
//                              更新
// ============================================================================

// Update 写入邻居状态
//
// 表项从无效变为有效或链路层地址变化时发布 EvtNeighborUpdate。
func (t *Table) Update(ifindex int, ip netip.Addr, hw net.HardwareAddr, state types.NeighborState) {
	k := key{ifindex: ifindex, ip: ip.Unmap()}
	now := t.clock.Now()

	t.mu.Lock()
	if state == types.NeighborPermanent {
		t.static[k] = cloneHW(hw)
		em := t.emitter
		t.mu.Unlock()
		t.emit(em, k, hw, state, now)
		return
	}

	e, ok := t.cache.Peek(k)
	if !ok {
		e = &Entry{IfIndex: ifindex, IP: k.ip}
	}
	notify := state.Valid() && (!e.State.Valid() || !bytes.Equal(e.HardwareAddr, hw))

	e.State = state
	e.Updated = now
	if hw != nil {
		e.HardwareAddr = cloneHW(hw)
	}
	if state.Valid() {
		e.probes = 0
	}
	t.cache.Add(k, e)
	em := t.emitter
	t.mu.Unlock()

	if notify {
		t.emit(em, k, hw, state, now)
	}
}

// Delete 删除动态表项
func (t *Table) Delete(ifindex int, ip netip.Addr) {
	t.cache.Remove(key{ifindex: ifindex, ip: ip.Unmap()})
}

// Flush 清空指定接口的动态表项，ifindex 为 0 时清空全部
func (t *Table) Flush(ifindex int) {
	for _, k := range t.cache.Keys() {
		if ifindex == 0 || k.ifindex == ifindex {
			t.cache.Remove(k)
		}
	}
}

func (t *Table) emit(em interfaces.Emitter, k key, hw net.HardwareAddr, state types.NeighborState, now time.Time) {
	if em == nil {
		return
	}
	evt := types.EvtNeighborUpdate{
		IfIndex:      k.ifindex,
		IP:           k.ip,
		HardwareAddr: cloneHW(hw),
		State:        state,
		Timestamp:    now,
	}
	if err := em.Emit(evt); err != nil {
		logger.Debug("发布邻居更新失败", "ip", k.ip, "err", err)
	}
}

func cloneHW(hw net.HardwareAddr) net.HardwareAddr {
	if hw == nil {
		return nil
	}
	out := make(net.HardwareAddr, len(hw))
	copy(out, hw)
	return out
}
