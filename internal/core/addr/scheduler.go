package addr

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("core/addr")

// Scheduler 异步地址解析调度器
//
// 持有按截止时间排序的请求队列和唯一的后台处理 goroutine。
// 同一时刻最多只有一轮处理在运行。
type Scheduler struct {
	engine  *Engine
	clock   clock.Clock
	cfg     Config
	metrics *Metrics

	// mu 保护队列、请求的可变字段和唤醒状态
	mu     sync.Mutex
	queue  *deadlineQueue
	wakeAt time.Time
	armed  bool

	// stopped Stop 之后拒绝新请求，Start 时清除
	stopped bool

	// rearm 通知后台 goroutine 唤醒时间已变化
	rearm chan struct{}

	// self 同步查询使用的内部客户端
	self *Client

	lifeMu  sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

var _ interfaces.AddressResolver = (*Scheduler)(nil)

// Option 调度器选项
type Option func(*Scheduler)

// WithClock 设置时间源
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithMetrics 设置指标收集器
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler 创建调度器
func NewScheduler(engine *Engine, cfg Config, opts ...Option) *Scheduler {
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = DefaultConfig().DefaultTimeout
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = DefaultConfig().SyncTimeout
	}

	s := &Scheduler{
		engine: engine,
		clock:  clock.New(),
		cfg:    cfg,
		queue:  newDeadlineQueue(),
		rearm:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine 返回解析引擎
func (s *Scheduler) Engine() *Engine {
	return s.engine
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动后台处理并注册内部客户端
func (s *Scheduler) Start(_ context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if s.started {
		return types.ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.done = make(chan struct{})
	s.self = newClient()
	s.started = true
	s.metrics.clientRegistered()

	go s.loop(s.ctx, s.done)

	// 启动前提交的请求
	s.mu.Lock()
	s.stopped = false
	if at, ok := s.queue.nextDeadline(); ok {
		s.setTimeoutLocked(at)
	}
	s.mu.Unlock()

	logger.Info("地址解析调度器已启动")
	return nil
}

// Stop 停止后台处理
//
// 仍在队列中的请求以 Canceled 完成回调，然后注销内部客户端。
func (s *Scheduler) Stop(ctx context.Context) error {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()

	if !s.started {
		return nil
	}
	s.started = false

	// 先拒绝新请求，之后排空的队列里就是全部已接受的请求
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.done

	s.mu.Lock()
	now := s.clock.Now()
	pending := s.queue.len()
	s.queue.each(func(r *Request) {
		r.status = types.StatusCanceled
		r.err = types.ErrCanceled
		r.deadline = now
	})
	s.mu.Unlock()
	s.process(context.Background())

	self := s.self
	if self.release() {
		s.metrics.clientUnregistered()
	}
	if err := self.wait(ctx); err != nil {
		return fmt.Errorf("wait for sync requests: %w", err)
	}

	logger.Info("地址解析调度器已停止", "canceled", pending)
	return nil
}

// baseContext 返回后台解析使用的 context
func (s *Scheduler) baseContext() context.Context {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.ctx != nil && s.started {
		return s.ctx
	}
	return context.Background()
}

// selfClient 返回内部客户端，未启动时返回 nil
func (s *Scheduler) selfClient() *Client {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if !s.started {
		return nil
	}
	return s.self
}

// ============================================================================
//                              公共操作
// ============================================================================

// Submit 提交异步解析请求
//
// 先同步尝试一次：成功则以截止时间 now 入队，回调在下一轮后台处理中执行；
// 邻居未解析则以 now + Timeout 入队；其他错误同步返回且不回调。
func (s *Scheduler) Submit(ac interfaces.AddressClient, req interfaces.ResolveRequest) (interfaces.RequestHandle, error) {
	c, ok := ac.(*Client)
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: unknown client", types.ErrInvalidArgument)
	}
	return s.submit(c, req)
}

func (s *Scheduler) submit(c *Client, req interfaces.ResolveRequest) (*Request, error) {
	if req.Callback == nil {
		return nil, fmt.Errorf("%w: nil callback", types.ErrInvalidArgument)
	}

	src := types.Unspecified(req.Dst.Family)
	if req.Src != nil {
		if req.Src.Family != req.Dst.Family {
			return nil, fmt.Errorf("%w: source family %s does not match destination family %s",
				types.ErrInvalidArgument, req.Src.Family, req.Dst.Family)
		}
		src = *req.Src
	}

	if s.isStopped() {
		return nil, types.ErrNotStarted
	}
	if err := c.get(); err != nil {
		return nil, err
	}

	r := newRequest(s, c, src, req.Dst, req.Hint, req.Callback)

	var err error
	r.src, r.addr, err = s.engine.Resolve(s.baseContext(), r.src, r.dst, r.addr, true)
	now := s.clock.Now()
	switch {
	case err == nil:
		r.status = types.StatusSucceeded
		r.deadline = now
	case IsRetry(err):
		timeout := req.Timeout
		if timeout <= 0 {
			timeout = s.cfg.DefaultTimeout
		}
		r.status = types.StatusNeedsNeighbor
		r.deadline = now.Add(timeout)
	default:
		c.put()
		s.metrics.rejected()
		logger.Debug("地址解析失败", "dst", req.Dst, "err", err)
		return nil, err
	}

	if err := s.enqueue(r); err != nil {
		c.put()
		return nil, err
	}
	s.metrics.submitted()
	logger.Debug("地址解析请求已排队",
		"id", log.TruncateID(r.id, 8),
		"dst", r.dst,
		"status", r.status,
		"deadline", r.deadline)
	return r, nil
}

// Cancel 取消仍在队列中的请求
//
// 请求被标记为 Canceled 并移到队首，后台立即处理。
// 已完成或不属于本调度器的请求被忽略。
func (s *Scheduler) Cancel(h interfaces.RequestHandle) {
	r, ok := h.(*Request)
	if !ok || r == nil || r.sched != s {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !r.queued() {
		return
	}
	now := s.clock.Now()
	r.status = types.StatusCanceled
	r.err = types.ErrCanceled
	r.deadline = now
	s.queue.moveToFront(r)
	s.setTimeoutLocked(now)
}

// ResolveRoute 只解析路由，不解析邻居，不排队
func (s *Scheduler) ResolveRoute(ctx context.Context, src *types.SockAddr, dst types.SockAddr, hint types.DevAddr) (types.SockAddr, types.DevAddr, error) {
	in := types.Unspecified(dst.Family)
	if src != nil {
		if src.Family != dst.Family {
			return in, hint, fmt.Errorf("%w: source family %s does not match destination family %s",
				types.ErrInvalidArgument, src.Family, dst.Family)
		}
		in = *src
	}
	return s.engine.Resolve(ctx, in, dst, hint, false)
}

// OnNeighborUpdate 任意邻居变为有效时调用，立即唤醒后台处理
func (s *Scheduler) OnNeighborUpdate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTimeoutLocked(s.clock.Now())
}

// Pending 队列中的请求数
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// ============================================================================
//                              后台处理
// ============================================================================

// enqueue 插入队列，成为队首时重设唤醒时间；已停止时返回 ErrNotStarted
func (s *Scheduler) enqueue(r *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return types.ErrNotStarted
	}
	if s.queue.push(r) {
		s.setTimeoutLocked(r.deadline)
	}
	s.metrics.setQueueDepth(s.queue.len())
	return nil
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// setTimeoutLocked 把下一次唤醒设置为 at，覆盖之前的设置
func (s *Scheduler) setTimeoutLocked(at time.Time) {
	s.wakeAt = at
	s.armed = true
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

// loop 后台 goroutine：等待唤醒时间到期后执行一轮处理
func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := s.clock.Timer(time.Hour)
	stopTimer(timer)

	for {
		select {
		case <-ctx.Done():
			stopTimer(timer)
			return

		case <-s.rearm:
			s.mu.Lock()
			at, armed := s.wakeAt, s.armed
			s.mu.Unlock()
			if !armed {
				continue
			}
			stopTimer(timer)
			if d := at.Sub(s.clock.Now()); d > 0 {
				timer.Reset(d)
				continue
			}
			s.process(ctx)

		case <-timer.C:
			s.process(ctx)
		}
	}
}

func stopTimer(t *clock.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// process 执行一轮处理
//
// 对所有等待邻居的请求重新解析，完成的请求移入完成列表；
// 释放锁后按完成顺序回调并释放客户端引用。
func (s *Scheduler) process(ctx context.Context) {
	var done []*Request

	s.mu.Lock()
	s.armed = false
	now := s.clock.Now()

	s.queue.each(func(r *Request) {
		if r.status == types.StatusNeedsNeighbor {
			src, addr, err := s.engine.Resolve(ctx, r.src, r.dst, r.addr, true)
			switch {
			case err == nil:
				r.src, r.addr = src, addr
				r.status = types.StatusSucceeded
			case IsRetry(err):
				if now.Before(r.deadline) {
					return
				}
				r.status = types.StatusTimedOut
				r.err = types.ErrTimedOut
			default:
				r.status = types.StatusFailed
				r.err = err
			}
		}
		s.queue.remove(r)
		done = append(done, r)
	})

	if at, ok := s.queue.nextDeadline(); ok {
		s.setTimeoutLocked(at)
	}
	s.metrics.setQueueDepth(s.queue.len())
	s.mu.Unlock()

	for _, r := range done {
		s.complete(r)
	}
}

// complete 回调并释放客户端引用（不持有锁）
func (s *Scheduler) complete(r *Request) {
	res := r.result()
	r.callback(res)
	r.client.put()

	s.metrics.completed(res.Status, s.clock.Since(r.submitted))
	if res.Status == types.StatusSucceeded {
		logger.Debug("地址解析完成",
			"id", log.TruncateID(r.id, 8),
			"dst", r.dst,
			"ifindex", res.Addr.BoundIfIndex)
	} else {
		logger.Debug("地址解析结束",
			"id", log.TruncateID(r.id, 8),
			"dst", r.dst,
			"status", res.Status,
			"err", res.Err)
	}
}
