package ibaddr

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/addr"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("ibaddr")

// stopTimeout Close 等待组件停止的时长
const stopTimeout = 10 * time.Second

// L2Info 同步查询返回的二层信息
type L2Info = addr.L2Info

// Resolver 地址解析器门面
//
// 聚合调度器、网络栈与事件总线，由 Fx 组装。
type Resolver struct {
	cfg      *config.Config
	app      *fx.App
	gatherer prometheus.Gatherer

	// 由 Fx 注入
	scheduler *addr.Scheduler

	mu      sync.Mutex
	started bool
	closed  bool
}

var _ interfaces.AddressResolver = (*Resolver)(nil)

// New 创建解析器，不启动后台任务
func New(opts ...Option) (*Resolver, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	cfg, err := o.resolveConfig()
	if err != nil {
		return nil, err
	}

	reg := o.registerer
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	r := &Resolver{cfg: cfg, gatherer: gatherer}
	r.app = buildFxApp(o, cfg, reg, r)
	if err := r.app.Err(); err != nil {
		return nil, fmt.Errorf("build resolver: %w", err)
	}
	return r, nil
}

// Start 启动网络栈与调度器
func (r *Resolver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClientClosed
	}
	if r.started {
		return ErrAlreadyStarted
	}
	if err := r.app.Start(ctx); err != nil {
		return fmt.Errorf("start resolver: %w", err)
	}
	r.started = true
	logger.Info("地址解析器已启动")
	return nil
}

// Close 停止所有组件，未完成的请求以 ErrCanceled 结束
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	if !r.started {
		return nil
	}
	r.started = false

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var err error
	if stopErr := r.app.Stop(ctx); stopErr != nil {
		err = multierr.Append(err, fmt.Errorf("stop resolver: %w", stopErr))
	}
	logger.Info("地址解析器已关闭")
	return err
}

func (r *Resolver) running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Config 返回生效的配置
func (r *Resolver) Config() *config.Config {
	return r.cfg
}

// Gatherer 返回指标采集器，使用外部非 Gatherer 注册器时为 nil
func (r *Resolver) Gatherer() prometheus.Gatherer {
	return r.gatherer
}

// Pending 排队中的请求数量
func (r *Resolver) Pending() int {
	return r.scheduler.Pending()
}

// ============================================================================
//                              解析操作
// ============================================================================

// RegisterClient 注册客户端
func (r *Resolver) RegisterClient() AddressClient {
	return r.scheduler.RegisterClient()
}

// UnregisterClient 注销客户端，阻塞直到其所有请求完成
func (r *Resolver) UnregisterClient(ctx context.Context, c AddressClient) error {
	return r.scheduler.UnregisterClient(ctx, c)
}

// Submit 提交异步解析请求
func (r *Resolver) Submit(c AddressClient, req ResolveRequest) (RequestHandle, error) {
	if !r.running() {
		return nil, ErrNotStarted
	}
	return r.scheduler.Submit(c, req)
}

// Cancel 取消仍在队列中的请求
func (r *Resolver) Cancel(h RequestHandle) {
	r.scheduler.Cancel(h)
}

// ResolveRoute 只做路由解析
func (r *Resolver) ResolveRoute(ctx context.Context, src *types.SockAddr, dst types.SockAddr, hint types.DevAddr) (types.SockAddr, types.DevAddr, error) {
	return r.scheduler.ResolveRoute(ctx, src, dst, hint)
}

// OnNeighborUpdate 通知邻居表有表项变为有效
func (r *Resolver) OnNeighborUpdate() {
	r.scheduler.OnNeighborUpdate()
}

// Resolve 同步解析：提交请求并等待回调
//
// ctx 结束时取消请求并返回 ctx 的错误。
func (r *Resolver) Resolve(ctx context.Context, c AddressClient, src *types.SockAddr, dst types.SockAddr, hint types.DevAddr, timeout time.Duration) (ResolveResult, error) {
	if !r.running() {
		return ResolveResult{}, ErrNotStarted
	}

	done := make(chan ResolveResult, 1)
	h, err := r.scheduler.Submit(c, ResolveRequest{
		Src:      src,
		Dst:      dst,
		Hint:     hint,
		Timeout:  timeout,
		Callback: func(res ResolveResult) { done <- res },
	})
	if err != nil {
		return ResolveResult{}, err
	}

	select {
	case res := <-done:
		return res, res.Err
	case <-ctx.Done():
		r.scheduler.Cancel(h)
		<-done
		return ResolveResult{}, ctx.Err()
	}
}

// FindL2EthByGRH 由源/目的 GID 查询以太网二层信息
func (r *Resolver) FindL2EthByGRH(ctx context.Context, sgid, dgid types.GID, ifindex int) (L2Info, error) {
	return r.scheduler.FindL2EthByGRH(ctx, sgid, dgid, ifindex)
}

// FindSMACBySGID 由源 GID 查询本端 MAC 与 VLAN
func (r *Resolver) FindSMACBySGID(sgid types.GID) (net.HardwareAddr, uint16, error) {
	return r.scheduler.FindSMACBySGID(sgid)
}
