package addr

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ============================================================================
//                              模块输入依赖
// ============================================================================

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	Routes    interfaces.RouteService
	Neighbors interfaces.NeighborService
	Links     interfaces.InterfaceRegistry

	UnifiedCfg *config.Config        `optional:"true"`
	EventBus   interfaces.EventBus   `optional:"true"`
	Clock      clock.Clock           `optional:"true"`
	Registerer prometheus.Registerer `optional:"true"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Engine    *Engine
	Scheduler *Scheduler
	Resolver  interfaces.AddressResolver
}

// ProvideServices 提供模块服务
func ProvideServices(input ModuleInput) (ModuleOutput, error) {
	cfg := ConfigFromUnified(input.UnifiedCfg)

	var opts []Option
	if input.Clock != nil {
		opts = append(opts, WithClock(input.Clock))
	}
	if cfg.MetricsEnabled && input.Registerer != nil {
		m, err := NewMetrics(cfg.MetricsNamespace, input.Registerer)
		if err != nil {
			return ModuleOutput{}, fmt.Errorf("register addr metrics: %w", err)
		}
		opts = append(opts, WithMetrics(m))
	}

	engine := NewEngine(input.Routes, input.Neighbors, input.Links)
	sched := NewScheduler(engine, cfg, opts...)

	return ModuleOutput{
		Engine:    engine,
		Scheduler: sched,
		Resolver:  sched,
	}, nil
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("addr",
		fx.Provide(ProvideServices),
		fx.Invoke(registerLifecycle),
	)
}

// ============================================================================
//                              生命周期
// ============================================================================

type lifecycleInput struct {
	fx.In

	LC        fx.Lifecycle
	Scheduler *Scheduler
	EventBus  interfaces.EventBus `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	var watcher *eventWatcher

	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := input.Scheduler.Start(ctx); err != nil {
				return err
			}
			if input.EventBus == nil {
				return nil
			}
			w, err := watchEvents(input.EventBus, input.Scheduler)
			if err != nil {
				return multierr.Append(err, input.Scheduler.Stop(ctx))
			}
			watcher = w
			return nil
		},
		OnStop: func(ctx context.Context) error {
			var err error
			if watcher != nil {
				err = watcher.Close()
			}
			return multierr.Append(err, input.Scheduler.Stop(ctx))
		},
	})
}

// ============================================================================
//                              事件订阅
// ============================================================================

// eventWatcher 把网络栈事件转换为调度器唤醒
type eventWatcher struct {
	neighSub interfaces.Subscription
	linkSub  interfaces.Subscription
	done     chan struct{}
}

func watchEvents(bus interfaces.EventBus, s *Scheduler) (*eventWatcher, error) {
	neighSub, err := bus.Subscribe(new(types.EvtNeighborUpdate))
	if err != nil {
		return nil, fmt.Errorf("subscribe neighbor updates: %w", err)
	}
	linkSub, err := bus.Subscribe(new(types.EvtLinkChange))
	if err != nil {
		_ = neighSub.Close()
		return nil, fmt.Errorf("subscribe link changes: %w", err)
	}

	w := &eventWatcher{
		neighSub: neighSub,
		linkSub:  linkSub,
		done:     make(chan struct{}),
	}
	go w.run(s)
	return w, nil
}

func (w *eventWatcher) run(s *Scheduler) {
	defer close(w.done)

	neigh, link := w.neighSub.Out(), w.linkSub.Out()
	for neigh != nil || link != nil {
		select {
		case evt, ok := <-neigh:
			if !ok {
				neigh = nil
				continue
			}
			if e, ok := evt.(types.EvtNeighborUpdate); ok && e.State.Valid() {
				s.OnNeighborUpdate()
			}
		case _, ok := <-link:
			if !ok {
				link = nil
				continue
			}
			s.OnNeighborUpdate()
		}
	}
}

// Close 取消订阅并等待转发 goroutine 退出
func (w *eventWatcher) Close() error {
	err := multierr.Combine(w.neighSub.Close(), w.linkSub.Close())
	<-w.done
	return err
}
