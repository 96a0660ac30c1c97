package introspect

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/addr"
	"github.com/dep2p/go-ibaddr/internal/core/netstack"
)

// Module 返回诊断服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// Params 诊断服务依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config       `optional:"true"`
	Stack      *netstack.Stack      `optional:"true"`
	Scheduler  *addr.Scheduler      `optional:"true"`
	Gatherer   prometheus.Gatherer  `optional:"true"`
}

// Output 诊断服务输出，禁用时 Server 为 nil
type Output struct {
	fx.Out

	Server *Server
}

// ConfigFromUnified 从统一配置创建服务配置，禁用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.Enabled {
		return nil
	}
	return &Config{Addr: cfg.Diagnostics.Addr}
}

// NewFromParams 从参数创建诊断服务
func NewFromParams(p Params) Output {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if cfg == nil {
		return Output{}
	}
	cfg.Stack = p.Stack
	cfg.Gatherer = p.Gatherer
	if p.Scheduler != nil {
		cfg.Queue = p.Scheduler
	}
	return Output{Server: New(*cfg)}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
