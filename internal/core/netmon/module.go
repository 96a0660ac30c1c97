package netmon

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-ibaddr/config"
	pkgif "github.com/dep2p/go-ibaddr/pkg/interfaces"
)

// ConfigFromUnified 从统一配置创建监控配置
func ConfigFromUnified(cfg *config.Config) (Config, bool) {
	if cfg == nil {
		return DefaultConfig(), true
	}
	m := cfg.Monitor
	return Config{
		PollInterval:     m.PollInterval.Duration(),
		FastPollInterval: m.FastPollInterval.Duration(),
		FastPollDuration: m.FastPollDuration.Duration(),
	}, m.Enabled
}

// ModuleInput 模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ModuleOutput 模块输出
type ModuleOutput struct {
	fx.Out

	Monitor pkgif.NetworkMonitor
}

// ProvideMonitor 提供网络监控器
func ProvideMonitor(input ModuleInput) ModuleOutput {
	cfg, _ := ConfigFromUnified(input.UnifiedCfg)
	return ModuleOutput{Monitor: NewMonitor(cfg)}
}

// Module 返回 Fx 模块
//
// 配置中禁用监控时不启动轮询，订阅者不会收到事件。
func Module() fx.Option {
	return fx.Module("netmon",
		fx.Provide(ProvideMonitor),
		fx.Invoke(registerLifecycle),
	)
}

type lifecycleInput struct {
	fx.In

	LC         fx.Lifecycle
	Monitor    pkgif.NetworkMonitor
	UnifiedCfg *config.Config `optional:"true"`
}

func registerLifecycle(input lifecycleInput) {
	if _, enabled := ConfigFromUnified(input.UnifiedCfg); !enabled {
		logger.Debug("网络监控已禁用")
		return
	}
	input.LC.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return input.Monitor.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return input.Monitor.Stop()
		},
	})
}
