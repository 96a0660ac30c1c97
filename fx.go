package ibaddr

import (
	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/addr"
	"github.com/dep2p/go-ibaddr/internal/core/eventbus"
	"github.com/dep2p/go-ibaddr/internal/core/netmon"
	"github.com/dep2p/go-ibaddr/internal/core/netstack"
	"github.com/dep2p/go-ibaddr/internal/debug/introspect"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
)

var fxLogger = log.Logger("ibaddr/fx")

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置、时钟、指标注册器
//  2. EventBus
//  3. NetMon → NetStack（调用方提供全部协作方时跳过）
//  4. Addr（调度器）
//  5. 诊断服务（config.Diagnostics.Enabled 时监听）
//  6. 用户自定义 Fx 选项
func buildFxApp(o *options, cfg *config.Config, reg prometheus.Registerer, r *Resolver) *fx.App {
	modules := []fx.Option{
		fx.Supply(cfg),
		fx.Supply(fx.Annotate(reg, fx.As(new(prometheus.Registerer)))),
		eventbus.Module(),
	}
	if r.gatherer != nil {
		modules = append(modules, fx.Supply(fx.Annotate(r.gatherer, fx.As(new(prometheus.Gatherer)))))
	}
	if o.clock != nil {
		modules = append(modules, fx.Supply(fx.Annotate(o.clock, fx.As(new(clock.Clock)))))
	}

	// ════════════════════════════════════════════════════════════════════════
	// 网络栈协作方
	// ════════════════════════════════════════════════════════════════════════
	if o.customStack() {
		modules = append(modules, fx.Supply(
			fx.Annotate(o.routes, fx.As(new(interfaces.RouteService))),
			fx.Annotate(o.neighbors, fx.As(new(interfaces.NeighborService))),
			fx.Annotate(o.links, fx.As(new(interfaces.InterfaceRegistry))),
		))
		fxLogger.Debug("使用自定义网络栈协作方")
	} else {
		modules = append(modules, netmon.Module(), netstack.Module())
		modules = append(modules, decorateCollaborators(o)...)
	}

	modules = append(modules, addr.Module(), introspect.Module())
	modules = append(modules, o.fxOptions...)

	modules = append(modules,
		fx.Populate(&r.scheduler),
		fx.WithLogger(func() fxevent.Logger {
			return newFxEventLogger(cfg.Debug)
		}),
	)
	return fx.New(modules...)
}

// decorateCollaborators 部分协作方由调用方提供时替换主机实现
func decorateCollaborators(o *options) []fx.Option {
	var out []fx.Option
	if o.routes != nil {
		out = append(out, fx.Decorate(func(interfaces.RouteService) interfaces.RouteService { return o.routes }))
	}
	if o.neighbors != nil {
		out = append(out, fx.Decorate(func(interfaces.NeighborService) interfaces.NeighborService { return o.neighbors }))
	}
	if o.links != nil {
		out = append(out, fx.Decorate(func(interfaces.InterfaceRegistry) interfaces.InterfaceRegistry { return o.links }))
	}
	return out
}

// newFxEventLogger 调试模式输出 Fx 事件，否则静默
func newFxEventLogger(debug bool) fxevent.Logger {
	if !debug {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
	zl, err := zap.NewDevelopment()
	if err != nil {
		return &fxevent.ZapLogger{Logger: zap.NewNop()}
	}
	return &fxevent.ZapLogger{Logger: zl}
}
