package netstack

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/link"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/neigh"
	"github.com/dep2p/go-ibaddr/internal/core/netstack/route"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
)

// ModuleInput 定义模块输入依赖
type ModuleInput struct {
	fx.In

	UnifiedCfg *config.Config            `optional:"true"`
	EventBus   interfaces.EventBus       `optional:"true"`
	Monitor    interfaces.NetworkMonitor `optional:"true"`
	Clock      clock.Clock               `optional:"true"`
	LinkSource link.Source               `optional:"true"`
	Gateway    route.GatewayFunc         `optional:"true"`
}

// ModuleOutput 定义模块输出服务
type ModuleOutput struct {
	fx.Out

	Stack     *Stack
	Links     *link.Registry
	Routes    *route.Table
	Neighbors *neigh.Table

	RouteService      interfaces.RouteService
	NeighborService   interfaces.NeighborService
	InterfaceRegistry interfaces.InterfaceRegistry
}

// ProvideStack 提供网络栈
func ProvideStack(input ModuleInput) ModuleOutput {
	var opts []Option
	if input.EventBus != nil {
		opts = append(opts, WithEventBus(input.EventBus))
	}
	if input.Monitor != nil {
		opts = append(opts, WithMonitor(input.Monitor))
	}
	if input.Clock != nil {
		opts = append(opts, WithClock(input.Clock))
	}
	if input.LinkSource != nil {
		opts = append(opts, WithLinkSource(input.LinkSource))
	}
	if input.Gateway != nil {
		opts = append(opts, WithGateway(input.Gateway))
	}

	s := New(ConfigFromUnified(input.UnifiedCfg), opts...)
	return ModuleOutput{
		Stack:             s,
		Links:             s.Links(),
		Routes:            s.Routes(),
		Neighbors:         s.Neighbors(),
		RouteService:      s.Routes(),
		NeighborService:   s.Neighbors(),
		InterfaceRegistry: s.Links(),
	}
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("netstack",
		fx.Provide(ProvideStack),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, s *Stack) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return s.Stop()
		},
	})
}
