package ibaddr

import (
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-ibaddr/config"
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	config     *config.Config
	configFile string

	clock      clock.Clock
	registerer prometheus.Registerer

	// 自定义网络栈协作方，非空时替换主机实现
	routes    interfaces.RouteService
	neighbors interfaces.NeighborService
	links     interfaces.InterfaceRegistry

	fxOptions []fx.Option
}

func newOptions() *options {
	return &options{}
}

// resolveConfig 合并配置来源：WithConfig 优先，其次配置文件，最后默认值
func (o *options) resolveConfig() (*config.Config, error) {
	var cfg *config.Config
	switch {
	case o.config != nil:
		cfg = o.config
	case o.configFile != "":
		c, err := config.LoadFile(o.configFile)
		if err != nil {
			return nil, err
		}
		cfg = c
	default:
		cfg = config.NewConfig()
	}
	if err := config.ValidateAll(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// customStack 三个协作方都由调用方提供时不加载主机网络栈
func (o *options) customStack() bool {
	return o.routes != nil && o.neighbors != nil && o.links != nil
}

// WithConfig 使用指定配置
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("%w: nil config", ErrInvalidArgument)
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 文件加载配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		o.configFile = path
		return nil
	}
}

// WithClock 设置时钟（测试中使用 clock.NewMock()）
func WithClock(c clock.Clock) Option {
	return func(o *options) error {
		o.clock = c
		return nil
	}
}

// WithRegisterer 设置 Prometheus 注册器，默认使用独立的 prometheus.NewRegistry()
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) error {
		o.registerer = reg
		return nil
	}
}

// WithRouteService 使用自定义路由服务
func WithRouteService(rs interfaces.RouteService) Option {
	return func(o *options) error {
		o.routes = rs
		return nil
	}
}

// WithNeighborService 使用自定义邻居服务
func WithNeighborService(ns interfaces.NeighborService) Option {
	return func(o *options) error {
		o.neighbors = ns
		return nil
	}
}

// WithInterfaceRegistry 使用自定义接口注册表
func WithInterfaceRegistry(ir interfaces.InterfaceRegistry) Option {
	return func(o *options) error {
		o.links = ir
		return nil
	}
}

// WithFxOptions 追加 Fx 选项
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
