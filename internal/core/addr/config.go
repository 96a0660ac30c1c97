package addr

import (
	"time"

	"github.com/dep2p/go-ibaddr/config"
)

// Config 调度器配置
type Config struct {
	// DefaultTimeout 请求未指定超时时使用
	DefaultTimeout time.Duration

	// SyncTimeout FindL2EthByGRH 的解析超时
	SyncTimeout time.Duration

	// MetricsEnabled 是否注册 Prometheus 指标
	MetricsEnabled bool

	// MetricsNamespace 指标命名空间
	MetricsNamespace string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return ConfigFromUnified(nil)
}

// ConfigFromUnified 从统一配置创建调度器配置
func ConfigFromUnified(cfg *config.Config) Config {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return Config{
		DefaultTimeout:   cfg.Resolver.DefaultTimeout.Duration(),
		SyncTimeout:      cfg.Resolver.SyncTimeout.Duration(),
		MetricsEnabled:   cfg.Metrics.Enabled,
		MetricsNamespace: cfg.Metrics.Namespace,
	}
}
