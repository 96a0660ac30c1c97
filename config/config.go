// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Resolver.SyncTimeout = config.Duration(2 * time.Second)
//
//	// 从 JSON 加载
//	cfg, err := config.FromJSON(data)
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config 是 go-ibaddr 的完整配置结构
//
// 配置按照功能模块组织：
//   - Resolver: 地址解析调度器
//   - Neighbor: 邻居表与探测
//   - Route: 主机路由表
//   - Monitor: 网络变化监控
//   - Metrics: Prometheus 指标
//   - Diagnostics: 本地诊断 HTTP 服务
type Config struct {
	// Resolver 地址解析调度器配置
	Resolver ResolverConfig `json:"resolver"`

	// Neighbor 邻居表配置
	Neighbor NeighborConfig `json:"neighbor"`

	// Route 路由表配置
	Route RouteConfig `json:"route"`

	// Monitor 网络变化监控配置
	Monitor MonitorConfig `json:"monitor"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics"`

	// Diagnostics 诊断服务配置
	Diagnostics DiagnosticsConfig `json:"diagnostics"`

	// Debug 输出 Fx 依赖注入日志
	Debug bool `json:"debug,omitempty"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	return &Config{
		Resolver: DefaultResolverConfig(),
		Neighbor: DefaultNeighborConfig(),
		Route:    DefaultRouteConfig(),
		Monitor:  DefaultMonitorConfig(),
		Metrics:  DefaultMetricsConfig(),

		Diagnostics: DefaultDiagnosticsConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，如果发现无效配置则返回错误。
func (c *Config) Validate() error {
	if err := c.Resolver.Validate(); err != nil {
		return err
	}
	if err := c.Neighbor.Validate(); err != nil {
		return err
	}
	if err := c.Route.Validate(); err != nil {
		return err
	}
	if err := c.Monitor.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Diagnostics.Validate()
}

// FromJSON 从 JSON 加载配置
//
// 未出现在 JSON 中的字段保留默认值。
func FromJSON(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile 从 JSON 文件加载配置
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return FromJSON(data)
}

// ToJSON 序列化为带缩进的 JSON
func (c *Config) ToJSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}
