package config

import (
	"fmt"
	"time"
)

// MonitorConfig 网络变化监控配置
type MonitorConfig struct {
	// Enabled 是否启用网络变化监控
	// 默认值: true
	Enabled bool `json:"enabled"`

	// PollInterval 正常轮询间隔
	// 默认值: 2s
	PollInterval Duration `json:"poll_interval"`

	// FastPollInterval 检测到变化后的快速轮询间隔
	// 默认值: 500ms
	FastPollInterval Duration `json:"fast_poll_interval"`

	// FastPollDuration 快速轮询持续时间
	// 默认值: 10s
	FastPollDuration Duration `json:"fast_poll_duration"`
}

// DefaultMonitorConfig 返回默认的监控配置
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:          true,
		PollInterval:     Duration(2 * time.Second),
		FastPollInterval: Duration(500 * time.Millisecond),
		FastPollDuration: Duration(10 * time.Second),
	}
}

// Validate 验证监控配置
func (c *MonitorConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.PollInterval <= 0 || c.FastPollInterval <= 0 {
		return fmt.Errorf("monitor: poll intervals must be > 0")
	}
	if c.FastPollInterval > c.PollInterval {
		return fmt.Errorf("monitor: fast_poll_interval must not exceed poll_interval")
	}
	return nil
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否注册 Prometheus 指标
	// 默认值: true
	Enabled bool `json:"enabled"`

	// Namespace 指标命名空间
	// 默认值: "ibaddr"
	Namespace string `json:"namespace"`
}

// DefaultMetricsConfig 返回默认的指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "ibaddr",
	}
}

// Validate 验证指标配置
func (c *MetricsConfig) Validate() error {
	if c.Enabled && c.Namespace == "" {
		return fmt.Errorf("metrics: namespace must not be empty")
	}
	return nil
}
