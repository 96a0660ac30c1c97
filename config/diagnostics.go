package config

import (
	"fmt"
	"net"
)

// DiagnosticsConfig 本地诊断 HTTP 服务配置
type DiagnosticsConfig struct {
	// Enabled 是否启动诊断服务
	// 默认值: false
	Enabled bool `json:"enabled"`

	// Addr 监听地址
	// 默认值: "127.0.0.1:6060"
	Addr string `json:"addr"`
}

// DefaultDiagnosticsConfig 返回默认的诊断服务配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{
		Enabled: false,
		Addr:    "127.0.0.1:6060",
	}
}

// Validate 验证诊断服务配置
func (c *DiagnosticsConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("diagnostics: invalid addr %q: %w", c.Addr, err)
	}
	return nil
}
