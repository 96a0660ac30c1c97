package config

import (
	"fmt"
	"time"
)

// ResolverConfig 地址解析调度器配置
type ResolverConfig struct {
	// DefaultTimeout 调用方未指定超时时使用的邻居解析超时
	// 默认值: 2s
	DefaultTimeout Duration `json:"default_timeout"`

	// SyncTimeout 同步查询（FindL2EthByGRH）的解析超时
	// 默认值: 1s
	SyncTimeout Duration `json:"sync_timeout"`
}

// DefaultResolverConfig 返回默认的调度器配置
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		DefaultTimeout: Duration(2 * time.Second),
		SyncTimeout:    Duration(1 * time.Second),
	}
}

// Validate 验证调度器配置
func (c *ResolverConfig) Validate() error {
	if c.DefaultTimeout <= 0 {
		return fmt.Errorf("resolver: default_timeout must be > 0")
	}
	if c.SyncTimeout <= 0 {
		return fmt.Errorf("resolver: sync_timeout must be > 0")
	}
	return nil
}
