package config

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// ValidateAll 验证整个配置的有效性
//
// 在 Config.Validate() 之外还会检查静态表项中的地址格式。
func ValidateAll(c *Config) error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.Validate(); err != nil {
		return err
	}
	for i, s := range c.Neighbor.Static {
		if _, err := netip.ParseAddr(s.IP); err != nil {
			return fmt.Errorf("neighbor: static[%d] invalid ip %q", i, s.IP)
		}
		if _, err := net.ParseMAC(s.MAC); err != nil {
			return fmt.Errorf("neighbor: static[%d] invalid mac %q", i, s.MAC)
		}
	}
	for i, r := range c.Route.Static {
		if _, err := netip.ParsePrefix(r.Prefix); err != nil {
			return fmt.Errorf("route: static[%d] invalid prefix %q", i, r.Prefix)
		}
		if r.Gateway != "" {
			if _, err := netip.ParseAddr(r.Gateway); err != nil {
				return fmt.Errorf("route: static[%d] invalid gateway %q", i, r.Gateway)
			}
		}
	}
	return nil
}

// ValidateAndFix 验证配置并尝试自动修复常见问题
//
// 可修复的问题：
//   - 超时或间隔为非正数 -> 使用默认值
//   - 快速轮询间隔大于正常间隔 -> 交换值
//   - 跳数限制越界 -> 使用默认值
func ValidateAndFix(c *Config) (*Config, error) {
	if c == nil {
		return NewConfig(), nil
	}

	def := NewConfig()

	if c.Resolver.DefaultTimeout <= 0 {
		c.Resolver.DefaultTimeout = def.Resolver.DefaultTimeout
	}
	if c.Resolver.SyncTimeout <= 0 {
		c.Resolver.SyncTimeout = def.Resolver.SyncTimeout
	}
	if c.Route.DefaultHopLimit < 1 || c.Route.DefaultHopLimit > 255 {
		c.Route.DefaultHopLimit = def.Route.DefaultHopLimit
	}

	if c.Neighbor.MaxEntries < 1 {
		c.Neighbor.MaxEntries = def.Neighbor.MaxEntries
	}
	if c.Neighbor.ReachableTime <= 0 {
		c.Neighbor.ReachableTime = def.Neighbor.ReachableTime
	}
	if c.Neighbor.KernelSyncInterval <= 0 {
		c.Neighbor.KernelSyncInterval = def.Neighbor.KernelSyncInterval
	}

	if c.Monitor.PollInterval <= 0 {
		c.Monitor.PollInterval = def.Monitor.PollInterval
	}
	if c.Monitor.FastPollInterval <= 0 {
		c.Monitor.FastPollInterval = def.Monitor.FastPollInterval
	}
	if c.Monitor.FastPollInterval > c.Monitor.PollInterval {
		c.Monitor.FastPollInterval, c.Monitor.PollInterval = c.Monitor.PollInterval, c.Monitor.FastPollInterval
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
	if c.Diagnostics.Enabled && c.Diagnostics.Addr == "" {
		c.Diagnostics.Addr = def.Diagnostics.Addr
	}

	if err := ValidateAll(c); err != nil {
		return nil, fmt.Errorf("config still invalid after fixes: %w", err)
	}
	return c, nil
}
