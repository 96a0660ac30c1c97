package config

import "fmt"

// RouteConfig 主机路由表配置
type RouteConfig struct {
	// DiscoverGateway 启动时探测默认网关并加入默认路由
	// 默认值: true
	DiscoverGateway bool `json:"discover_gateway"`

	// DefaultHopLimit 路由未指定跳数限制时使用的值
	// 默认值: 64
	DefaultHopLimit int `json:"default_hop_limit"`

	// Static 额外的静态路由
	Static []StaticRoute `json:"static,omitempty"`
}

// StaticRoute 静态路由
type StaticRoute struct {
	// Prefix 目的网段，例如 "10.1.0.0/16"
	Prefix string `json:"prefix"`

	// Interface 出接口名称
	Interface string `json:"interface"`

	// Gateway 网关地址，直连路由留空
	Gateway string `json:"gateway,omitempty"`

	// HopLimit 跳数限制，0 表示使用默认值
	HopLimit int `json:"hop_limit,omitempty"`
}

// DefaultRouteConfig 返回默认的路由表配置
func DefaultRouteConfig() RouteConfig {
	return RouteConfig{
		DiscoverGateway: true,
		DefaultHopLimit: 64,
	}
}

// Validate 验证路由表配置
func (c *RouteConfig) Validate() error {
	if c.DefaultHopLimit < 1 || c.DefaultHopLimit > 255 {
		return fmt.Errorf("route: default_hop_limit must be in [1, 255]")
	}
	for i, r := range c.Static {
		if r.Prefix == "" || r.Interface == "" {
			return fmt.Errorf("route: static[%d] requires prefix and interface", i)
		}
		if r.HopLimit < 0 || r.HopLimit > 255 {
			return fmt.Errorf("route: static[%d] hop_limit must be in [0, 255]", i)
		}
	}
	return nil
}
