package config

import (
	"fmt"
	"time"
)

// NeighborConfig 邻居表配置
type NeighborConfig struct {
	// MaxEntries 邻居表最大表项数
	// 默认值: 1024
	MaxEntries int `json:"max_entries"`

	// ReachableTime 已解析表项的有效期
	// 默认值: 30s
	ReachableTime Duration `json:"reachable_time"`

	// RetransTime 同一地址两次探测之间的最小间隔
	// 默认值: 1s
	RetransTime Duration `json:"retrans_time"`

	// RawARP 使用原始套接字直接发送 ARP 请求（需要 CAP_NET_RAW，仅 Linux）
	// 默认值: false（使用 UDP 触发内核解析）
	RawARP bool `json:"raw_arp"`

	// KernelSync 定期读取内核邻居表（/proc/net/arp）
	// 默认值: true
	KernelSync bool `json:"kernel_sync"`

	// KernelSyncInterval 读取内核邻居表的间隔
	// 默认值: 200ms
	KernelSyncInterval Duration `json:"kernel_sync_interval"`

	// Static 静态邻居表项
	Static []StaticNeighbor `json:"static,omitempty"`
}

// StaticNeighbor 静态邻居表项
type StaticNeighbor struct {
	// Interface 接口名称
	Interface string `json:"interface"`

	// IP 网络层地址
	IP string `json:"ip"`

	// MAC 链路层地址
	MAC string `json:"mac"`
}

// DefaultNeighborConfig 返回默认的邻居表配置
func DefaultNeighborConfig() NeighborConfig {
	return NeighborConfig{
		MaxEntries:         1024,
		ReachableTime:      Duration(30 * time.Second),
		RetransTime:        Duration(1 * time.Second),
		RawARP:             false,
		KernelSync:         true,
		KernelSyncInterval: Duration(200 * time.Millisecond),
	}
}

// Validate 验证邻居表配置
func (c *NeighborConfig) Validate() error {
	if c.MaxEntries < 1 {
		return fmt.Errorf("neighbor: max_entries must be >= 1")
	}
	if c.ReachableTime <= 0 {
		return fmt.Errorf("neighbor: reachable_time must be > 0")
	}
	if c.RetransTime < 0 {
		return fmt.Errorf("neighbor: retrans_time must be >= 0")
	}
	if c.KernelSync && c.KernelSyncInterval <= 0 {
		return fmt.Errorf("neighbor: kernel_sync_interval must be > 0")
	}
	for i, s := range c.Static {
		if s.Interface == "" || s.IP == "" || s.MAC == "" {
			return fmt.Errorf("neighbor: static[%d] requires interface, ip and mac", i)
		}
	}
	return nil
}
