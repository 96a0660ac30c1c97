package interfaces

import (
	"context"
	"net/netip"
	"time"
)

// NetworkMonitor 监控主机接口集合与地址变化
//
// netstack 订阅它，在变化时刷新接口表与路由表。
type NetworkMonitor interface {
	Start(ctx context.Context) error
	Stop() error

	// Subscribe 返回变化事件通道，Stop 时关闭
	Subscribe() <-chan NetworkChangeEvent

	// NotifyChange 立即检查一次，不等下一个轮询周期
	NotifyChange()

	// CurrentState 最近一次读取的快照
	CurrentState() NetworkState
}

// NetworkChangeEvent 两次快照之间的差异，元素均为接口索引
type NetworkChangeEvent struct {
	Type NetworkChangeType

	Added   []int
	Removed []int

	// Changed 地址或启用状态变化的接口
	Changed []int

	Timestamp time.Time
}

// NetworkChangeType 变化级别
type NetworkChangeType int

const (
	// NetworkChangeMinor 接口集合不变，只有地址变化
	NetworkChangeMinor NetworkChangeType = iota

	// NetworkChangeMajor 接口增删或启用状态变化
	NetworkChangeMajor
)

func (t NetworkChangeType) String() string {
	switch t {
	case NetworkChangeMinor:
		return "minor"
	case NetworkChangeMajor:
		return "major"
	default:
		return "unknown"
	}
}

// NetworkState 接口快照
type NetworkState struct {
	Interfaces []NetworkInterface
}

// NetworkInterface 快照中的一个接口
type NetworkInterface struct {
	Index    int
	Name     string
	Up       bool
	Loopback bool
	Addrs    []netip.Prefix
}
