// Package types 定义 go-ibaddr 公共类型
//
// 本文件定义事件相关类型。
package types

import (
	"net"
	"net/netip"
	"time"
)

// EvtNeighborUpdate 邻居表项状态变化事件
//
// 等价于 NETEVENT_NEIGH_UPDATE 通知；State.Valid() 为 true 时
// 地址解析调度器会立即唤醒。
type EvtNeighborUpdate struct {
	IfIndex      int
	IP           netip.Addr
	HardwareAddr net.HardwareAddr
	State        NeighborState
	Timestamp    time.Time
}

// LinkChangeType 链路变化类型
type LinkChangeType int

const (
	// LinkChangeMinor 仅地址变化
	LinkChangeMinor LinkChangeType = iota
	// LinkChangeMajor 接口增删
	LinkChangeMajor
)

// String 返回变化类型的字符串表示
func (t LinkChangeType) String() string {
	if t == LinkChangeMajor {
		return "major"
	}
	return "minor"
}

// EvtLinkChange 网络接口集合或地址变化事件
type EvtLinkChange struct {
	Type      LinkChangeType
	Links     int
	Timestamp time.Time
}
