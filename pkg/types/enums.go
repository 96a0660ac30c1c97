package types

// ============================================================================
//                              Status - 请求状态
// ============================================================================

// Status 地址解析请求状态
type Status int

const (
	// StatusInProgress 正在进行首次解析
	StatusInProgress Status = iota
	// StatusNeedsNeighbor 等待邻居解析，已排队
	StatusNeedsNeighbor
	// StatusSucceeded 解析成功
	StatusSucceeded
	// StatusTimedOut 超时
	StatusTimedOut
	// StatusCanceled 已取消
	StatusCanceled
	// StatusFailed 不可重试的失败
	StatusFailed
)

// String 返回状态的字符串表示
func (s Status) String() string {
	switch s {
	case StatusInProgress:
		return "in_progress"
	case StatusNeedsNeighbor:
		return "needs_neighbor"
	case StatusSucceeded:
		return "succeeded"
	case StatusTimedOut:
		return "timed_out"
	case StatusCanceled:
		return "canceled"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal 是否为终态
func (s Status) Terminal() bool {
	return s >= StatusSucceeded
}

// ============================================================================
//                              NetworkType - 网络类型
// ============================================================================

// NetworkType 解析路径的网络类型分类
type NetworkType int

const (
	// NetworkIB InfiniBand / 未分类（默认）
	NetworkIB NetworkType = iota
	// NetworkRoCEv1 不可路由的 RoCE
	NetworkRoCEv1
	// NetworkIPv4 经网关的 IPv4 路径（RoCE v2）
	NetworkIPv4
	// NetworkIPv6 经网关的 IPv6 路径（RoCE v2）
	NetworkIPv6
)

// String 返回网络类型的字符串表示
func (n NetworkType) String() string {
	switch n {
	case NetworkIB:
		return "ib"
	case NetworkRoCEv1:
		return "roce_v1"
	case NetworkIPv4:
		return "ipv4"
	case NetworkIPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              NeighborState - 邻居状态
// ============================================================================

// NeighborState 邻居表项状态
type NeighborState int

const (
	// NeighborIncomplete 已发起探测，尚未得到链路层地址
	NeighborIncomplete NeighborState = iota
	// NeighborReachable 已解析且在有效期内
	NeighborReachable
	// NeighborStale 已解析但过期，需要重新确认
	NeighborStale
	// NeighborPermanent 静态配置，永不过期
	NeighborPermanent
)

// String 返回邻居状态的字符串表示
func (s NeighborState) String() string {
	switch s {
	case NeighborIncomplete:
		return "incomplete"
	case NeighborReachable:
		return "reachable"
	case NeighborStale:
		return "stale"
	case NeighborPermanent:
		return "permanent"
	default:
		return "unknown"
	}
}

// Valid 是否为可直接使用的状态（NUD_VALID）
func (s NeighborState) Valid() bool {
	return s == NeighborReachable || s == NeighborPermanent
}
