// Package addr 实现异步地址解析调度器
//
// 把 IP 目的地址解析为设备地址绑定（出接口、本端/对端链路层地址、
// 网络类型、跳数限制），供 RDMA 连接管理等调用方使用。
//
// # 结构
//
//   - Engine: 单次同步解析尝试（路由查询 -> 邻居查询）
//   - deadlineQueue: 按截止时间排序的待处理请求队列
//   - Scheduler: 持有队列，驱动唯一的后台处理流程
//   - Client: 调用方句柄，注销时等待其所有请求完成
//
// # 请求状态
//
//	Submit -> Engine.Resolve
//	    成功        -> 入队（截止时间 = now），下一轮回调
//	    ErrNoData   -> 入队（截止时间 = now + timeout）
//	    其他错误    -> 同步返回，不回调
//
//	后台处理：对所有 NeedsNeighbor 请求重新解析
//	    成功        -> Succeeded
//	    ErrNoData   -> 已过截止时间则 TimedOut，否则继续排队
//	    其他错误    -> Failed
//
// 回调与客户端引用释放都在队列锁之外执行，每个请求恰好回调一次，
// 回调永远不会在 Submit 的调用栈上执行。
//
// # 唤醒
//
// 后台流程由以下事件唤醒：队首截止时间到期、队首被新请求替换、
// Cancel、以及 OnNeighborUpdate（任意邻居变为有效）。
// 唤醒时间采用"替换"语义：最近一次设置的时间覆盖之前的时间。
package addr
