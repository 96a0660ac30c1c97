// Package interfaces 定义 go-ibaddr 公共接口
//
// 本文件定义地址解析调度器接口，对应 internal/core/addr/ 实现。
package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ResolveResult 异步解析完成时交给回调的结果
type ResolveResult struct {
	// Status 终态
	Status types.Status

	// Err StatusSucceeded 时为 nil，否则为 ErrTimedOut / ErrCanceled / 失败原因
	Err error

	// Src 实际使用的源地址
	Src types.SockAddr

	// Addr 解析得到的设备地址绑定
	Addr types.DevAddr
}

// ResolveCallback 完成回调，每个请求恰好调用一次
type ResolveCallback func(ResolveResult)

// ResolveRequest 提交的解析请求
type ResolveRequest struct {
	// Src 源地址，nil 表示由路由选择
	Src *types.SockAddr

	// Dst 目的地址
	Dst types.SockAddr

	// Hint 输入提示（BoundIfIndex、默认网络类型）
	Hint types.DevAddr

	// Timeout 邻居解析的最长等待时间
	Timeout time.Duration

	// Callback 完成回调
	Callback ResolveCallback
}

// AddressClient 共享解析器的调用方句柄
type AddressClient interface {
	// Refs 当前引用计数
	Refs() int
}

// RequestHandle 已提交请求的句柄，用于取消
type RequestHandle interface {
	// ID 请求标识
	ID() string
}

// AddressResolver 异步地址解析器
type AddressResolver interface {
	// RegisterClient 注册客户端
	RegisterClient() AddressClient

	// UnregisterClient 注销客户端，阻塞直到其所有请求完成
	UnregisterClient(ctx context.Context, c AddressClient) error

	// Submit 提交异步解析请求
	Submit(c AddressClient, req ResolveRequest) (RequestHandle, error)

	// Cancel 取消仍在队列中的请求，已完成的请求不受影响
	Cancel(h RequestHandle)

	// ResolveRoute 只做路由解析，不排队，不解析邻居
	ResolveRoute(ctx context.Context, src *types.SockAddr, dst types.SockAddr, hint types.DevAddr) (types.SockAddr, types.DevAddr, error)

	// OnNeighborUpdate 任意邻居变为有效时调用，立即唤醒后台处理
	OnNeighborUpdate()
}
