// Package types 定义 go-ibaddr 的基础类型
//
// 本文件定义所有公共错误类型。
package types

import "errors"

// ============================================================================
//                              参数与路由错误
// ============================================================================

var (
	// ErrInvalidArgument 参数无效（例如源/目的地址族不一致）
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNoRoute 没有到达目的地址的路由
	ErrNoRoute = errors.New("no route to host")

	// ErrDeviceUnavailable 接口不存在或不可用
	ErrDeviceUnavailable = errors.New("no such device")

	// ErrAddrNotAvailable 地址不可用（找不到拥有该地址的接口或源地址）
	ErrAddrNotAvailable = errors.New("address not available")
)

// ============================================================================
//                              异步解析错误
// ============================================================================

var (
	// ErrNoData 邻居尚未解析，需要重试（内部信号，不会交给回调）
	ErrNoData = errors.New("neighbor not resolved")

	// ErrTimedOut 超时前未能完成邻居解析
	ErrTimedOut = errors.New("address resolution timed out")

	// ErrCanceled 请求已被取消
	ErrCanceled = errors.New("address resolution canceled")
)

// ============================================================================
//                              生命周期错误
// ============================================================================

var (
	// ErrClientClosed 客户端正在注销，不再接受新请求
	ErrClientClosed = errors.New("client closed")

	// ErrNotStarted 解析器未启动
	ErrNotStarted = errors.New("resolver not started")

	// ErrAlreadyStarted 解析器已启动
	ErrAlreadyStarted = errors.New("resolver already started")
)
