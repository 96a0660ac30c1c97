package ibaddr

import (
	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// 错误再导出，调用方使用 errors.Is 判断
var (
	ErrInvalidArgument   = types.ErrInvalidArgument
	ErrNoRoute           = types.ErrNoRoute
	ErrDeviceUnavailable = types.ErrDeviceUnavailable
	ErrAddrNotAvailable  = types.ErrAddrNotAvailable
	ErrTimedOut          = types.ErrTimedOut
	ErrCanceled          = types.ErrCanceled
	ErrClientClosed      = types.ErrClientClosed
	ErrNotStarted        = types.ErrNotStarted
	ErrAlreadyStarted    = types.ErrAlreadyStarted
)

// 常用类型别名
type (
	// ResolveRequest 异步解析请求
	ResolveRequest = interfaces.ResolveRequest

	// ResolveResult 回调收到的结果
	ResolveResult = interfaces.ResolveResult

	// AddressClient 客户端句柄
	AddressClient = interfaces.AddressClient

	// RequestHandle 请求句柄
	RequestHandle = interfaces.RequestHandle
)
