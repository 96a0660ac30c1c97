// Package types 定义 go-ibaddr 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
// 地址类型:
//   - address.go - Family, SockAddr 套接字地址
//   - gid.go     - GID 及其与 IP 地址的互相转换
//   - devaddr.go - DevAddr 解析结果, Link 网络接口, RouteInfo 路由信息
//
// 其它:
//   - enums.go   - Status, NetworkType, NeighborState
//   - errors.go  - 公共错误定义
//   - events.go  - 事件类型（邻居更新、链路变化）
package types
