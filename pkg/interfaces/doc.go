// Package interfaces 定义 go-ibaddr 的公共接口
//
// 一个接口文件对应一个实现目录：
//   - resolver.go - 地址解析调度器（internal/core/addr）
//   - netstack.go - 路由/邻居/接口协作方（internal/core/netstack/...）
//   - netmon.go   - 系统网络变化监控（internal/core/netmon）
//   - eventbus.go - 事件总线（internal/core/eventbus）
//
// 核心调度器只通过这些接口访问外部网络栈，测试与嵌入方
// 可以替换为自己的实现。
package interfaces
