// Package netmon 监控主机网络接口变化
//
// Monitor 定期读取接口与地址列表，按接口索引和上一次的快照比较：
//   - 接口增删或启用状态变化为 Major
//   - 仅地址变化为 Minor
//
// 检测到变化后在 FastPollDuration 内改用 FastPollInterval 轮询，
// 以便尽快观察到后续的地址配置。变化事件通过 Subscribe 返回的通道送出，
// netstack 模块据此刷新接口表和路由表。
package netmon
