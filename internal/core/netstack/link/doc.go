// Package link 维护主机网络接口表
//
// Registry 把 net.Interfaces() 的快照转换为 types.Link，
// 提供按索引、名称和本地地址的查找，实现 interfaces.InterfaceRegistry。
// Linux 上从 /sys/class/net 读取 ARPHRD 类型和 IFF_NOARP 标志。
// 名称形如 "<parent>.<vid>" 的接口被识别为 VLAN 接口。
package link
