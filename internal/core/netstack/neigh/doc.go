// Package neigh 实现邻居（ARP/ND）缓存
//
// Table 实现 interfaces.NeighborService。Lookup 命中有效表项时直接返回
// 链路层地址；表项缺失或过期时创建 Incomplete 表项，并按 RetransTime
// 限速异步探测。探测结果与内核邻居表同步结果经 Update 写入，
// 表项变为有效时发布 types.EvtNeighborUpdate。
//
// 探测方式：
//   - UDPProber：向目的地址发送一个 UDP 报文，由内核完成 ARP/ND
//   - ARPProber：通过 AF_PACKET 直接收发 ARP（仅 Linux，需要 CAP_NET_RAW）
//
// 内核同步在 Linux 上通过 netlink RTM_GETNEIGH 导出邻居表，
// 失败时退回解析 /proc/net/arp。
package neigh
