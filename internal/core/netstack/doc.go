// Package netstack 组装主机网络栈协作方
//
// Stack 持有接口表（link）、路由表（route）与邻居表（neigh），
// 分别实现地址解析引擎依赖的 InterfaceRegistry、RouteService 与
// NeighborService。启动时从主机加载接口和路由，安装配置中的静态
// 路由与静态邻居；订阅 NetworkMonitor 后，接口或地址变化会触发表刷新
// 并发布 types.EvtLinkChange。
package netstack
