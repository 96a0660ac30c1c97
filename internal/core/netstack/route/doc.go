// Package route 实现最长前缀匹配路由表
//
// 路由表由三类表项组成：
//   - 本机路由：接口上配置的每个地址，经回环接口，Local 为 true
//   - 直连路由：接口地址所在前缀，直接从该接口出
//   - 网关路由：默认路由（jackpal/gateway 探测）与配置中的静态路由
//
// Table 实现 interfaces.RouteService，供地址解析引擎查询出接口、
// 源地址、网关与跳数限制。
package route
