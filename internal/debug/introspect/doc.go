// Package introspect 提供本地诊断 HTTP 服务
//
// 服务以 JSON 输出解析器内部状态，默认只监听 127.0.0.1。
//
// # 端点
//
//	GET /debug/ibaddr           - 完整诊断报告
//	GET /debug/ibaddr/links     - 网络接口
//	GET /debug/ibaddr/routes    - 路由表
//	GET /debug/ibaddr/neighbors - 邻居表
//	GET /debug/ibaddr/runtime   - Go 运行时
//	GET /metrics                - Prometheus 指标
//	GET /debug/pprof/*          - Go pprof
//	GET /health                 - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:  "127.0.0.1:6060",
//	    Stack: stack,
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// 通过 config.Diagnostics.Enabled 启用。
package introspect
