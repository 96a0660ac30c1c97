// Package ibaddr 提供异步 RDMA/IP 地址解析
//
// 给定源地址和目的地址（IPv4、IPv6 或 InfiniBand GID），Resolver
// 查询主机路由确定出接口与源地址，再解析下一跳的链路层地址，
// 得到 RDMA 连接所需的设备地址绑定（types.DevAddr）。邻居尚未解析时
// 请求进入截止时间队列，邻居表更新或截止时间到达时重新尝试，
// 完成后在后台 goroutine 中调用回调，每个请求恰好回调一次。
//
// # 快速开始
//
//	r, err := ibaddr.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := r.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	client := r.RegisterClient()
//	defer r.UnregisterClient(ctx, client)
//
//	dst, _ := types.ParseSockAddr("10.0.0.2")
//	_, err = r.Submit(client, ibaddr.ResolveRequest{
//	    Dst:     dst,
//	    Timeout: 2 * time.Second,
//	    Callback: func(res ibaddr.ResolveResult) {
//	        fmt.Println(res.Status, res.Addr.DstDevAddr)
//	    },
//	})
//
// # 层次结构
//
//	┌──────────────────────────────────────────────────────────────┐
//	│  入口层     Resolver  ibaddr.New() / Start() / Close()        │
//	├──────────────────────────────────────────────────────────────┤
//	│  解析层     addr.Scheduler → addr.Engine                      │
//	├──────────────────────────────────────────────────────────────┤
//	│  网络栈     netstack: link.Registry / route.Table / neigh.Table│
//	├──────────────────────────────────────────────────────────────┤
//	│  基础设施   eventbus / netmon / config / metrics              │
//	└──────────────────────────────────────────────────────────────┘
//
// # 文件组织
//
//   - resolver.go - Resolver 门面与生命周期
//   - options.go  - 函数式选项
//   - fx.go       - Fx 应用组装
//   - errors.go   - 错误与类型再导出
package ibaddr
