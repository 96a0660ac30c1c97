// Package main 提供 ibaddr 命令行入口
//
// 使用主机网络栈对一个目的地址做一次解析并打印设备地址绑定：
//
//	ibaddr [-src IP] [-timeout 2s] [-route-only] [-config file.json] [-log-level info] DST
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dep2p/go-ibaddr"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

var logger = log.Logger("ibaddr/cmd")

// version 发布时通过 -ldflags 注入
var version = "dev"

var (
	srcAddr     = flag.String("src", "", "源地址（默认由路由选择）")
	timeout     = flag.Duration("timeout", 2*time.Second, "邻居解析超时")
	routeOnly   = flag.Bool("route-only", false, "只做路由解析，不解析邻居")
	ifindex     = flag.Int("if", 0, "要求的出接口索引（0 = 不限制）")
	configFile  = flag.String("config", "", "配置文件路径")
	logLevel    = flag.String("log-level", "warn", "日志级别 (debug/info/warn/error)")
	logFormat   = flag.String("log-format", "text", "日志格式 (text/json)")
	showVersion = flag.Bool("version", false, "显示版本信息")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "用法: %s [选项] DST\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *showVersion {
		fmt.Println("ibaddr", version)
		return
	}
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run() error {
	level, err := log.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	format, err := log.ParseFormat(*logFormat)
	if err != nil {
		return err
	}
	log.Setup(os.Stderr, format, level)

	if flag.NArg() != 1 {
		flag.Usage()
		return fmt.Errorf("%w: expected exactly one destination", ibaddr.ErrInvalidArgument)
	}
	dst, err := types.ParseSockAddr(flag.Arg(0))
	if err != nil {
		return err
	}
	var src *types.SockAddr
	if *srcAddr != "" {
		s, err := types.ParseSockAddr(*srcAddr)
		if err != nil {
			return err
		}
		src = &s
	}

	var opts []ibaddr.Option
	if *configFile != "" {
		opts = append(opts, ibaddr.WithConfigFile(*configFile))
	}
	r, err := ibaddr.New(opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := r.Close(); err != nil {
			logger.Warn("关闭解析器失败", "err", err)
		}
	}()

	hint := types.DevAddr{BoundIfIndex: *ifindex}
	if *routeOnly {
		s, addr, err := r.ResolveRoute(ctx, src, dst, hint)
		if err != nil {
			return err
		}
		printBinding(os.Stdout, s, dst, addr)
		return nil
	}

	c := r.RegisterClient()
	defer func() { _ = r.UnregisterClient(context.Background(), c) }()

	res, err := r.Resolve(ctx, c, src, dst, hint, *timeout)
	if err != nil {
		return err
	}
	printBinding(os.Stdout, res.Src, dst, res.Addr)
	return nil
}

func printBinding(w io.Writer, src, dst types.SockAddr, addr types.DevAddr) {
	fmt.Fprintf(w, "src        %s\n", src)
	fmt.Fprintf(w, "dst        %s\n", dst)
	fmt.Fprintf(w, "ifindex    %d\n", addr.BoundIfIndex)
	fmt.Fprintf(w, "dev type   %s\n", addr.DevType)
	fmt.Fprintf(w, "network    %s\n", addr.Network)
	fmt.Fprintf(w, "hop limit  %d\n", addr.HopLimit)
	if len(addr.SrcDevAddr) > 0 {
		fmt.Fprintf(w, "src hw     %s\n", addr.SrcDevAddr)
	}
	if len(addr.DstDevAddr) > 0 {
		fmt.Fprintf(w, "dst hw     %s\n", addr.DstDevAddr)
	}
	if len(addr.Broadcast) > 0 {
		fmt.Fprintf(w, "broadcast  %s\n", addr.Broadcast)
	}
}

// exitCode 超时与无路由使用不同的退出码，便于脚本区分
func exitCode(err error) int {
	switch {
	case errors.Is(err, ibaddr.ErrTimedOut):
		return 2
	case errors.Is(err, ibaddr.ErrNoRoute), errors.Is(err, ibaddr.ErrAddrNotAvailable):
		return 3
	default:
		return 1
	}
}
