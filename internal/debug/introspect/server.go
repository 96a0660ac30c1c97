package introspect

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dep2p/go-ibaddr/internal/core/netstack"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
)

var logger = log.Logger("debug/introspect")

// DefaultAddr 默认监听地址
const DefaultAddr = "127.0.0.1:6060"

// ============================================================================
//                              配置
// ============================================================================

// QueueReporter 报告排队中的解析请求数
type QueueReporter interface {
	Pending() int
}

// Config 服务配置
type Config struct {
	// Addr 监听地址，默认 "127.0.0.1:6060"
	Addr string

	// Stack 可选，提供接口/路由/邻居视图
	Stack *netstack.Stack

	// Queue 可选
	Queue QueueReporter

	// Gatherer 可选，非空时挂载 /metrics
	Gatherer prometheus.Gatherer
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地诊断 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建诊断服务
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{config: cfg}
}

// Handler 返回服务的路由，不监听端口
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/ibaddr", s.handleReport)
	mux.HandleFunc("/debug/ibaddr/links", s.handleLinks)
	mux.HandleFunc("/debug/ibaddr/routes", s.handleRoutes)
	mux.HandleFunc("/debug/ibaddr/neighbors", s.handleNeighbors)
	mux.HandleFunc("/debug/ibaddr/runtime", s.handleRuntime)

	if s.config.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start 启动服务，重复调用无效
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("诊断服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("诊断服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭诊断服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

func (s *Server) uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return 0
	}
	return time.Since(s.startTime)
}

// ============================================================================
//                              响应结构
// ============================================================================

// Report 完整诊断报告
type Report struct {
	Timestamp time.Time      `json:"timestamp"`
	Uptime    string         `json:"uptime"`
	Pending   *int           `json:"pending,omitempty"`
	Links     []LinkInfo     `json:"links,omitempty"`
	Routes    []RouteInfo    `json:"routes,omitempty"`
	Neighbors []NeighborInfo `json:"neighbors,omitempty"`
	Runtime   *RuntimeInfo   `json:"runtime,omitempty"`
}

// LinkInfo 接口信息
type LinkInfo struct {
	Index        int      `json:"index"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	HardwareAddr string   `json:"hardware_addr,omitempty"`
	MTU          int      `json:"mtu"`
	Up           bool     `json:"up"`
	NoARP        bool     `json:"noarp,omitempty"`
	VlanID       uint16   `json:"vlan_id,omitempty"`
	Addrs        []string `json:"addrs,omitempty"`
}

// RouteInfo 路由信息
type RouteInfo struct {
	Prefix   string `json:"prefix"`
	IfIndex  int    `json:"ifindex"`
	Gateway  string `json:"gateway,omitempty"`
	Src      string `json:"src,omitempty"`
	HopLimit int    `json:"hop_limit,omitempty"`
	Metric   int    `json:"metric"`
	Local    bool   `json:"local,omitempty"`
	Origin   string `json:"origin"`
}

// NeighborInfo 邻居信息
type NeighborInfo struct {
	IfIndex      int       `json:"ifindex"`
	IP           string    `json:"ip"`
	HardwareAddr string    `json:"hardware_addr,omitempty"`
	State        string    `json:"state"`
	Updated      time.Time `json:"updated"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status string `json:"status"`
	Uptime string `json:"uptime"`
	Links  int    `json:"links"`
}

// ============================================================================
//                              处理器
// ============================================================================

func (s *Server) handleReport(w http.ResponseWriter, _ *http.Request) {
	report := Report{
		Timestamp: time.Now(),
		Uptime:    s.uptime().String(),
		Links:     s.collectLinks(),
		Routes:    s.collectRoutes(),
		Neighbors: s.collectNeighbors(),
		Runtime:   collectRuntime(),
	}
	if s.config.Queue != nil {
		n := s.config.Queue.Pending()
		report.Pending = &n
	}
	s.writeJSON(w, report)
}

func (s *Server) handleLinks(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.collectLinks())
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.collectRoutes())
}

func (s *Server) handleNeighbors(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.collectNeighbors())
}

func (s *Server) handleRuntime(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, collectRuntime())
}

// handleHealth 没有网络栈或没有可用接口时报告 degraded
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Uptime: s.uptime().String(),
	}
	if s.config.Stack == nil {
		resp.Status = "degraded"
	} else {
		for _, l := range s.config.Stack.Links().Links() {
			if l.IsUp() {
				resp.Links++
			}
		}
		if resp.Links == 0 {
			resp.Status = "degraded"
		}
	}
	s.writeJSON(w, resp)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectLinks() []LinkInfo {
	if s.config.Stack == nil {
		return nil
	}
	links := s.config.Stack.Links().Links()
	out := make([]LinkInfo, 0, len(links))
	for _, l := range links {
		info := LinkInfo{
			Index:  l.Index,
			Name:   l.Name,
			Type:   l.Type.String(),
			MTU:    l.MTU,
			Up:     l.IsUp(),
			NoARP:  l.NoARP,
			VlanID: l.VlanID,
		}
		if len(l.HardwareAddr) > 0 {
			info.HardwareAddr = l.HardwareAddr.String()
		}
		for _, p := range l.Addrs {
			info.Addrs = append(info.Addrs, p.String())
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) collectRoutes() []RouteInfo {
	if s.config.Stack == nil {
		return nil
	}
	routes := s.config.Stack.Routes().Routes()
	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		info := RouteInfo{
			Prefix:   r.Prefix.String(),
			IfIndex:  r.IfIndex,
			HopLimit: r.HopLimit,
			Metric:   r.Metric,
			Local:    r.Local,
			Origin:   r.Origin.String(),
		}
		if r.Gateway.IsValid() {
			info.Gateway = r.Gateway.String()
		}
		if r.Src.IsValid() {
			info.Src = r.Src.String()
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) collectNeighbors() []NeighborInfo {
	if s.config.Stack == nil {
		return nil
	}
	neighbors := s.config.Stack.Neighbors()
	entries := append(neighbors.StaticEntries(), neighbors.Entries()...)
	out := make([]NeighborInfo, 0, len(entries))
	for _, e := range entries {
		info := NeighborInfo{
			IfIndex: e.IfIndex,
			IP:      e.IP.String(),
			State:   e.State.String(),
			Updated: e.Updated,
		}
		if len(e.HardwareAddr) > 0 {
			info.HardwareAddr = e.HardwareAddr.String()
		}
		out = append(out, info)
	}
	return out
}

func collectRuntime() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// writeJSON 写入 JSON 响应
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
