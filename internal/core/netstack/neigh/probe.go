package neigh

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// Prober 邻居探测器
type Prober interface {
	// Probe 对 link 上的 ip 发起一次探测
	//
	// 返回非空链路层地址表示探测器自己拿到了应答；返回 nil 表示
	// 解析由内核完成，结果经内核同步写回邻居表。
	Probe(ctx context.Context, link types.Link, ip netip.Addr) (net.HardwareAddr, error)
}

// discardPort 探测报文的目的端口（discard）
const discardPort = 9

// UDPProber 向目的地址发送一个空 UDP 报文，触发内核 ARP/ND
type UDPProber struct {
	timeout time.Duration
}

// NewUDPProber 创建 UDP 探测器
func NewUDPProber() *UDPProber {
	return &UDPProber{timeout: time.Second}
}

// Probe 实现 Prober
func (p *UDPProber) Probe(ctx context.Context, link types.Link, ip netip.Addr) (net.HardwareAddr, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	d := net.Dialer{Control: bindToDevice(link.Name)}
	addr := net.JoinHostPort(ip.WithZone(zoneFor(ip, link)).String(), strconv.Itoa(discardPort))
	conn, err := d.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("probe %s on %s: %w", ip, link.Name, err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte{0}); err != nil {
		return nil, fmt.Errorf("probe %s on %s: %w", ip, link.Name, err)
	}
	return nil, nil
}

// zoneFor 链路本地 IPv6 地址需要指定出接口
func zoneFor(ip netip.Addr, link types.Link) string {
	if ip.Is6() && (ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast()) {
		return link.Name
	}
	return ""
}

// FallbackProber 依次尝试多个探测器，直到某个成功
type FallbackProber []Prober

// Probe 实现 Prober
func (f FallbackProber) Probe(ctx context.Context, link types.Link, ip netip.Addr) (net.HardwareAddr, error) {
	var lastErr error
	for _, p := range f {
		hw, err := p.Probe(ctx, link, ip)
		if err == nil {
			return hw, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no prober configured")
	}
	return nil, lastErr
}

// enqueueProbe 排队一次探测，队列满时丢弃
func (t *Table) enqueueProbe(link types.Link, ip netip.Addr) {
	select {
	case t.probeQueue <- probeJob{link: link, ip: ip}:
	default:
		logger.Debug("探测队列已满，丢弃探测", "ip", ip, "link", link.Name)
	}
}

// probeLoop 串行执行探测
func (t *Table) probeLoop(ctx context.Context) {
	defer t.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-t.probeQueue:
			t.runProbe(ctx, job)
		}
	}
}

func (t *Table) runProbe(ctx context.Context, job probeJob) {
	hw, err := t.prober.Probe(ctx, job.link, job.ip)
	if err != nil {
		logger.Debug("邻居探测失败", "ip", job.ip, "link", job.link.Name, "err", err)
		return
	}
	if hw != nil {
		t.Update(job.link.Index, job.ip, hw, types.NeighborReachable)
	}
}
