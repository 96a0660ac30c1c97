//go:build linux

package neigh

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"time"

	"golang.org/x/sys/unix"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ARPProber 通过 AF_PACKET 收发 ARP
//
// 只处理以太网链路上的 IPv4 地址，其它情况返回 ErrProbeUnsupported，
// 可与 UDPProber 组合为 FallbackProber。
type ARPProber struct {
	wait time.Duration
}

// NewARPProber 创建 ARP 探测器，wait 为等待应答的时长
func NewARPProber(wait time.Duration) *ARPProber {
	if wait <= 0 {
		wait = time.Second
	}
	return &ARPProber{wait: wait}
}

func htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// Probe 实现 Prober
func (p *ARPProber) Probe(ctx context.Context, link types.Link, ip netip.Addr) (net.HardwareAddr, error) {
	ip = ip.Unmap()
	if link.Type != types.LinkTypeEther || !ip.Is4() {
		return nil, ErrProbeUnsupported
	}
	src, ok := arpSource(link)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no ipv4 address", ErrProbeUnsupported, link.Name)
	}
	frame, err := BuildARPRequest(link.HardwareAddr, src, ip)
	if err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_ARP)))
	if err != nil {
		return nil, fmt.Errorf("af_packet socket: %w", err)
	}
	defer unix.Close(fd)

	sll := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ARP),
		Ifindex:  link.Index,
	}
	if err := unix.Bind(fd, sll); err != nil {
		return nil, fmt.Errorf("bind %s: %w", link.Name, err)
	}

	dst := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ARP),
		Ifindex:  link.Index,
		Halen:    6,
	}
	copy(dst.Addr[:], ethBroadcast)
	if err := unix.Sendto(fd, frame, 0, dst); err != nil {
		return nil, fmt.Errorf("send arp on %s: %w", link.Name, err)
	}

	deadline := time.Now().Add(p.wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	buf := make([]byte, 1500)
	for {
		remain := time.Until(deadline)
		if remain <= 0 || ctx.Err() != nil {
			return nil, nil
		}
		tv := unix.NsecToTimeval(remain.Nanoseconds())
		if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return nil, fmt.Errorf("set receive timeout: %w", err)
		}
		n, _, err := unix.Recvfrom(fd, buf, 0)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return nil, fmt.Errorf("receive arp on %s: %w", link.Name, err)
		}
		if from, hw, ok := ParseARPReply(buf[:n]); ok && from == ip {
			return hw, nil
		}
	}
}
