//go:build !linux

package neigh

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ARPProber 非 Linux 平台不支持原始 ARP
type ARPProber struct{}

// NewARPProber 创建 ARP 探测器
func NewARPProber(time.Duration) *ARPProber {
	return &ARPProber{}
}

// Probe 总是返回 ErrProbeUnsupported
func (*ARPProber) Probe(context.Context, types.Link, netip.Addr) (net.HardwareAddr, error) {
	return nil, ErrProbeUnsupported
}
