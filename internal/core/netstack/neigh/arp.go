package neigh

import (
	"errors"
	"fmt"
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/dep2p/go-ibaddr/pkg/types"
)

// ErrProbeUnsupported 当前平台或链路不支持该探测方式
var ErrProbeUnsupported = errors.New("probe not supported")

var ethBroadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// arpSource 选择 ARP 请求的发送方地址：link 上第一个 IPv4 地址
func arpSource(link types.Link) (netip.Addr, bool) {
	for _, p := range link.Addrs {
		if a := p.Addr().Unmap(); a.Is4() {
			return a, true
		}
	}
	return netip.Addr{}, false
}

// BuildARPRequest 构造广播 ARP 请求帧
//
// VLAN 接口直接使用其自身的 AF_PACKET 套接字，由内核打标签，
// 因此帧中不包含 802.1Q 头。
func BuildARPRequest(srcHW net.HardwareAddr, srcIP, dstIP netip.Addr) ([]byte, error) {
	if len(srcHW) != 6 {
		return nil, fmt.Errorf("%w: hardware address length %d", ErrProbeUnsupported, len(srcHW))
	}
	if !srcIP.Is4() || !dstIP.Is4() {
		return nil, fmt.Errorf("%w: arp requires ipv4", ErrProbeUnsupported)
	}

	eth := layers.Ethernet{
		SrcMAC:       srcHW,
		DstMAC:       ethBroadcast,
		EthernetType: layers.EthernetTypeARP,
	}
	s4, d4 := srcIP.As4(), dstIP.As4()
	arp := layers.ARP{
		AddrType:          layers.LinkTypeEthernet,
		Protocol:          layers.EthernetTypeIPv4,
		HwAddressSize:     6,
		ProtAddressSize:   4,
		Operation:         layers.ARPRequest,
		SourceHwAddress:   []byte(srcHW),
		SourceProtAddress: s4[:],
		DstHwAddress:      make([]byte, 6),
		DstProtAddress:    d4[:],
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, &arp); err != nil {
		return nil, fmt.Errorf("serialize arp: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseARPReply 从以太网帧中提取 ARP 应答的发送方地址
func ParseARPReply(frame []byte) (netip.Addr, net.HardwareAddr, bool) {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.NoCopy)
	l := pkt.Layer(layers.LayerTypeARP)
	if l == nil {
		return netip.Addr{}, nil, false
	}
	arp, _ := l.(*layers.ARP)
	if arp == nil || arp.Operation != layers.ARPReply {
		return netip.Addr{}, nil, false
	}
	ip, ok := netip.AddrFromSlice(arp.SourceProtAddress)
	if !ok || len(arp.SourceHwAddress) != 6 {
		return netip.Addr{}, nil, false
	}
	return ip.Unmap(), append(net.HardwareAddr(nil), arp.SourceHwAddress...), true
}
