package types

import (
	"encoding/hex"
	"net/netip"
	"strings"
)

// GIDLen GID 字节长度
const GIDLen = 16

// GID InfiniBand 全局标识符
//
// RoCE 设备的 GID 由 IP 地址派生：IPv4 地址以 IPv4-mapped IPv6 形式存放。
type GID [GIDLen]byte

// IsZero 是否为全零 GID
func (g GID) IsZero() bool {
	return g == GID{}
}

// String 返回冒号分隔的十六进制表示
func (g GID) String() string {
	var b strings.Builder
	for i := 0; i < GIDLen; i += 2 {
		if i > 0 {
			b.WriteByte(':')
		}
		b.WriteString(hex.EncodeToString(g[i : i+2]))
	}
	return b.String()
}

// ParseGID 解析 GID，接受 IPv6 文本形式（例如 "fe80::1" 或 "::ffff:10.0.0.1"）
func ParseGID(s string) (GID, error) {
	ip, err := netip.ParseAddr(s)
	if err != nil || !ip.Is6() && !ip.Is4() {
		return GID{}, ErrInvalidArgument
	}
	return IPToGID(ip), nil
}

// IPToGID 将 IP 地址转换为 GID
func IPToGID(ip netip.Addr) GID {
	return GID(ip.As16())
}

// GIDToIP 将 GID 转换为套接字地址
//
// IPv4-mapped GID 转换为 IPv4 地址，其余转换为 IPv6 地址。
func GIDToIP(g GID) SockAddr {
	ip := netip.AddrFrom16(g)
	if ip.Is4In6() {
		return SockAddr{Family: FamilyIPv4, IP: ip.Unmap()}
	}
	return SockAddr{Family: FamilyIPv6, IP: ip}
}
