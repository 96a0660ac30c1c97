package types

import (
	"fmt"
	"net/netip"
	"strconv"
)

// ============================================================================
//                              Family - 地址族
// ============================================================================

// Family 套接字地址族
type Family uint16

const (
	// FamilyUnspec 未指定
	FamilyUnspec Family = 0
	// FamilyIPv4 AF_INET
	FamilyIPv4 Family = 2
	// FamilyIPv6 AF_INET6
	FamilyIPv6 Family = 10
	// FamilyIB AF_IB（InfiniBand 原生地址）
	FamilyIB Family = 27
)

// String 返回地址族的字符串表示
func (f Family) String() string {
	switch f {
	case FamilyIPv4:
		return "ipv4"
	case FamilyIPv6:
		return "ipv6"
	case FamilyIB:
		return "ib"
	case FamilyUnspec:
		return "unspec"
	default:
		return "family(" + strconv.Itoa(int(f)) + ")"
	}
}

// 各地址族对应的 sockaddr 结构大小
const (
	sizeSockaddrIn  = 16
	sizeSockaddrIn6 = 28
	sizeSockaddrIB  = 48
)

// ============================================================================
//                              SockAddr - 套接字地址
// ============================================================================

// SockAddr 带地址族标签的套接字地址
//
// IPv4/IPv6 地址使用 IP 与 Port；IB 地址使用 GID 与 ServiceID。
type SockAddr struct {
	Family    Family
	IP        netip.Addr
	Port      uint16
	GID       GID
	ServiceID uint64
}

// NewSockAddr 从 IP 地址创建套接字地址，地址族由 IP 推导
func NewSockAddr(ip netip.Addr) SockAddr {
	ip = ip.Unmap()
	f := FamilyIPv6
	if ip.Is4() {
		f = FamilyIPv4
	}
	return SockAddr{Family: f, IP: ip}
}

// ParseSockAddr 解析 "1.2.3.4"、"fe80::1"、"1.2.3.4:4791" 形式的地址
func ParseSockAddr(s string) (SockAddr, error) {
	if ap, err := netip.ParseAddrPort(s); err == nil {
		sa := NewSockAddr(ap.Addr())
		sa.Port = ap.Port()
		return sa, nil
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return SockAddr{}, fmt.Errorf("%w: %q", ErrInvalidArgument, s)
	}
	return NewSockAddr(ip), nil
}

// Unspecified 返回指定地址族的通配地址
func Unspecified(f Family) SockAddr {
	switch f {
	case FamilyIPv4:
		return SockAddr{Family: f, IP: netip.IPv4Unspecified()}
	case FamilyIPv6:
		return SockAddr{Family: f, IP: netip.IPv6Unspecified()}
	default:
		return SockAddr{Family: f}
	}
}

// Size 返回地址族对应的 sockaddr 大小，未知地址族返回 0
func (a SockAddr) Size() int {
	switch a.Family {
	case FamilyIPv4:
		return sizeSockaddrIn
	case FamilyIPv6:
		return sizeSockaddrIn6
	case FamilyIB:
		return sizeSockaddrIB
	default:
		return 0
	}
}

// IsUnspecified 地址是否未指定（IP 无效或为通配地址）
func (a SockAddr) IsUnspecified() bool {
	if a.Family == FamilyIB {
		return a.GID.IsZero()
	}
	return !a.IP.IsValid() || a.IP.IsUnspecified()
}

// IsIP 是否为 IPv4/IPv6 地址
func (a SockAddr) IsIP() bool {
	return a.Family == FamilyIPv4 || a.Family == FamilyIPv6
}

// String 返回地址的字符串表示
func (a SockAddr) String() string {
	switch a.Family {
	case FamilyIB:
		return "ib:" + a.GID.String()
	case FamilyIPv4, FamilyIPv6:
		if !a.IP.IsValid() {
			return a.Family.String() + ":*"
		}
		if a.Port != 0 {
			return netip.AddrPortFrom(a.IP, a.Port).String()
		}
		return a.IP.String()
	default:
		return a.Family.String()
	}
}
