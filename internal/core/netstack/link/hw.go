package link

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"
)

// parseHW 解析任意长度的冒号分隔链路层地址
//
// net.ParseMAC 只接受 6、8、20 字节，sysfs 中的地址长度不限于此。
func parseHW(s string) (net.HardwareAddr, error) {
	if s == "" {
		return nil, fmt.Errorf("empty hardware address")
	}
	b, err := hex.DecodeString(strings.ReplaceAll(s, ":", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid hardware address %q: %w", s, err)
	}
	return net.HardwareAddr(b), nil
}
