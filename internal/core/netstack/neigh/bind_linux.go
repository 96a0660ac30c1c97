//go:build linux

package neigh

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// bindToDevice 把套接字绑定到指定接口（SO_BINDTODEVICE）
//
// 没有权限时忽略错误，报文按路由表选择出接口。
func bindToDevice(name string) func(network, address string, c syscall.RawConn) error {
	if name == "" {
		return nil
	}
	return func(_, _ string, c syscall.RawConn) error {
		return c.Control(func(fd uintptr) {
			if err := unix.SetsockoptString(int(fd), unix.SOL_SOCKET, unix.SO_BINDTODEVICE, name); err != nil {
				logger.Debug("SO_BINDTODEVICE 失败", "dev", name, "err", err)
			}
		})
	}
}
