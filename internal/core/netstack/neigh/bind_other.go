//go:build !linux

package neigh

import "syscall"

func bindToDevice(string) func(network, address string, c syscall.RawConn) error {
	return nil
}
