//go:build !linux

package neigh

import "github.com/prometheus/procfs"

// HostKernelSource 非 Linux 平台只尝试 /proc/net/arp（通常不存在）
func HostKernelSource() ([]KernelEntry, error) {
	return ReadProcARP(procfs.DefaultMountPoint, ifindexByName)
}
