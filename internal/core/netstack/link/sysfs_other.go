//go:build !linux

package link

import "github.com/dep2p/go-ibaddr/pkg/types"

func applySysfs(*types.Link) {}
