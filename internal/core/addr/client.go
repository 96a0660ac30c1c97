package addr

import (
	"context"
	"sync"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// Client 共享调度器的调用方
//
// 注册时持有一个自身引用，每个未完成的请求再持有一个。
// 注销释放自身引用并等待计数归零。
type Client struct {
	mu      sync.Mutex
	refs    int
	closing bool
	done    chan struct{}
}

var _ interfaces.AddressClient = (*Client)(nil)

func newClient() *Client {
	return &Client{
		refs: 1,
		done: make(chan struct{}),
	}
}

// Refs 当前引用计数
func (c *Client) Refs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}

// Closing 是否已开始注销
func (c *Client) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// get 为新请求增加引用，注销中的客户端返回 ErrClientClosed
func (c *Client) get() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return types.ErrClientClosed
	}
	c.refs++
	return nil
}

// put 释放一个引用，计数归零时唤醒等待者
func (c *Client) put() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs--
	if c.refs == 0 {
		close(c.done)
	}
}

// release 标记注销并释放自身引用，只有第一次调用生效并返回 true
func (c *Client) release() bool {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return false
	}
	c.closing = true
	c.mu.Unlock()
	c.put()
	return true
}

// wait 等待所有引用释放
func (c *Client) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ============================================================================
//                              客户端注册
// ============================================================================

// RegisterClient 注册新客户端
func (s *Scheduler) RegisterClient() interfaces.AddressClient {
	c := newClient()
	s.metrics.clientRegistered()
	return c
}

// UnregisterClient 注销客户端
//
// 之后针对该客户端的 Submit 返回 ErrClientClosed。阻塞直到该客户端
// 的所有请求都已回调，或 ctx 结束。可以重复调用。
func (s *Scheduler) UnregisterClient(ctx context.Context, ac interfaces.AddressClient) error {
	c, ok := ac.(*Client)
	if !ok || c == nil {
		return types.ErrInvalidArgument
	}

	if c.release() {
		s.metrics.clientUnregistered()
	}
	if err := c.wait(ctx); err != nil {
		logger.Warn("等待客户端请求完成被中断", "refs", c.Refs(), "err", err)
		return err
	}
	return nil
}
