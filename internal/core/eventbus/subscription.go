package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
)

// Subscription 事件订阅
type Subscription struct {
	bus   *Bus
	topic *topic
	out   chan interface{}
	once  sync.Once
}

var _ interfaces.Subscription = (*Subscription)(nil)

// Out 事件通道
func (s *Subscription) Out() <-chan interface{} { return s.out }

// Close 取消订阅并关闭 Out，可重复调用
func (s *Subscription) Close() error {
	s.once.Do(func() {
		// 先摘除再关闭通道，publish 持有 topic 锁写入
		if s.topic.detach(s) {
			s.bus.release(s.topic)
		}
		close(s.out)
	})
	return nil
}

// Emitter 事件发射器
type Emitter struct {
	bus    *Bus
	topic  *topic
	closed atomic.Bool
}

var _ interfaces.Emitter = (*Emitter)(nil)

// Emit 投递事件
func (e *Emitter) Emit(event interface{}) error {
	switch {
	case e.closed.Load():
		return ErrEmitterClosed
	case e.bus.closed.Load():
		return ErrClosed
	}
	e.topic.publish(event)
	return nil
}

// Close 关闭发射器，可重复调用
func (e *Emitter) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.topic.mu.Lock()
	e.topic.emitters--
	idle := len(e.topic.subs) == 0 && e.topic.emitters == 0
	e.topic.mu.Unlock()
	if idle {
		e.bus.release(e.topic)
	}
	return nil
}
