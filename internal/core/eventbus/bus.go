package eventbus

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

var (
	// ErrClosed 总线已关闭
	ErrClosed = errors.New("eventbus closed")
	// ErrInvalidEventType 事件类型为 nil
	ErrInvalidEventType = errors.New("invalid event type")
	// ErrNonPointerType 事件类型必须以指针给出
	ErrNonPointerType = errors.New("event type must be a pointer")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("emitter closed")
)

const defaultBufSize = 16

// dropWarnEvery 每丢弃这么多事件告警一次
const dropWarnEvery = 100

// ============================================================================
//                              Bus
// ============================================================================

// Bus 进程内事件总线，每个事件类型一个 topic
type Bus struct {
	mu     sync.Mutex
	topics map[reflect.Type]*topic
	closed atomic.Bool
}

var _ interfaces.EventBus = (*Bus)(nil)

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{topics: make(map[reflect.Type]*topic)}
}

// BufSize 设置订阅通道容量
func BufSize(n int) interfaces.SubscriptionOpt { return interfaces.BufSize(n) }

// Sticky 新订阅者立即收到最后一个事件
func Sticky() interfaces.EmitterOpt { return interfaces.Sticky() }

// Subscribe 订阅 eventType（指针）对应的事件
func (b *Bus) Subscribe(eventType interface{}, opts ...interfaces.SubscriptionOpt) (interfaces.Subscription, error) {
	typ, err := b.check(eventType)
	if err != nil {
		return nil, err
	}
	settings := interfaces.SubscriptionSettings{Buffer: defaultBufSize}
	for _, opt := range opts {
		opt(&settings)
	}

	sub := &Subscription{bus: b, out: make(chan interface{}, settings.Buffer)}
	b.acquire(typ, func(t *topic) { t.attach(sub) })
	return sub, nil
}

// Emitter 返回 eventType（指针）的发射器
func (b *Bus) Emitter(eventType interface{}, opts ...interfaces.EmitterOpt) (interfaces.Emitter, error) {
	typ, err := b.check(eventType)
	if err != nil {
		return nil, err
	}
	var settings interfaces.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	em := &Emitter{bus: b}
	b.acquire(typ, func(t *topic) {
		t.mu.Lock()
		t.emitters++
		if settings.Sticky {
			t.sticky = true
		}
		t.mu.Unlock()
		em.topic = t
	})
	return em, nil
}

// EventTypes 当前存在的事件类型
func (b *Bus) EventTypes() []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]interface{}, 0, len(b.topics))
	for typ := range b.topics {
		out = append(out, reflect.Zero(typ).Interface())
	}
	return out
}

// Close 关闭总线与全部订阅，可重复调用
func (b *Bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}

	b.mu.Lock()
	var subs []*Subscription
	for _, t := range b.topics {
		t.mu.Lock()
		subs = append(subs, t.subs...)
		t.mu.Unlock()
	}
	b.mu.Unlock()

	for _, s := range subs {
		_ = s.Close()
	}
	logger.Debug("事件总线已关闭", "subscriptions", len(subs))
	return nil
}

func (b *Bus) check(eventType interface{}) (reflect.Type, error) {
	if b.closed.Load() {
		return nil, ErrClosed
	}
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// acquire 在总线锁内对 typ 的 topic 执行 fn，不存在时创建
func (b *Bus) acquire(typ reflect.Type, fn func(*topic)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[typ]
	if !ok {
		t = &topic{typ: typ}
		b.topics[typ] = t
	}
	fn(t)
}

// release 在 topic 空闲时删除它
func (b *Bus) release(t *topic) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.topics[t.typ] != t {
		return
	}
	t.mu.Lock()
	idle := len(t.subs) == 0 && t.emitters == 0
	t.mu.Unlock()
	if idle {
		delete(b.topics, t.typ)
	}
}

// ============================================================================
//                              topic
// ============================================================================

type topic struct {
	typ reflect.Type

	mu       sync.Mutex
	subs     []*Subscription
	emitters int
	sticky   bool
	last     interface{}
	dropped  int64
}

func (t *topic) attach(sub *Subscription) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.subs = append(t.subs, sub)
	sub.topic = t
	if t.sticky && t.last != nil {
		select {
		case sub.out <- t.last:
		default:
		}
	}
}

// detach 返回 topic 是否已空闲
func (t *topic) detach(sub *Subscription) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s == sub {
			t.subs = append(t.subs[:i], t.subs[i+1:]...)
			break
		}
	}
	return len(t.subs) == 0 && t.emitters == 0
}

// publish 非阻塞投递，缓冲区满的订阅者错过事件
func (t *topic) publish(event interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sticky {
		t.last = event
	}
	for _, sub := range t.subs {
		select {
		case sub.out <- event:
		default:
			t.dropped++
			if t.dropped%dropWarnEvery == 1 {
				logger.Warn("订阅者处理过慢，事件被丢弃", "type", t.typ, "dropped", t.dropped)
			}
		}
	}
}
