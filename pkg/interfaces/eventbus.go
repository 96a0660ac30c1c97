package interfaces

// EventBus 进程内按类型分发的事件总线
//
// 事件类型以指针标识，例如 new(types.EvtNeighborUpdate)；
// 投递的是值本身。netstack 发布邻居与链路事件，addr 订阅它们唤醒调度器。
type EventBus interface {
	Subscribe(eventType interface{}, opts ...SubscriptionOpt) (Subscription, error)
	Emitter(eventType interface{}, opts ...EmitterOpt) (Emitter, error)

	// EventTypes 当前有订阅者或发射器的事件类型（零值实例）
	EventTypes() []interface{}
}

// Subscription 一个订阅，Close 后 Out 被关闭
type Subscription interface {
	Out() <-chan interface{}
	Close() error
}

// Emitter 某一事件类型的发布端
//
// Emit 不阻塞：订阅者缓冲区已满时该订阅者错过此事件。
type Emitter interface {
	Emit(event interface{}) error
	Close() error
}

// SubscriptionOpt 订阅选项
type SubscriptionOpt func(*SubscriptionSettings)

// EmitterOpt 发射器选项
type EmitterOpt func(*EmitterSettings)

// SubscriptionSettings 订阅参数
type SubscriptionSettings struct {
	// Buffer 通道容量
	Buffer int
}

// EmitterSettings 发射器参数
type EmitterSettings struct {
	// Sticky 保留最后一个事件，新订阅者立即收到
	Sticky bool
}

// BufSize 设置订阅通道容量
func BufSize(n int) SubscriptionOpt {
	return func(s *SubscriptionSettings) { s.Buffer = n }
}

// Sticky 让新订阅者立即收到最后一个事件
func Sticky() EmitterOpt {
	return func(s *EmitterSettings) { s.Sticky = true }
}
