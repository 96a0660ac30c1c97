// Package eventbus 实现进程内事件总线
//
// 每个事件类型对应一个 topic，网络栈通过它把
// types.EvtNeighborUpdate 和 types.EvtLinkChange 送达地址解析调度器。
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtNeighborUpdate))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(types.EvtNeighborUpdate)
//	        // 处理事件
//	    }
//	}()
//
//	em, _ := bus.Emitter(new(types.EvtNeighborUpdate))
//	defer em.Close()
//	em.Emit(types.EvtNeighborUpdate{...})
//
// # 投递语义
//
// 发射是非阻塞的：订阅者缓冲区满时事件被丢弃并计数。
// Sticky 发射器保留最后一个事件，新订阅者在订阅时立即收到。
//
// # 依赖关系
//
//   - 依赖：pkg/interfaces
//   - 被依赖：netstack/neigh, netstack, addr
package eventbus
