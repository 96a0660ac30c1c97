package addr

import (
	"container/list"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-ibaddr/pkg/interfaces"
	"github.com/dep2p/go-ibaddr/pkg/types"
)

// Request 一个待完成的地址解析请求
//
// 入队后由队列独占，所有可变字段只在持有 Scheduler.mu 时访问；
// 出队后只有完成流程持有它。
type Request struct {
	id string

	src  types.SockAddr
	dst  types.SockAddr
	addr types.DevAddr

	deadline time.Time
	status   types.Status
	err      error

	client   *Client
	callback interfaces.ResolveCallback

	sched     *Scheduler
	elem      *list.Element
	submitted time.Time
}

var _ interfaces.RequestHandle = (*Request)(nil)

func newRequest(s *Scheduler, c *Client, src, dst types.SockAddr, hint types.DevAddr, cb interfaces.ResolveCallback) *Request {
	return &Request{
		id:        uuid.NewString(),
		src:       src,
		dst:       dst,
		addr:      hint.Clone(),
		status:    types.StatusInProgress,
		client:    c,
		callback:  cb,
		sched:     s,
		submitted: s.clock.Now(),
	}
}

// ID 请求标识
func (r *Request) ID() string {
	return r.id
}

// Deadline 截止时间，Cancel 会把它提前到当前时间
func (r *Request) Deadline() time.Time {
	r.sched.mu.Lock()
	defer r.sched.mu.Unlock()
	return r.deadline
}

// queued 是否仍在队列中（调用方需持有 Scheduler.mu）
func (r *Request) queued() bool {
	return r.elem != nil
}

// result 构造回调结果
func (r *Request) result() interfaces.ResolveResult {
	res := interfaces.ResolveResult{
		Status: r.status,
		Err:    r.err,
		Src:    r.src,
	}
	if r.status == types.StatusSucceeded {
		res.Addr = r.addr.Clone()
	}
	return res
}
