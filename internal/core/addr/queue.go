package addr

import (
	"container/list"
	"time"
)

// deadlineQueue 按截止时间非递减排序的请求队列
//
// 截止时间相同时保持插入顺序。非并发安全，由 Scheduler.mu 保护。
type deadlineQueue struct {
	l *list.List
}

func newDeadlineQueue() *deadlineQueue {
	return &deadlineQueue{l: list.New()}
}

// push 插入请求，返回它是否成为新的队首
//
// 从队尾向前找到第一个截止时间不晚于 r 的请求并插在其后。
func (q *deadlineQueue) push(r *Request) bool {
	for e := q.l.Back(); e != nil; e = e.Prev() {
		if !r.deadline.Before(e.Value.(*Request).deadline) {
			r.elem = q.l.InsertAfter(r, e)
			return false
		}
	}
	r.elem = q.l.PushFront(r)
	return true
}

// moveToFront 把仍在队列中的请求移到队首
func (q *deadlineQueue) moveToFront(r *Request) {
	if r.elem != nil {
		q.l.MoveToFront(r.elem)
	}
}

// remove 移除请求
func (q *deadlineQueue) remove(r *Request) {
	if r.elem != nil {
		q.l.Remove(r.elem)
		r.elem = nil
	}
}

// front 返回队首请求，队列为空时返回 nil
func (q *deadlineQueue) front() *Request {
	if e := q.l.Front(); e != nil {
		return e.Value.(*Request)
	}
	return nil
}

// nextDeadline 返回队首截止时间
func (q *deadlineQueue) nextDeadline() (time.Time, bool) {
	r := q.front()
	if r == nil {
		return time.Time{}, false
	}
	return r.deadline, true
}

// each 按队列顺序遍历，fn 内可以安全地移除当前请求
func (q *deadlineQueue) each(fn func(*Request)) {
	for e := q.l.Front(); e != nil; {
		next := e.Next()
		fn(e.Value.(*Request))
		e = next
	}
}

func (q *deadlineQueue) len() int {
	return q.l.Len()
}
