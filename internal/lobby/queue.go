package lobby

import "sync"

// MessageQueue is a client's FIFO of undelivered messages. It carries its own
// lock so a poll handler can drain it without holding the registry lock.
type MessageQueue struct {
	mu    sync.Mutex
	items []Message
}

func newMessageQueue() *MessageQueue {
	return &MessageQueue{}
}

// Push appends msg to the back of the queue.
func (q *MessageQueue) Push(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// PushFront puts msg back at the head of the queue.
func (q *MessageQueue) PushFront(msg Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append([]Message{msg}, q.items...)
}

// Pop removes and returns the oldest message, if any.
func (q *MessageQueue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return msg, true
}

// Len returns the number of queued messages. A nil queue is empty.
func (q *MessageQueue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every queued message in arrival order. A nil
// queue drains to nothing.
func (q *MessageQueue) Drain() []Message {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
