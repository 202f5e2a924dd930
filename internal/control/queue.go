// SPDX-License-Identifier: MIT
package control

import (
	"sync"

	"polysynth/internal/ringbuf"
)

// Sender is implemented by anything that accepts control messages.
type Sender interface {
	Send(m Message) bool
}

// Queue hands messages from control surfaces to the audio callback.
//
// Any number of producers may call Send; they serialise on a mutex that the
// consumer never touches. The consumer, the audio callback, calls
// TryReceive, which is wait-free. A full queue drops the newest message.
type Queue struct {
	mu   sync.Mutex // producers only
	ring *ringbuf.Ring[Message]
}

// NewQueue returns a queue holding at least capacity messages.
func NewQueue(capacity int) *Queue {
	return &Queue{ring: ringbuf.New[Message](capacity)}
}

// Send enqueues m. It returns false when the queue is full and m was
// dropped.
func (q *Queue) Send(m Message) bool {
	q.mu.Lock()
	ok := q.ring.TryPush(m)
	q.mu.Unlock()
	return ok
}

// TryReceive pops the oldest message. An empty queue returns ok == false,
// which simply means no update this frame.
func (q *Queue) TryReceive() (m Message, ok bool) {
	return q.ring.TryPop()
}

// Len returns the number of pending messages.
func (q *Queue) Len() int { return q.ring.Len() }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return q.ring.Cap() }

// Dropped returns how many messages were discarded on overflow.
func (q *Queue) Dropped() uint64 { return q.ring.Dropped() }

var _ Sender = (*Queue)(nil)
