// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

// Producer is the producer side of a queue.
//
// Exactly one goroutine may use the producer side at a time. Handing a
// Producer to a pipeline stage documents that the stage owns it.
//
// Example:
//
//	func generate(out spsc.Producer[int], n int) {
//	    for i := range n {
//	        out.Push(i)
//	    }
//	}
type Producer[T any] interface {
	// Push adds v, busy-waiting while the queue is full.
	Push(v T)

	// Emplace constructs an element in place, busy-waiting while full.
	Emplace(construct func(*T))

	// TryPush adds v.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	TryPush(v T) error

	// TryEmplace constructs an element in place.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	TryEmplace(construct func(*T)) error

	// Enqueue adds a copy of *elem.
	// Returns nil on success, ErrWouldBlock if the queue is full.
	Enqueue(elem *T) error
}

// Consumer is the consumer side of a queue.
//
// Exactly one goroutine may use the consumer side at a time.
//
// Example:
//
//	func drain(in spsc.Consumer[Event]) {
//	    for {
//	        ev := in.Front()
//	        if ev == nil {
//	            return
//	        }
//	        handle(ev)
//	        in.Pop()
//	    }
//	}
type Consumer[T any] interface {
	// Front returns the oldest element without removing it, or nil if
	// the queue is empty.
	Front() *T

	// Pop removes the element returned by the last successful Front.
	Pop()

	// Dequeue removes and returns the oldest element.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	Dequeue() (T, error)
}

var (
	_ Producer[int] = (*Queue[int])(nil)
	_ Consumer[int] = (*Queue[int])(nil)
)
