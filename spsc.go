// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"fmt"
	"unsafe"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Queue is a fixed-capacity single-producer single-consumer queue.
//
// Based on Lamport's ring buffer with cached index optimization.
// The producer caches the consumer's read index, and vice versa, so the
// peer's cache line is only touched when the cached value says full
// (producer) or empty (consumer).
//
// Indices grow monotonically and map to slots through mask, so the
// difference writeIdx-readIdx distinguishes full from empty without a
// reserved slack slot: all capacity slots are usable.
//
// Go cannot over-align heap objects, so isolation does not rely on the
// struct starting on a cache line. Every group of hot fields is separated
// from its neighbours by a full cache line of padding, which keeps the
// groups on disjoint lines for any 8-byte aligned base address.
//
// Memory: capacity + 2*padding slots, where padding covers one cache line.
type Queue[T any] struct {
	_ pad

	// Producer line.
	writeIdx     atomix.Uint64 // Published by the producer
	readIdxCache uint64        // Producer's cached view of readIdx
	_            pad

	// Consumer line.
	readIdx       atomix.Uint64 // Published by the consumer
	writeIdxCache uint64        // Consumer's cached view of writeIdx
	_             pad

	// Read-only after construction.
	base     unsafe.Pointer // &slots[padding]
	elemSize uintptr
	mask     uint64
	capacity uint64
	padding  int
	slots    []T
	alloc    Allocator[T]
	release  func(*T)
	guard    *guard
	closed   bool
	_        pad
}

// Layout invariant: hot producer, hot consumer and read-only state occupy
// disjoint cache lines; the object spans at least three lines.
var _ [unsafe.Sizeof(Queue[byte]{}) - 3*unsafe.Sizeof(pad{})]struct{}

// guard detects overlapping producer or consumer calls.
type guard struct {
	producer atomix.Uint64
	_        pad
	consumer atomix.Uint64
}

// New creates a queue holding exactly capacity elements.
//
// Capacity must be a positive power of 2; otherwise New returns
// [ErrInvalidCapacity]. If the allocator fails, New returns an error
// wrapping [ErrAllocation] and the allocator's error.
//
// With a [SizedAllocator], the capacity grows to the largest power of 2
// that fits the storage actually returned.
func New[T any](capacity int, opts ...Option[T]) (*Queue[T], error) {
	if !isPow2(capacity) {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	o := buildOptions(opts)

	elemSize := unsafe.Sizeof(*new(T))
	padding := slotPadding(elemSize)
	slots, err := allocate(o.alloc, capacity+2*padding)
	if err != nil {
		return nil, fmt.Errorf("%w: %d slots: %w", ErrAllocation, capacity+2*padding, err)
	}

	n := uint64(capacity)
	if usable := uint64(len(slots) - 2*padding); usable > n {
		n = floorPow2(usable)
	}

	q := &Queue[T]{
		base:     unsafe.Pointer(unsafe.SliceData(slots[padding:])),
		elemSize: elemSize,
		mask:     n - 1,
		capacity: n,
		padding:  padding,
		slots:    slots,
		alloc:    o.alloc,
		release:  o.release,
	}
	if o.checked {
		q.guard = &guard{}
	}
	return q, nil
}

// MustNew is like New but panics on error.
func MustNew[T any](capacity int, opts ...Option[T]) *Queue[T] {
	q, err := New[T](capacity, opts...)
	if err != nil {
		panic(err)
	}
	return q
}

// slot returns the storage cell for logical index i.
// Pointer arithmetic avoids slice bounds checking in hot path.
// Equivalent to &q.slots[(i&q.mask)+q.padding]
func (q *Queue[T]) slot(i uint64) *T {
	return (*T)(unsafe.Add(q.base, uintptr(i&q.mask)*q.elemSize))
}

// reserve returns the write index if a slot is free (producer only).
// The peer index is loaded only when the cached view says full.
func (q *Queue[T]) reserve() (uint64, bool) {
	w := q.writeIdx.LoadRelaxed()
	if w-q.readIdxCache == q.capacity {
		q.readIdxCache = q.readIdx.LoadAcquire()
		if w-q.readIdxCache == q.capacity {
			return w, false
		}
	}
	return w, true
}

// reserveWait spins until a slot is free (producer only).
func (q *Queue[T]) reserveWait() uint64 {
	w, ok := q.reserve()
	if ok {
		return w
	}
	sw := spin.Wait{}
	for {
		sw.Once()
		q.readIdxCache = q.readIdx.LoadAcquire()
		if w-q.readIdxCache != q.capacity {
			return w
		}
	}
}

// Push adds v to the queue (producer only).
// Push busy-waits while the queue is full; it never parks the goroutine
// and cannot be cancelled. Use TryPush to implement backoff or timeouts.
//
// v is stored by value: pass a copy to keep using the original, or hand
// over the only reference to transfer ownership.
func (q *Queue[T]) Push(v T) {
	q.enterProducer()
	w := q.reserveWait()
	*q.slot(w) = v
	q.writeIdx.StoreRelease(w + 1)
	q.leaveProducer()
}

// Emplace constructs an element in place (producer only).
// construct receives a pointer to a zeroed slot and must not retain it.
// Emplace busy-waits while the queue is full.
func (q *Queue[T]) Emplace(construct func(*T)) {
	q.enterProducer()
	w := q.reserveWait()
	construct(q.slot(w))
	q.writeIdx.StoreRelease(w + 1)
	q.leaveProducer()
}

// TryPush adds v to the queue (producer only).
// Returns ErrWouldBlock if the queue is full; the queue is unchanged.
func (q *Queue[T]) TryPush(v T) error {
	q.enterProducer()
	w, ok := q.reserve()
	if !ok {
		q.leaveProducer()
		return ErrWouldBlock
	}
	*q.slot(w) = v
	q.writeIdx.StoreRelease(w + 1)
	q.leaveProducer()
	return nil
}

// TryEmplace constructs an element in place (producer only).
// Returns ErrWouldBlock if the queue is full; construct is not called.
func (q *Queue[T]) TryEmplace(construct func(*T)) error {
	q.enterProducer()
	w, ok := q.reserve()
	if !ok {
		q.leaveProducer()
		return ErrWouldBlock
	}
	construct(q.slot(w))
	q.writeIdx.StoreRelease(w + 1)
	q.leaveProducer()
	return nil
}

// Enqueue adds a copy of *elem to the queue (producer only).
// Returns ErrWouldBlock if the queue is full.
func (q *Queue[T]) Enqueue(elem *T) error {
	return q.TryPush(*elem)
}

// Front returns the oldest element, or nil if the queue is empty
// (consumer only).
//
// The element stays owned by the queue: it is valid until the next Pop.
// Repeated calls without Pop return the same pointer.
func (q *Queue[T]) Front() *T {
	q.enterConsumer()
	r := q.readIdx.LoadRelaxed()
	if r == q.writeIdxCache {
		q.writeIdxCache = q.writeIdx.LoadAcquire()
		if r == q.writeIdxCache {
			q.leaveConsumer()
			return nil
		}
	}
	q.leaveConsumer()
	return q.slot(r)
}

// Pop removes the element last returned by Front (consumer only).
//
// The release hook, if any, runs on the element before its slot is
// zeroed and handed back to the producer.
//
// Pop panics if Front has not observed an element.
func (q *Queue[T]) Pop() {
	q.enterConsumer()
	r := q.readIdx.LoadRelaxed()
	// writeIdxCache >= readIdx always; equality means nothing was observed.
	if r == q.writeIdxCache {
		q.leaveConsumer()
		panic(errPopEmpty)
	}
	q.destroy(q.slot(r))
	q.readIdx.StoreRelease(r + 1)
	q.leaveConsumer()
}

// Dequeue removes and returns the oldest element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Queue[T]) Dequeue() (T, error) {
	p := q.Front()
	if p == nil {
		var zero T
		return zero, ErrWouldBlock
	}
	elem := *p
	q.Pop()
	return elem, nil
}

// destroy ends the lifetime of the element at p.
func (q *Queue[T]) destroy(p *T) {
	if q.release != nil {
		q.release(p)
	}
	var zero T
	*p = zero
}

// Size returns the number of queued elements.
//
// The two indices are loaded independently, so under concurrent use the
// result may be off by the operations in flight. It is exact when no
// other goroutine is using the queue.
func (q *Queue[T]) Size() int {
	w := q.writeIdx.LoadAcquire()
	r := q.readIdx.LoadAcquire()
	if r > w {
		return 0
	}
	if w-r > q.capacity {
		return int(q.capacity)
	}
	return int(w - r)
}

// Empty reports whether Size is 0.
func (q *Queue[T]) Empty() bool {
	return q.Size() == 0
}

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int {
	return int(q.capacity)
}

// Close releases every element still queued, then returns slot storage
// to the allocator.
//
// Close must only be called once neither the producer nor the consumer
// uses the queue any more. A second Close returns ErrClosed.
func (q *Queue[T]) Close() error {
	if q.closed {
		return ErrClosed
	}
	q.closed = true
	r := q.readIdx.LoadAcquire()
	w := q.writeIdx.LoadAcquire()
	for ; r != w; r++ {
		q.destroy(q.slot(r))
	}
	q.readIdx.StoreRelease(r)
	q.writeIdxCache = r

	slots := q.slots
	q.slots = nil
	q.base = nil
	return q.alloc.Deallocate(slots)
}

func (q *Queue[T]) enterProducer() {
	if q.guard != nil && !q.guard.producer.CompareAndSwapAcqRel(0, 1) {
		panic(errConcurrentProducer)
	}
}

func (q *Queue[T]) leaveProducer() {
	if q.guard != nil {
		q.guard.producer.StoreRelease(0)
	}
}

func (q *Queue[T]) enterConsumer() {
	if q.guard != nil && !q.guard.consumer.CompareAndSwapAcqRel(0, 1) {
		panic(errConcurrentConsumer)
	}
}

func (q *Queue[T]) leaveConsumer() {
	if q.guard != nil {
		q.guard.consumer.StoreRelease(0)
	}
}
