// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"unsafe"

	"golang.org/x/sys/cpu"
)

// Option configures queue creation.
//
// Example:
//
//	q, err := spsc.New[Event](1024,
//	    spsc.WithAllocator[Event](alloc),
//	    spsc.WithRelease(func(ev *Event) { ev.Buf.Release() }),
//	)
type Option[T any] func(*options[T])

type options[T any] struct {
	alloc   Allocator[T]
	release func(*T)
	checked bool
}

// WithAllocator sets the allocator for slot storage.
// The default is [HeapAllocator].
//
// If a implements [SizedAllocator], the queue uses the actual allocated
// count and its capacity may exceed the requested one.
func WithAllocator[T any](a Allocator[T]) Option[T] {
	return func(o *options[T]) {
		o.alloc = a
	}
}

// WithRelease sets a hook run exactly once on every element leaving the
// queue, by Pop or by Close, just before its slot is zeroed.
//
// fn runs on the consumer goroutine (or the goroutine calling Close) and
// must not panic.
func WithRelease[T any](fn func(*T)) Option[T] {
	return func(o *options[T]) {
		o.release = fn
	}
}

// WithChecks enables SPSC discipline checks: overlapping calls from two
// producers, or from two consumers, panic instead of corrupting the queue.
//
// Checks add an atomic read-modify-write per operation. They are always
// on when built with -tags spscdebug.
func WithChecks[T any]() Option[T] {
	return func(o *options[T]) {
		o.checked = true
	}
}

func buildOptions[T any](opts []Option[T]) options[T] {
	o := options[T]{checked: debugChecks}
	for _, opt := range opts {
		opt(&o)
	}
	if o.alloc == nil {
		o.alloc = HeapAllocator[T]{}
	}
	return o
}

// CacheLineSize is the cache line size assumed for padding, in bytes.
// It follows [cpu.CacheLinePad] for the target architecture.
const CacheLineSize = int(unsafe.Sizeof(cpu.CacheLinePad{}))

// pad is cache line padding to prevent false sharing.
type pad [CacheLineSize]byte

// isPow2 reports whether n is a positive power of 2.
func isPow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// floorPow2 rounds n down to a power of 2. n must be positive.
func floorPow2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n - n>>1
}

// slotPadding returns the number of elements of size elemSize needed to
// cover one cache line on each side of the slot array.
func slotPadding(elemSize uintptr) int {
	if elemSize == 0 {
		return 0
	}
	return (CacheLineSize-1)/int(elemSize) + 1
}
