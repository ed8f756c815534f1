// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"
)

// Allocator provides slot storage for a queue.
//
// Allocate returns a slice of at least n zeroed elements, or an error
// (typically wrapping [ErrOutOfMemory]). Deallocate returns storage
// previously obtained from Allocate. The queue calls Allocate once at
// construction and Deallocate once from Close.
type Allocator[T any] interface {
	Allocate(n int) ([]T, error)
	Deallocate(s []T) error
}

// SizedAllocator is an Allocator with size feedback.
//
// AllocateAtLeast may return more than n elements, e.g. when the request
// is rounded up to a page. The queue then grows its capacity to use the
// extra space, keeping capacity a power of 2.
type SizedAllocator[T any] interface {
	Allocator[T]
	AllocateAtLeast(n int) ([]T, error)
}

// HeapAllocator allocates slot storage on the Go heap.
// It is the default allocator.
type HeapAllocator[T any] struct{}

// Allocate returns make([]T, n).
//
// Requests the runtime refuses (larger than the address space it can
// serve) return an error wrapping [ErrOutOfMemory] instead of panicking.
func (HeapAllocator[T]) Allocate(n int) (s []T, err error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d elements", ErrOutOfMemory, n)
	}
	sz := unsafe.Sizeof(*new(T))
	if sz != 0 && uint64(n) > math.MaxInt/uint64(sz) {
		return nil, fmt.Errorf("%w: %d elements of %d bytes", ErrOutOfMemory, n, sz)
	}
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		re, ok := r.(runtime.Error)
		if !ok {
			panic(r)
		}
		s, err = nil, fmt.Errorf("%w: %d elements of %d bytes: %v", ErrOutOfMemory, n, sz, re)
	}()
	return make([]T, n), nil
}

// Deallocate drops the reference; the garbage collector reclaims it.
func (HeapAllocator[T]) Deallocate([]T) error {
	return nil
}

// allocate obtains storage for n elements, preferring the size-feedback
// path when a supports it.
func allocate[T any](a Allocator[T], n int) ([]T, error) {
	if sa, ok := a.(SizedAllocator[T]); ok {
		s, err := sa.AllocateAtLeast(n)
		if err != nil {
			return nil, err
		}
		if len(s) < n {
			_ = sa.Deallocate(s)
			return nil, fmt.Errorf("%w: AllocateAtLeast(%d) returned %d", ErrOutOfMemory, n, len(s))
		}
		return s, nil
	}
	s, err := a.Allocate(n)
	if err != nil {
		return nil, err
	}
	if len(s) < n {
		_ = a.Deallocate(s)
		return nil, fmt.Errorf("%w: Allocate(%d) returned %d", ErrOutOfMemory, n, len(s))
	}
	return s, nil
}
