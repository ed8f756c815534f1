// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package spsc provides a fixed-capacity single-producer single-consumer
// queue that neither locks nor allocates after construction.
//
// One goroutine produces, one goroutine consumes. The queue is a ring of
// capacity slots (a power of 2) bracketed by a cache line of padding on
// each side. Each side publishes its own index with a release store and
// reads the peer's index with an acquire load, and only when its private
// cached copy of that index says the queue is full (producer) or empty
// (consumer).
//
// # Quick Start
//
//	q, err := spsc.New[Event](1024)
//	if err != nil {
//	    return err
//	}
//	defer q.Close()
//
//	go func() { // Producer
//	    for ev := range events {
//	        q.Push(ev) // busy-waits while full
//	    }
//	}()
//
//	go func() { // Consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        ev := q.Front()
//	        if ev == nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        handle(ev)
//	        q.Pop()
//	    }
//	}()
//
// # Operations
//
// Producer side:
//
//	Push(v)           - store v, spin while full
//	Emplace(fn)       - construct in place, spin while full
//	TryPush(v)        - store v or return ErrWouldBlock
//	TryEmplace(fn)    - construct in place or return ErrWouldBlock
//
// Consumer side:
//
//	Front()           - pointer to the oldest element, nil when empty
//	Pop()             - remove the element returned by Front
//	Dequeue()         - Front + copy + Pop, ErrWouldBlock when empty
//
// Either side, or any goroutine:
//
//	Size(), Empty()   - approximate under concurrent use
//	Cap()             - fixed capacity
//
// # Capacity
//
// Capacity must be a positive power of 2, and all of it is usable:
//
//	spsc.New[int](1)     // single-slot handoff
//	spsc.New[int](1024)  // 1024 elements
//	spsc.New[int](1000)  // ErrInvalidCapacity
//
// A [SizedAllocator] may return more storage than requested; the queue
// then grows to the largest power of 2 that fits.
//
// # Element Lifetime
//
// Slots start zeroed. Emplace hands the producer a pointer to the zeroed
// slot to construct into. Pop runs the [WithRelease] hook on the element
// and zeroes the slot so referenced memory can be collected. Close does
// the same for every element still queued and returns the storage to the
// allocator.
//
// # Allocators
//
// Slot storage is one contiguous allocation from an [Allocator]. The
// default is [HeapAllocator]. Package code.hybscloud.com/spsc/hugepage
// provides an mmap-backed [SizedAllocator] for pointer-free element types.
//
// # Error Handling
//
// Construction fails with [ErrInvalidCapacity] or [ErrAllocation].
// A full or empty queue is not a failure: the non-blocking operations
// return [ErrWouldBlock], sourced from [code.hybscloud.com/iox].
//
//	// Retry loop with backoff
//	backoff := iox.Backoff{}
//	for q.TryPush(item) != nil {
//	    backoff.Wait()
//	}
//	backoff.Reset()
//
// Precondition violations panic: Pop without an element observed by
// Front, and, with [WithChecks] or -tags spscdebug, overlapping calls
// from two producers or two consumers.
//
// # Thread Safety
//
// Exactly one producer goroutine and one consumer goroutine. They may be
// the same goroutine. Size, Empty and Cap may be called from anywhere.
// Violating these constraints causes undefined behavior including data
// corruption.
//
// Push and Emplace spin without parking, so the producer burns CPU while
// the queue is full. There is no cancellation; use TryPush with a
// deadline when latency must be bounded.
//
// # Race Detection
//
// Slot contents are ordered by acquire-release operations on the index
// atomics, which the race detector cannot observe. Concurrent tests are
// excluded via //go:build !race.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/atomix] for atomic primitives
// with explicit memory ordering, [code.hybscloud.com/spin] for the
// producer's busy-wait, [code.hybscloud.com/iox] for semantic errors and
// [golang.org/x/sys/cpu] for the cache line size.
package spsc
