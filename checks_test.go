// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc

import "testing"

func expectPanic(t *testing.T, want string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("no panic, want %q", want)
		}
		if s, ok := r.(string); !ok || s != want {
			t.Fatalf("panic: got %v, want %q", r, want)
		}
	}()
	fn()
}

// TestChecksDetectOverlappingProducer simulates a second producer by
// holding the producer guard while another call enters.
func TestChecksDetectOverlappingProducer(t *testing.T) {
	q := MustNew(4, WithChecks[int]())
	if q.guard == nil {
		t.Fatal("WithChecks did not install guard")
	}

	q.guard.producer.StoreRelease(1)
	expectPanic(t, errConcurrentProducer, func() { q.Push(1) })
	expectPanic(t, errConcurrentProducer, func() { _ = q.TryPush(1) })
	expectPanic(t, errConcurrentProducer, func() { q.Emplace(func(*int) {}) })
	expectPanic(t, errConcurrentProducer, func() { _ = q.TryEmplace(func(*int) {}) })
	q.guard.producer.StoreRelease(0)

	// Consumer side still usable while the producer is "busy".
	if q.Front() != nil {
		t.Fatal("Front on empty queue returned element")
	}
}

func TestChecksDetectOverlappingConsumer(t *testing.T) {
	q := MustNew(4, WithChecks[int]())
	q.Push(1)

	q.guard.consumer.StoreRelease(1)
	expectPanic(t, errConcurrentConsumer, func() { q.Front() })
	expectPanic(t, errConcurrentConsumer, func() { q.Pop() })
	expectPanic(t, errConcurrentConsumer, func() { _, _ = q.Dequeue() })
	q.guard.consumer.StoreRelease(0)

	v, err := q.Dequeue()
	if err != nil || v != 1 {
		t.Fatalf("Dequeue: got (%d, %v), want (1, nil)", v, err)
	}
}

func TestChecksReleaseGuards(t *testing.T) {
	q := MustNew(2, WithChecks[int]())
	for i := range 100 {
		q.Push(i)
		if err := q.TryPush(i); err != nil {
			t.Fatalf("TryPush(%d): %v", i, err)
		}
		if err := q.TryPush(i); !IsWouldBlock(err) {
			t.Fatalf("TryPush on full: got %v", err)
		}
		for range 2 {
			if q.Front() == nil {
				t.Fatal("Front: got nil")
			}
			q.Pop()
		}
	}
	if q.guard.producer.Load() != 0 || q.guard.consumer.Load() != 0 {
		t.Fatal("guard left held after successful operations")
	}
}

func TestPopEmptyMessage(t *testing.T) {
	q := MustNew[int](2)
	expectPanic(t, errPopEmpty, func() { q.Pop() })
}

func TestChecksDefault(t *testing.T) {
	q := MustNew[int](2)
	if (q.guard != nil) != debugChecks {
		t.Fatalf("guard installed: got %v, want %v", q.guard != nil, debugChecks)
	}
}
