// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package spsc_test

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/eapache/queue"

	"code.hybscloud.com/spsc"
)

// TestMatchesModel drives the queue and an unbounded reference FIFO with
// the same random operations from a single goroutine, where Size is exact.
func TestMatchesModel(t *testing.T) {
	for _, c := range []int{1, 2, 4, 16, 128} {
		t.Run(fmt.Sprintf("cap=%d", c), func(t *testing.T) {
			rng := rand.New(rand.NewPCG(uint64(c), 42))
			q := spsc.MustNew[int](c)
			model := queue.New()
			next := 0

			for step := range 20000 {
				switch op := rng.IntN(5); op {
				case 0, 1: // TryPush
					err := q.TryPush(next)
					if model.Length() == c {
						if !errors.Is(err, spsc.ErrWouldBlock) {
							t.Fatalf("step %d: TryPush on full: got %v, want ErrWouldBlock", step, err)
						}
						break
					}
					if err != nil {
						t.Fatalf("step %d: TryPush: %v", step, err)
					}
					model.Add(next)
					next++
				case 2: // TryEmplace
					v := next
					err := q.TryEmplace(func(p *int) { *p = v })
					if model.Length() == c {
						if !errors.Is(err, spsc.ErrWouldBlock) {
							t.Fatalf("step %d: TryEmplace on full: got %v, want ErrWouldBlock", step, err)
						}
						break
					}
					if err != nil {
						t.Fatalf("step %d: TryEmplace: %v", step, err)
					}
					model.Add(next)
					next++
				case 3: // Front + Pop
					p := q.Front()
					if model.Length() == 0 {
						if p != nil {
							t.Fatalf("step %d: Front on empty: got %d", step, *p)
						}
						break
					}
					if p == nil {
						t.Fatalf("step %d: Front: got nil, want %v", step, model.Peek())
					}
					if *p != model.Peek().(int) {
						t.Fatalf("step %d: Front: got %d, want %v", step, *p, model.Peek())
					}
					if q.Front() != p {
						t.Fatalf("step %d: Front not idempotent", step)
					}
					q.Pop()
					model.Remove()
				case 4: // Dequeue
					v, err := q.Dequeue()
					if model.Length() == 0 {
						if !errors.Is(err, spsc.ErrWouldBlock) {
							t.Fatalf("step %d: Dequeue on empty: got %v, want ErrWouldBlock", step, err)
						}
						break
					}
					if err != nil {
						t.Fatalf("step %d: Dequeue: %v", step, err)
					}
					if want := model.Remove().(int); v != want {
						t.Fatalf("step %d: Dequeue: got %d, want %d", step, v, want)
					}
				}

				if got, want := q.Size(), model.Length(); got != want {
					t.Fatalf("step %d: Size: got %d, want %d", step, got, want)
				}
				if got, want := q.Empty(), model.Length() == 0; got != want {
					t.Fatalf("step %d: Empty: got %v, want %v", step, got, want)
				}
			}
		})
	}
}
