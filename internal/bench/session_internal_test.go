// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

package bench

import (
	"errors"
	"testing"

	"code.hybscloud.com/spsc"
)

var errUnmap = errors.New("unmap failed")

// leakyAllocator serves heap storage but fails to give it back.
type leakyAllocator struct{ spsc.HeapAllocator[uint64] }

func (leakyAllocator) Deallocate([]uint64) error { return errUnmap }

func TestSessionReportsCloseError(t *testing.T) {
	newQueue = func(capacity int, _ bool) (*spsc.Queue[uint64], string, error) {
		q, err := spsc.New(capacity, spsc.WithAllocator[uint64](leakyAllocator{}))
		return q, "leaky", err
	}
	t.Cleanup(func() { newQueue = makeQueue })

	cfg := Config{N: 1000, ProducerCPU: -1, ConsumerCPU: -1}
	res, err := Session(cfg, 8, nil)
	if !errors.Is(err, errUnmap) {
		t.Fatalf("Session: got %v, want %v", err, errUnmap)
	}
	if res.Mismatches != 0 || res.N != cfg.N {
		t.Fatalf("result: %+v", res)
	}
}
