// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux && !race

package bench_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/spsc"
	"code.hybscloud.com/spsc/internal/bench"
)

// TestSessionPinFailure asks for a core that cannot exist; the session
// must fail during setup without deadlocking the other endpoint.
func TestSessionPinFailure(t *testing.T) {
	cfg := bench.Config{N: 1000, ProducerCPU: -1, ConsumerCPU: 1 << 20}
	if _, err := bench.Session(cfg, 8, nil); err == nil {
		t.Fatal("Session: got nil error for impossible consumer core")
	}
	cfg.ProducerCPU, cfg.ConsumerCPU = 1<<20, -1
	if _, err := bench.Session(cfg, 8, nil); err == nil {
		t.Fatal("Session: got nil error for impossible producer core")
	}
}

func TestSessionHugePages(t *testing.T) {
	cfg := bench.Config{N: 1 << 14, HugePages: true, ProducerCPU: -1, ConsumerCPU: -1}
	res, err := bench.Session(cfg, 64, nil)
	if errors.Is(err, spsc.ErrOutOfMemory) {
		t.Skipf("mapping unavailable: %v", err)
	}
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if res.Mismatches != 0 {
		t.Fatalf("%d mismatches", res.Mismatches)
	}
	// Size feedback from the page-rounded mapping can only grow capacity.
	if res.Capacity < 64 {
		t.Fatalf("capacity: got %d, want >= 64", res.Capacity)
	}
	if res.Allocator != "mmap" && res.Allocator != "hugetlb" {
		t.Fatalf("allocator: got %q", res.Allocator)
	}
}
