// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build !race

package bench_test

import (
	"errors"
	"testing"

	"code.hybscloud.com/spsc"
	"code.hybscloud.com/spsc/internal/bench"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  bench.Config
		want error
	}{
		{"zero n", bench.Config{Capacities: []int{2}}, nil},
		{"no capacities", bench.Config{N: 10}, nil},
		{"non power of two", bench.Config{N: 10, Capacities: []int{2, 6}}, spsc.ErrInvalidCapacity},
		{"negative", bench.Config{N: 10, Capacities: []int{-4}}, spsc.ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("Validate: got nil error")
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate: got %v, want %v", err, tt.want)
			}
		})
	}

	ok := bench.Config{N: 1, Capacities: []int{1, 2, 1024}, ProducerCPU: -1, ConsumerCPU: -1}
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestSession(t *testing.T) {
	cfg := bench.Config{N: 100003, ProducerCPU: -1, ConsumerCPU: -1}
	for _, c := range []int{1, 2, 8, 1024} {
		var seen int
		res, err := bench.Session(cfg, c, func(delta int) { seen += delta })
		if err != nil {
			t.Fatalf("cap=%d: %v", c, err)
		}
		if res.Mismatches != 0 {
			t.Fatalf("cap=%d: %d mismatches, first at %d", c, res.Mismatches, res.FirstMismatch)
		}
		if res.Capacity != c || res.Requested != c {
			t.Fatalf("cap=%d: capacity %d requested %d", c, res.Capacity, res.Requested)
		}
		if res.Allocator != "heap" {
			t.Fatalf("cap=%d: allocator %q", c, res.Allocator)
		}
		if uint64(seen) != cfg.N {
			t.Fatalf("cap=%d: progress total %d, want %d", c, seen, cfg.N)
		}
		if res.ElapsedNs <= 0 || res.NsPerOp <= 0 {
			t.Fatalf("cap=%d: elapsed %dns, %.2f ns/op", c, res.ElapsedNs, res.NsPerOp)
		}
	}
}

func TestRun(t *testing.T) {
	cfg := bench.Config{N: 1 << 12, Capacities: []int{2, 8}, ProducerCPU: -1, ConsumerCPU: -1}
	rep, err := bench.Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.Results) != 2 {
		t.Fatalf("results: got %d, want 2", len(rep.Results))
	}
	if rep.System.NumCPU <= 0 || rep.System.CacheLine != spsc.CacheLineSize || rep.System.Race != spsc.RaceEnabled {
		t.Fatalf("system info: %+v", rep.System)
	}
	if rep.Time.IsZero() {
		t.Fatal("report time not set")
	}
}

func TestRunInvalidConfig(t *testing.T) {
	_, err := bench.Run(bench.Config{N: 1, Capacities: []int{3}}, nil)
	if !errors.Is(err, spsc.ErrInvalidCapacity) {
		t.Fatalf("Run: got %v, want ErrInvalidCapacity", err)
	}
}
