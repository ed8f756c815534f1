// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package bench runs producer/consumer integrity and throughput sessions
// against spsc queues.
//
// Each session pushes the sequence 0..N-1 from a producer goroutine with
// blocking Push while a consumer goroutine drains with Front/Pop, checks
// that it observed exactly that sequence, and reports the elapsed time.
package bench

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"code.hybscloud.com/spin"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"code.hybscloud.com/spsc"
	"code.hybscloud.com/spsc/hugepage"
	"code.hybscloud.com/spsc/internal/affinity"
)

// ErrIntegrity is returned when the consumer observes a sequence other
// than 0..N-1.
var ErrIntegrity = errors.New("bench: consumer observed out-of-order sequence")

// progressStride is the number of elements between progress callbacks.
const progressStride = 1 << 16

// Config describes a benchmark run.
type Config struct {
	N           uint64 // Elements per session
	Capacities  []int  // One session per capacity
	HugePages   bool   // Slot storage from the hugepage allocator
	ProducerCPU int    // Core for the producer, -1 for no pinning
	ConsumerCPU int    // Core for the consumer, -1 for no pinning
}

// Validate checks the configuration without running anything.
func (c Config) Validate() error {
	if c.N == 0 {
		return errors.New("bench: N must be positive")
	}
	if len(c.Capacities) == 0 {
		return errors.New("bench: no capacities")
	}
	for _, capacity := range c.Capacities {
		if capacity <= 0 || capacity&(capacity-1) != 0 {
			return fmt.Errorf("bench: capacity %d: %w", capacity, spsc.ErrInvalidCapacity)
		}
	}
	return nil
}

// SystemInfo collects basic CPU and memory details.
type SystemInfo struct {
	NumCPU      int     `json:"num_cpu"`
	CPUModel    string  `json:"cpu_model"`
	CPUSpeedMHz float64 `json:"cpu_speed_mhz"`
	GOARCH      string  `json:"goarch"`
	GOMAXPROCS  int     `json:"gomaxprocs"`
	TotalMemory uint64  `json:"total_memory"`
	CacheLine   int     `json:"cache_line"`
	Race        bool    `json:"race,omitempty"`
}

// Result is the outcome of one session.
type Result struct {
	Requested     int     `json:"requested_capacity"`
	Capacity      int     `json:"capacity"`
	Allocator     string  `json:"allocator"`
	N             uint64  `json:"n"`
	ElapsedNs     int64   `json:"elapsed_ns"`
	NsPerOp       float64 `json:"ns_per_op"`
	OpsPerSec     float64 `json:"ops_per_sec"`
	Mismatches    uint64  `json:"mismatches"`
	FirstMismatch uint64  `json:"first_mismatch,omitempty"`
}

// Report is a complete run.
type Report struct {
	Time    time.Time  `json:"time"`
	System  SystemInfo `json:"system"`
	Results []Result   `json:"results"`
}

// GatherSystemInfo collects basic CPU and memory details.
func GatherSystemInfo() SystemInfo {
	info := SystemInfo{
		NumCPU:     runtime.NumCPU(),
		GOARCH:     runtime.GOARCH,
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		CacheLine:  spsc.CacheLineSize,
		Race:       spsc.RaceEnabled,
	}
	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		info.CPUModel = infos[0].ModelName
		info.CPUSpeedMHz = infos[0].Mhz
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = vm.Total
	}
	return info
}

// Run executes one session per configured capacity.
// progress, if non-nil, receives consumed element counts as they accrue.
// Run stops at the first session that fails to set up; integrity failures
// are recorded in the results and reported as ErrIntegrity at the end.
func Run(cfg Config, progress func(delta int)) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	rep := Report{Time: time.Now(), System: GatherSystemInfo()}
	var bad int
	for _, capacity := range cfg.Capacities {
		res, err := Session(cfg, capacity, progress)
		if err != nil {
			return rep, err
		}
		if res.Mismatches > 0 {
			bad++
		}
		rep.Results = append(rep.Results, res)
	}
	if bad > 0 {
		return rep, fmt.Errorf("%w: %d of %d sessions", ErrIntegrity, bad, len(rep.Results))
	}
	return rep, nil
}

// Session runs a single producer/consumer session on a queue of the
// given capacity.
func Session(cfg Config, capacity int, progress func(delta int)) (res Result, err error) {
	q, allocName, err := newQueue(capacity, cfg.HugePages)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := q.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("bench: closing queue: %w", cerr)
		}
	}()

	res = Result{
		Requested: capacity,
		Capacity:  q.Cap(),
		Allocator: allocName,
		N:         cfg.N,
	}

	var wg, ready sync.WaitGroup
	errs := make(chan error, 2)
	start := make(chan struct{})
	var aborted bool

	// Both sides pin before the clock starts. If either fails, neither
	// touches the queue.
	endpoint := func(name string, cpu int, body func()) {
		defer wg.Done()
		unpin, err := affinity.Pin(cpu)
		if err != nil {
			errs <- fmt.Errorf("bench: %s: %w", name, err)
			ready.Done()
			return
		}
		defer unpin()
		ready.Done()
		<-start
		if !aborted {
			body()
		}
	}

	wg.Add(2)
	ready.Add(2)
	go endpoint("producer", cfg.ProducerCPU, func() {
		for i := range cfg.N {
			q.Push(i)
		}
	})
	go endpoint("consumer", cfg.ConsumerCPU, func() {
		sw := spin.Wait{}
		for want := uint64(0); want < cfg.N; {
			p := q.Front()
			if p == nil {
				sw.Once()
				continue
			}
			sw.Reset()
			if *p != want {
				if res.Mismatches == 0 {
					res.FirstMismatch = want
				}
				res.Mismatches++
			}
			q.Pop()
			want++
			if progress != nil && want%progressStride == 0 {
				progress(progressStride)
			}
		}
		if rem := cfg.N % progressStride; progress != nil && rem != 0 {
			progress(int(rem))
		}
	})

	ready.Wait()
	var setupErr error
	select {
	case setupErr = <-errs:
		aborted = true
	default:
	}
	begin := time.Now()
	close(start)
	wg.Wait()
	elapsed := time.Since(begin)
	if setupErr != nil {
		return res, setupErr
	}

	res.ElapsedNs = elapsed.Nanoseconds()
	res.NsPerOp = float64(res.ElapsedNs) / float64(cfg.N)
	if elapsed > 0 {
		res.OpsPerSec = float64(cfg.N) / elapsed.Seconds()
	}
	return res, nil
}

// newQueue is replaced in tests.
var newQueue = makeQueue

func makeQueue(capacity int, huge bool) (*spsc.Queue[uint64], string, error) {
	if !huge {
		q, err := spsc.New[uint64](capacity)
		return q, "heap", err
	}
	a, err := hugepage.New[uint64](hugepage.Options{Huge: true, Populate: true})
	if err != nil {
		return nil, "", err
	}
	q, err := spsc.New[uint64](capacity, spsc.WithAllocator[uint64](a))
	if err != nil {
		return nil, "", err
	}
	name := "mmap"
	if a.Stats().HugeTLBBytes > 0 {
		name = "hugetlb"
	}
	return q, name, nil
}
