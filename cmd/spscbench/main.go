// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command spscbench runs producer/consumer sessions over spsc queues,
// verifies that every element arrives in order, and reports throughput.
//
// Usage:
//
//	spscbench [flags]
//
// Flags fall back to SPSCBENCH_* environment variables:
//
//	-n             SPSCBENCH_N             elements per session (default 10000000)
//	-caps          SPSCBENCH_CAPS          comma-separated capacities (default 2,8,1024)
//	-hugepages     SPSCBENCH_HUGEPAGES     slot storage from huge pages
//	-producer-cpu  SPSCBENCH_PRODUCER_CPU  core for the producer, -1 to float
//	-consumer-cpu  SPSCBENCH_CONSUMER_CPU  core for the consumer, -1 to float
//	-json          SPSCBENCH_JSON          write the report to this file, "-" for stdout
//	-progress      SPSCBENCH_PROGRESS      show a progress bar on stderr
//
// The exit status is 1 if any session observes an out-of-order element
// or fails to start, and 2 on invalid flags.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sugawarayuuta/sonnet"

	"code.hybscloud.com/spsc"
	"code.hybscloud.com/spsc/internal/bench"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, opts, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		logger.Error("invalid arguments", "err", err)
		return 2
	}

	var progress func(int)
	if opts.progress {
		bar := progressbar.Default(int64(cfg.N)*int64(len(cfg.Capacities)), "spscbench")
		defer bar.Finish()
		progress = func(delta int) { _ = bar.Add(delta) }
	}

	logger.Info("starting",
		"n", cfg.N,
		"caps", cfg.Capacities,
		"hugepages", cfg.HugePages,
		"producer_cpu", cfg.ProducerCPU,
		"consumer_cpu", cfg.ConsumerCPU,
	)

	if spsc.RaceEnabled {
		logger.Warn("built with -race; timings are not representative")
	}

	rep, runErr := bench.Run(cfg, progress)
	for _, r := range rep.Results {
		logger.Info("session",
			"capacity", r.Capacity,
			"allocator", r.Allocator,
			"ns_per_op", fmt.Sprintf("%.2f", r.NsPerOp),
			"ops_per_sec", fmt.Sprintf("%.0f", r.OpsPerSec),
			"mismatches", r.Mismatches,
		)
	}

	if opts.jsonPath != "" && len(rep.Results) > 0 {
		if err := writeReport(opts.jsonPath, rep); err != nil {
			logger.Error("writing report", "path", opts.jsonPath, "err", err)
			return 1
		}
	}

	if runErr != nil {
		logger.Error("run failed", "err", runErr)
		return 1
	}
	logger.Info("done",
		"cpu", rep.System.CPUModel,
		"num_cpu", rep.System.NumCPU,
		"total_memory", rep.System.TotalMemory,
	)
	return 0
}

type outputOptions struct {
	jsonPath string
	progress bool
}

func parseFlags(args []string) (bench.Config, outputOptions, error) {
	var (
		cfg  bench.Config
		opts outputOptions
		caps string
	)

	fs := flag.NewFlagSet("spscbench", flag.ContinueOnError)
	fs.Uint64Var(&cfg.N, "n", uint64(getEnvInt("SPSCBENCH_N", 10_000_000)), "elements per session")
	fs.StringVar(&caps, "caps", getEnvString("SPSCBENCH_CAPS", "2,8,1024"), "comma-separated queue capacities")
	fs.BoolVar(&cfg.HugePages, "hugepages", getEnvBool("SPSCBENCH_HUGEPAGES", false), "allocate slots from huge pages")
	fs.IntVar(&cfg.ProducerCPU, "producer-cpu", getEnvInt("SPSCBENCH_PRODUCER_CPU", -1), "pin producer to this core (-1 to float)")
	fs.IntVar(&cfg.ConsumerCPU, "consumer-cpu", getEnvInt("SPSCBENCH_CONSUMER_CPU", -1), "pin consumer to this core (-1 to float)")
	fs.StringVar(&opts.jsonPath, "json", getEnvString("SPSCBENCH_JSON", ""), `write JSON report to file ("-" for stdout)`)
	fs.BoolVar(&opts.progress, "progress", getEnvBool("SPSCBENCH_PROGRESS", false), "show progress bar")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if fs.NArg() > 0 {
		return cfg, opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	var err error
	if cfg.Capacities, err = parseCaps(caps); err != nil {
		return cfg, opts, err
	}
	return cfg, opts, cfg.Validate()
}

func parseCaps(s string) ([]int, error) {
	var caps []int
	for f := range strings.SplitSeq(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		c, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("capacity %q: %w", f, err)
		}
		caps = append(caps, c)
	}
	return caps, nil
}

func writeReport(path string, rep bench.Report) error {
	data, err := sonnet.Marshal(rep)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// getEnvInt reads an integer from an environment variable with a default value.
func getEnvInt(name string, defaultVal int) int {
	if v := os.Getenv(name); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvBool reads a boolean from an environment variable with a default value.
func getEnvBool(name string, defaultVal bool) bool {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvString(name, defaultVal string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return defaultVal
}
