// Package main provides a performance benchmarking tool for the envgap CLI.
// It generates synthetic county datasets of increasing size, runs each command
// several times with history tracking off and on, treats the first tracked run
// as cold and averages the rest as warm, and writes a CSV summary.
//
// Prerequisites:
// - envgap binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for the generated datasets and history database
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
)

// BenchmarkResult holds the result of a benchmark run (untracked average, cold run and average of warm runs).
type BenchmarkResult struct {
	Dataset     string `csv:"dataset"`
	Command     string `csv:"cmd"`
	UntrackedAvg string `csv:"untracked_avg"`
	ColdTime    string `csv:"cold_time"`
	WarmTime    string `csv:"warm_avg"`
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir       string
	Timeout       time.Duration
	UntrackedRuns int
	TrackedRuns   int
	Sizes         map[string]int
	Order         []string
}

// syntheticCounty is one generated dataset row.
type syntheticCounty struct {
	FIPS     string   `csv:"fips"`
	Name     string   `csv:"name"`
	PM25     *float64 `csv:"pm25,omitempty"`
	Asthma   *float64 `csv:"asthma,omitempty"`
	COPD     *float64 `csv:"copd,omitempty"`
	CHD      *float64 `csv:"chd,omitempty"`
	Diabetes *float64 `csv:"diabetes,omitempty"`
}

// benchCommand is one CLI invocation measured per dataset.
type benchCommand struct {
	name string
	args []string
}

var commands = []benchCommand{
	{name: "index", args: []string{"index", "--exposure-column", "pm25", "--output", "csv"}},
	{name: "classify", args: []string{"classify", "--exposure-column", "pm25", "--metric", "residual", "--breaks", "natural", "--output", "csv"}},
	{name: "compare", args: []string{"compare", "--exposure-column", "pm25", "--target-active", "asthma,copd", "--output", "csv"}},
}

func main() {
	// Parse command line arguments
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:       os.Args[1],
		Timeout:       2 * time.Minute,
		UntrackedRuns: 3,
		TrackedRuns:   4,
		Sizes: map[string]int{
			"state":    70,
			"national": 3200,
			"tracts":   85000,
		},
		Order: []string{"state", "national", "tracts"},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	datasets, err := generateDatasets(config)
	if err != nil {
		fmt.Printf("Failed to generate datasets: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config, datasets)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the envgap binary exists and the work dir is usable
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("envgap"); err != nil {
		return fmt.Errorf("envgap binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// generateDatasets writes one synthetic CSV per configured size.
func generateDatasets(config BenchmarkConfig) (map[string]string, error) {
	paths := make(map[string]string, len(config.Sizes))
	for _, name := range config.Order {
		path := filepath.Join(config.WorkDir, name+".csv")
		data, err := csvutil.Marshal(syntheticCounties(config.Sizes[name]))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s dataset: %w", name, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s dataset: %w", name, err)
		}
		paths[name] = path
	}
	return paths, nil
}

// syntheticCounties builds n rows where health burden loosely follows exposure.
// Roughly one row in fifty has a missing measure and one in a hundred a
// missing exposure.
func syntheticCounties(n int) []syntheticCounty {
	rng := rand.New(rand.NewPCG(42, uint64(n)))
	maybe := func(v float64, missEvery int) *float64 {
		if rng.IntN(missEvery) == 0 {
			return nil
		}
		return &v
	}

	rows := make([]syntheticCounty, n)
	for i := range rows {
		pm := 4 + rng.Float64()*10
		rows[i] = syntheticCounty{
			FIPS:     fmt.Sprintf("%02d%03d", 1+i/999, 1+i%999),
			Name:     fmt.Sprintf("County %d", i+1),
			PM25:     maybe(pm, 100),
			Asthma:   maybe(6+pm*0.4+rng.NormFloat64(), 50),
			COPD:     maybe(4+pm*0.3+rng.NormFloat64(), 50),
			CHD:      maybe(5+pm*0.2+rng.NormFloat64(), 50),
			Diabetes: maybe(8+rng.NormFloat64()*2, 50),
		}
	}
	return rows
}

// runBenchmarks executes all benchmark commands across the generated datasets
func runBenchmarks(config BenchmarkConfig, datasets map[string]string) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, untracked: %d runs, tracked: %d runs\n",
		len(datasets), config.Timeout, config.UntrackedRuns, config.TrackedRuns)

	for _, name := range config.Order {
		fmt.Printf("Benchmarking %s (%d rows)\n", name, config.Sizes[name])
		for _, c := range commands {
			results = append(results, runBenchmarkSuite(config, name, datasets[name], c))
		}
	}

	return results
}

// runBenchmarkSuite runs both untracked and tracked benchmarks for a command
func runBenchmarkSuite(config BenchmarkConfig, dataset, path string, c benchCommand) BenchmarkResult {
	fmt.Printf("Running %s on %s\n", c.name, dataset)

	// Helper to run a benchmark phase
	runPhase := func(backend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, c, backend, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: history tracking disabled
	_, untrackedAvg := runPhase("none", config.UntrackedRuns, "Untracked")

	// Phase 2: history tracking in a throwaway SQLite file
	coldTime, warmAvg := runPhase("sqlite", config.TrackedRuns, "Tracked")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  Untracked average: %s, Cold time: %s, Warm average: %s\n", untrackedAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     dataset,
		Command:     c.name,
		UntrackedAvg: untrackedAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark executes an envgap command multiple times with the given history backend and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, path string, c benchCommand, backend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := append([]string{}, c.args...)
	args = append(args, path, "--history-backend", backend)
	if backend == "sqlite" {
		args = append(args, "--history-db-connect", filepath.Join(config.WorkDir, "history.db"))
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		cmd := exec.CommandContext(ctx, "envgap", args...)
		cmd.Dir = config.WorkDir
		cmd.Stdout = nil // Output itself is not measured

		start := time.Now()
		err := cmd.Run()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return coldTime, warmTimes
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("envgap_benchmark_%s.csv", timestamp))

	data, err := csvutil.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")

	for _, c := range commands {
		printCommandSummary(results, c.name)
	}

	fmt.Printf("Benchmark script completed successfully\n")
}

// printCommandSummary displays results for a specific command type
func printCommandSummary(results []BenchmarkResult, command string) {
	fmt.Printf("%s:\n", command)
	for _, result := range results {
		if result.Command == command {
			fmt.Printf("  %-10s: Untracked: %s, Cold: %s, Warm: %s\n", result.Dataset, result.UntrackedAvg, result.ColdTime, result.WarmTime)
		}
	}
}
