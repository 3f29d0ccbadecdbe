// Package core has core logic for the index pipeline, classification and comparison.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/envgap/core/algo"
	"github.com/huangsam/envgap/internal/chart"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/loader"
	"github.com/huangsam/envgap/internal/outwriter"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error

var (
	// ErrNoInput is returned when a command needs a dataset and none was configured.
	ErrNoInput = eris.New("core: no input dataset (pass a path or set input in .envgap.yaml)")

	// ErrNoTarget is returned when compare is run without a target configuration.
	ErrNoTarget = eris.New("core: compare needs --target-weights or --target-active")
)

// ExecuteIndex runs the index pipeline and prints the ranked, classified report.
// It serves as the main entry point for the 'index' command.
func ExecuteIndex(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	start := time.Now()
	report, err := GetIndexReport(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteIndex(report, cfg, time.Since(start))
}

// GetIndexReport runs the pipeline and returns the ranked, classified report
// without printing it.
func GetIndexReport(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.IndexReport, error) {
	result, err := runIndex(ctx, cfg, mgr)
	if err != nil {
		return schema.IndexReport{}, err
	}
	class := ClassifyMetric(result.Records, cfg.Metric, cfg.BreakMode, cfg.Classes)
	return BuildReport(result, class, cfg.ResultLimit), nil
}

// ExecuteClassify runs the pipeline and prints the breaks of one metric with
// how many entities fall in each class.
func ExecuteClassify(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	class, counts, err := GetClassification(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteClassification(class, counts, cfg)
}

// GetClassification runs the pipeline and classifies the configured metric,
// returning the classes and their member counts.
func GetClassification(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.Classification, []int, error) {
	result, err := runIndex(ctx, cfg, mgr)
	if err != nil {
		return schema.Classification{}, nil, err
	}
	class := ClassifyMetric(result.Records, cfg.Metric, cfg.BreakMode, cfg.Classes)
	return class, ClassCounts(result.Records, class), nil
}

// ExecuteWeights prints the weights the pipeline would apply. Measures come
// from the dataset when one is configured, otherwise from the measure list.
func ExecuteWeights(ctx context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	idx, normalized, err := GetWeights(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteWeights(idx, normalized, cfg)
}

// GetWeights resolves the index configuration and its normalized weights.
func GetWeights(ctx context.Context, cfg *contract.Config) (schema.IndexConfig, schema.Weights, error) {
	idx, err := resolveIndexConfig(ctx, cfg)
	if err != nil {
		return idx, nil, err
	}
	if err := ValidateConfig(idx); err != nil {
		return idx, nil, err
	}
	return idx, algo.NormalizeWeights(idx.Measures, idx.Weights, idx.Active), nil
}

// ExecuteFormulas prints the definition of every derived metric with the
// configured weights substituted. It does not need a dataset.
func ExecuteFormulas(ctx context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	idx, err := resolveIndexConfig(ctx, cfg)
	if err != nil && !errors.Is(err, ErrNoInput) {
		return err
	}
	normalized := algo.NormalizeWeights(idx.Measures, idx.Weights, idx.Active)
	return outwriter.NewOutWriter().WriteFormulas(idx, normalized, cfg)
}

// ExecuteCompare runs the pipeline under the base and target configurations
// and prints how each entity moved.
func ExecuteCompare(ctx context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	start := time.Now()
	result, err := GetComparison(ctx, cfg)
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteComparison(result, cfg, time.Since(start))
}

// GetComparison loads the dataset and compares the base configuration with the target.
func GetComparison(ctx context.Context, cfg *contract.Config) (schema.ComparisonResult, error) {
	if !cfg.CompareMode {
		return schema.ComparisonResult{}, ErrNoTarget
	}
	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return schema.ComparisonResult{}, err
	}
	base := cfg.IndexConfig(ds.Measures)
	target := cfg.TargetIndexConfig(ds.Measures)
	if !shouldSuppressHeader(ctx) {
		outwriter.LogCompareHeader(os.Stdout, cfg, base, target)
	}
	return CompareConfigs(ds.Records, base, target, cfg.ResultLimit)
}

// ExecuteBackfill imputes missing exposure values from state and national
// means and writes the completed exposure column.
func ExecuteBackfill(ctx context.Context, cfg *contract.Config, _ contract.StoreManager) error {
	if cfg.ExposureColumn == "" {
		return eris.New("core: --exposure-column is required for backfill")
	}
	if cfg.InputPath == "" {
		return ErrNoInput
	}
	ds, err := loader.Load(ctx, loader.Options{
		Path:           cfg.InputPath,
		Format:         cfg.InputFormat,
		IDColumn:       cfg.IDColumn,
		ExposureColumn: cfg.ExposureColumn,
		ExposureOnly:   true,
	})
	if err != nil {
		return err
	}
	result, err := BackfillExposure(ds.Records, BackfillOptions{NationalID: cfg.NationalID})
	if err != nil {
		return err
	}
	return outwriter.NewOutWriter().WriteBackfill(result, cfg)
}

// ExecutePlot runs the pipeline and saves a composite versus exposure scatter plot.
func ExecutePlot(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	if cfg.PlotFile == "" {
		return eris.New("core: --plot-file is required")
	}
	result, err := runIndex(WithSuppressHeader(ctx), cfg, mgr)
	if err != nil {
		return err
	}
	if err := chart.WriteScatter(cfg.PlotFile, result.Records, result.Regression); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote plot to %s\n", cfg.PlotFile)
	return nil
}

// loadDataset reads the configured dataset.
func loadDataset(ctx context.Context, cfg *contract.Config) (loader.Dataset, error) {
	if cfg.InputPath == "" {
		return loader.Dataset{}, ErrNoInput
	}
	return loader.Load(ctx, loader.Options{
		Path:           cfg.InputPath,
		Format:         cfg.InputFormat,
		IDColumn:       cfg.IDColumn,
		NameColumn:     cfg.NameColumn,
		ExposureColumn: cfg.ExposureColumn,
		Measures:       cfg.Measures,
	})
}

// resolveIndexConfig builds the index configuration without running the
// pipeline. Without a dataset it falls back to the configured measure list.
func resolveIndexConfig(ctx context.Context, cfg *contract.Config) (schema.IndexConfig, error) {
	if cfg.InputPath == "" {
		idx := cfg.IndexConfig(nil)
		if len(idx.Measures) == 0 {
			return idx, ErrNoInput
		}
		return idx, nil
	}
	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return schema.IndexConfig{}, err
	}
	return cfg.IndexConfig(ds.Measures), nil
}

// runIndex loads the dataset and runs a tracked pipeline over it.
func runIndex(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager) (schema.PipelineResult, error) {
	ds, err := loadDataset(ctx, cfg)
	if err != nil {
		return schema.PipelineResult{}, err
	}
	idx := cfg.IndexConfig(ds.Measures)
	if !shouldSuppressHeader(ctx) {
		outwriter.LogIndexHeader(os.Stdout, cfg, idx, len(ds.Records))
	}
	return runTrackedPipeline(ctx, cfg, mgr, ds.Records, idx)
}
