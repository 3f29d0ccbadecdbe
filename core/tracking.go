package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
)

// runTrackedPipeline runs the pipeline and, when a history store is
// configured, records the run and every derived row. Tracking failures are
// logged and never fail the run.
func runTrackedPipeline(ctx context.Context, cfg *contract.Config, mgr contract.StoreManager, records []schema.EntityRecord, idx schema.IndexConfig) (schema.PipelineResult, error) {
	// An invalid configuration must not leave an open run behind.
	if err := ValidateConfig(idx); err != nil {
		return schema.PipelineResult{}, err
	}

	var store contract.RunStore
	if mgr != nil {
		store = mgr.GetRunStore()
	}

	// --- 1. Begin Run Tracking (if configured) ---
	if store != nil {
		runID, err := store.BeginRun(time.Now(), runParams(cfg, idx))
		if err != nil {
			contract.LogWarn("Run tracking initialization failed", err)
		} else if runID > 0 {
			ctx = withRunID(ctx, runID)
		}
	}

	// --- 2. Pipeline ---
	result, err := RunPipeline(records, idx)
	if err != nil {
		return schema.PipelineResult{}, err
	}

	// --- 3. Record rows and end tracking ---
	recordRun(ctx, store, result)
	return result, nil
}

// runParams captures the configuration of a run for the history store.
func runParams(cfg *contract.Config, idx schema.IndexConfig) map[string]any {
	active := make([]string, 0, len(idx.Measures))
	for _, k := range idx.ActiveMeasures() {
		active = append(active, string(k))
	}
	return map[string]any{
		"input":        cfg.InputPath,
		"exposure":     cfg.ExposureColumn,
		"measures":     idx.Measures,
		"active":       active,
		"weights":      idx.Weights,
		"metric":       string(cfg.Metric),
		"breaks":       string(cfg.BreakMode),
		"classes":      cfg.Classes,
		"result_limit": cfg.ResultLimit,
	}
}

// recordRun stores each derived row and finalizes the run.
func recordRun(ctx context.Context, store contract.RunStore, result schema.PipelineResult) {
	runID, ok := getRunID(ctx)
	if store == nil || !ok || runID <= 0 {
		return
	}
	for _, r := range result.Records {
		if ctx.Err() != nil {
			contract.LogWarn("Run tracking interrupted", ctx.Err())
			return
		}
		if err := store.RecordEntity(runID, r); err != nil {
			logTrackingError("RecordEntity", r.ID, err)
		}
	}
	if err := store.EndRun(runID, time.Now(), result.Regression, len(result.Records)); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// logTrackingError logs run tracking errors without interrupting the run.
func logTrackingError(operation, id string, err error) {
	contract.LogWarn(fmt.Sprintf("Run tracking failed for %s on %s", operation, id), err)
}
