package core

import (
	"github.com/huangsam/envgap/core/algo"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// CompareConfigs runs the pipeline under a base and a target configuration and
// reports how each entity's composite and composite percentile moved. Details
// are ranked by absolute percentile change; entities missing a percentile
// under either configuration sort last.
func CompareConfigs(records []schema.EntityRecord, base, target schema.IndexConfig, limit int) (schema.ComparisonResult, error) {
	baseRun, err := RunPipeline(records, base)
	if err != nil {
		return schema.ComparisonResult{}, eris.Wrap(err, "core: run base pipeline")
	}
	targetRun, err := RunPipeline(records, target)
	if err != nil {
		return schema.ComparisonResult{}, eris.Wrap(err, "core: run target pipeline")
	}

	details := make([]schema.ComparisonDetails, len(records))
	for i := range records {
		b, t := baseRun.Records[i].Derived, targetRun.Records[i].Derived
		bPct, tPct := b.Percentiles[schema.CompositeMetric], t.Percentiles[schema.CompositeMetric]
		details[i] = schema.ComparisonDetails{
			ID:              records[i].ID,
			Name:            records[i].Name,
			BeforeComposite: b.Composite,
			AfterComposite:  t.Composite,
			DeltaComposite:  delta(b.Composite, t.Composite),
			BeforePct:       bPct,
			AfterPct:        tPct,
			DeltaPct:        delta(bPct, tPct),
		}
	}

	return schema.ComparisonResult{
		Details:          algo.RankComparisons(details, limit),
		BaseRegression:   baseRun.Regression,
		TargetRegression: targetRun.Regression,
		BaseWeights:      baseRun.Weights,
		TargetWeights:    targetRun.Weights,
	}, nil
}

// delta returns after - before, or nil when either side is missing.
func delta(before, after *float64) *float64 {
	if !schema.IsValid(before) || !schema.IsValid(after) {
		return nil
	}
	return schema.FloatPtr(*after - *before)
}
