package core

import (
	"github.com/huangsam/envgap/core/algo"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var (
	// ErrNoMeasures is returned when an index configuration declares no measures.
	ErrNoMeasures = eris.New("core: no measures declared")

	// ErrNoActiveMeasures is returned when every declared measure is inactive.
	ErrNoActiveMeasures = eris.New("core: no active measures")

	// ErrUnknownMeasure is returned when the active set names an undeclared measure.
	ErrUnknownMeasure = eris.New("core: unknown measure")
)

// ValidateConfig checks that an index configuration can produce a composite.
// Weights for undeclared measures are ignored.
func ValidateConfig(cfg schema.IndexConfig) error {
	if len(cfg.Measures) == 0 {
		return ErrNoMeasures
	}
	declared := make(map[schema.MeasureKey]struct{}, len(cfg.Measures))
	for _, k := range cfg.Measures {
		declared[k] = struct{}{}
	}
	for k, on := range cfg.Active {
		if _, ok := declared[k]; !ok && on {
			return eris.Wrapf(ErrUnknownMeasure, "active measure %q", k)
		}
	}
	if len(cfg.ActiveMeasures()) == 0 {
		return ErrNoActiveMeasures
	}
	return nil
}

// RunPipeline computes every derived field for the records under cfg.
// The inputs are never mutated; the result holds fresh copies whose derived
// fields fully replace any earlier ones. Data gaps never produce an error.
func RunPipeline(records []schema.EntityRecord, cfg schema.IndexConfig) (schema.PipelineResult, error) {
	if err := ValidateConfig(cfg); err != nil {
		return schema.PipelineResult{}, err
	}

	out := schema.CloneRecords(records)
	n := len(out)

	// 1. Normalize each measure column independently.
	normalized := make(map[schema.MeasureKey][]*float64, len(cfg.Measures))
	for _, k := range cfg.Measures {
		normalized[k] = algo.NormalizeMinMax(schema.MeasureColumn(records, k))
	}

	// 2. Normalize exposure.
	exposure := algo.NormalizeMinMax(schema.ExposureColumn(records))

	// 3. Composite per entity.
	active := cfg.ActiveMeasures()
	weights := algo.NormalizeWeights(cfg.Measures, cfg.Weights, cfg.Active)
	composite := make([]*float64, n)
	row := make(map[schema.MeasureKey]*float64, len(active))
	for i := range out {
		for _, k := range active {
			row[k] = normalized[k][i]
		}
		value, gap := algo.ScoreComposite(active, row, weights)
		composite[i] = value
		out[i].Derived.Composite = value
		out[i].Derived.HasGap = gap
		out[i].Derived.Exposure = exposure[i]
	}

	// 4. Fit composite on exposure over complete pairs.
	xs, ys := algo.CompletePairs(exposure, composite)
	fit, err := algo.FitLinear(xs, ys)
	if err != nil {
		return schema.PipelineResult{}, eris.Wrap(err, "core: fit regression")
	}

	// 5. Residual, expected and companion.
	residual, expected := algo.ComputeResiduals(composite, exposure, fit)
	companion := algo.Negate(residual)

	// 6. Z-scores.
	compositeZ := algo.ComputeZScores(composite)
	exposureZ := algo.ComputeZScores(exposure)

	// 7. Percentile ranks, each over its own valid subset.
	ranks := map[schema.MetricKey][]*float64{
		schema.CompositeMetric: algo.PercentileRanks(composite),
		schema.ExposureMetric:  algo.PercentileRanks(exposure),
		schema.ResidualMetric:  algo.PercentileRanks(residual),
		schema.CompanionMetric: algo.PercentileRanks(companion),
	}

	for i := range out {
		d := &out[i].Derived
		d.Residual = residual[i]
		d.Expected = expected[i]
		d.Companion = companion[i]
		d.CompositeZ = compositeZ[i]
		d.ExposureZ = exposureZ[i]
		d.Percentiles = make(map[schema.MetricKey]*float64, len(schema.PercentileMetrics))
		for _, m := range schema.PercentileMetrics {
			d.Percentiles[m] = ranks[m][i]
		}
	}

	zap.L().Debug("pipeline complete",
		zap.Int("entities", n),
		zap.Int("active_measures", len(active)),
		zap.Int("complete_pairs", fit.N),
		zap.Float64("r_squared", fit.RSquared),
	)

	return schema.PipelineResult{Records: out, Regression: fit, Weights: weights}, nil
}

// ClassifyMetric extracts a derived metric from the records and bins it.
// An empty mode selects the default mode for the metric.
func ClassifyMetric(records []schema.EntityRecord, metric schema.MetricKey, mode schema.BreakMode, k int) schema.Classification {
	if mode == "" {
		mode = schema.DefaultBreakMode(metric)
	}
	c := algo.Classify(schema.MetricColumn(records, metric), mode, k)
	c.Metric = metric
	return c
}

// BuildReport ranks the records by metric and attaches each one's class.
func BuildReport(result schema.PipelineResult, class schema.Classification, limit int) schema.IndexReport {
	ranked := algo.RankByMetric(result.Records, class.Metric, limit)
	entities := make([]schema.ReportEntity, len(ranked))
	for i, r := range ranked {
		value := r.Metric(class.Metric)
		idx := algo.AssignClass(value, class.Breaks)
		e := schema.ReportEntity{
			Rank:  i + 1,
			ID:    r.ID,
			Name:  r.Name,
			Value: value,
			Class: idx,
			Row:   r.Row(),
		}
		if idx >= 0 && idx < len(class.Labels) {
			e.Label = class.Labels[idx]
		}
		entities[i] = e
	}
	return schema.IndexReport{
		Regression:     result.Regression,
		Weights:        result.Weights,
		Metric:         class.Metric,
		Classification: class,
		Entities:       entities,
	}
}

// ClassCounts returns how many records fall in each class of c.
// Records without a value are not counted.
func ClassCounts(records []schema.EntityRecord, c schema.Classification) []int {
	counts := make([]int, c.Classes())
	for _, v := range schema.MetricColumn(records, c.Metric) {
		if idx := algo.AssignClass(v, c.Breaks); idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}
