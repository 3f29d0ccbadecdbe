// Package schema has models, constants and helpers shared by every part of envgap.
package schema

import "time"

// Weights maps a measure to its weight. Raw weights are expected in [0,1].
type Weights map[MeasureKey]float64

// ActiveSet marks which measures participate in the composite.
type ActiveSet map[MeasureKey]bool

// EntityRecord is one geographic unit. Raw fields are immutable after load;
// Derived is replaced wholesale by every pipeline run.
type EntityRecord struct {
	ID       string                  `json:"id"`
	Name     string                  `json:"name,omitempty"`
	State    string                  `json:"state,omitempty"` // 2-digit FIPS state prefix when known
	Measures map[MeasureKey]*float64 `json:"measures"`
	Exposure *float64                `json:"exposure"`
	Derived  DerivedFields           `json:"derived"`
}

// DerivedFields holds the values recomputed on every weight, active-set or measure change.
type DerivedFields struct {
	Composite   *float64               `json:"composite"`
	Exposure    *float64               `json:"exposure_index"` // min-max normalized exposure
	Residual    *float64               `json:"residual"`
	Expected    *float64               `json:"expected"`
	Companion   *float64               `json:"companion"` // negated residual
	CompositeZ  *float64               `json:"composite_z"`
	ExposureZ   *float64               `json:"exposure_z"`
	Percentiles map[MetricKey]*float64 `json:"percentiles"`
	HasGap      bool                   `json:"has_gap"`
}

// RegressionResult is a single-predictor ordinary least squares fit.
type RegressionResult struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	N         int     `json:"n"` // complete pairs used for the fit
}

// Classification is an ascending breakpoint sequence with one label per class.
type Classification struct {
	Metric MetricKey `json:"metric,omitempty"` // empty when values were classified directly
	Mode   BreakMode `json:"mode"`
	Breaks []float64 `json:"bins"`
	Labels []string  `json:"labels"`
}

// Classes returns the number of classes described by the breaks.
func (c Classification) Classes() int {
	return len(c.Labels)
}

// IndexConfig is the explicit per-call configuration for the index pipeline.
// Measures fixes the canonical order used for compositing.
type IndexConfig struct {
	Measures []MeasureKey `json:"measures"`
	Weights  Weights      `json:"weights"`
	Active   ActiveSet    `json:"active"`
}

// ActiveMeasures returns the active measures in canonical order.
func (c IndexConfig) ActiveMeasures() []MeasureKey {
	var out []MeasureKey
	for _, k := range c.Measures {
		if c.Active[k] {
			out = append(out, k)
		}
	}
	return out
}

// PipelineResult is the output of one index pipeline run.
type PipelineResult struct {
	Records    []EntityRecord   `json:"records"`
	Regression RegressionResult `json:"regression"`
	Weights    Weights          `json:"weights"` // normalized weights actually applied
}

// ComparisonDetails holds the per-entity change between two index configurations.
type ComparisonDetails struct {
	ID              string   `json:"id"`
	Name            string   `json:"name,omitempty"`
	BeforeComposite *float64 `json:"before_composite"`
	AfterComposite  *float64 `json:"after_composite"`
	DeltaComposite  *float64 `json:"delta_composite"`
	BeforePct       *float64 `json:"before_pct"`
	AfterPct        *float64 `json:"after_pct"`
	DeltaPct        *float64 `json:"delta_pct"`
}

// ComparisonResult holds the outcome of comparing two index configurations.
type ComparisonResult struct {
	Details          []ComparisonDetails `json:"details"`
	BaseRegression   RegressionResult    `json:"base_regression"`
	TargetRegression RegressionResult    `json:"target_regression"`
	BaseWeights      Weights             `json:"base_weights"`
	TargetWeights    Weights             `json:"target_weights"`
}

// BackfillResult reports how many exposure values were imputed and from where.
type BackfillResult struct {
	Records      []EntityRecord `json:"records"`
	FromState    int            `json:"from_state"`
	FromNational int            `json:"from_national"`
	Skipped      int            `json:"skipped"`
	NationalMean float64        `json:"national_mean"`
}

// RunSummary is one row of the run history.
type RunSummary struct {
	RunID         int64            `json:"run_id"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       *time.Time       `json:"end_time,omitempty"`
	DurationMs    *int64           `json:"duration_ms,omitempty"`
	TotalEntities int              `json:"total_entities"`
	Regression    RegressionResult `json:"regression"`
	ConfigParams  string           `json:"config_params,omitempty"`
}

// RunEntity is one stored derived row for a run.
type RunEntity struct {
	RunID  int64    `json:"run_id"`
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Values IndexRow `json:"values"`
}

// HistoryStatus describes the state of the run history store.
type HistoryStatus struct {
	Backend       DatabaseBackend `json:"backend"`
	Connected     bool            `json:"connected"`
	TotalRuns     int             `json:"total_runs"`
	TotalEntities int             `json:"total_entities"`
	LastRunID     int64           `json:"last_run_id"`
	LastRunTime   time.Time       `json:"last_run_time"`
	OldestRunTime time.Time       `json:"oldest_run_time"`
}

// IndexRow is a flat view of one record's derived values, used by writers and stores.
type IndexRow struct {
	Composite    *float64 `json:"composite"`
	Exposure     *float64 `json:"exposure"`
	Residual     *float64 `json:"residual"`
	Expected     *float64 `json:"expected"`
	Companion    *float64 `json:"companion"`
	CompositeZ   *float64 `json:"composite_z"`
	ExposureZ    *float64 `json:"exposure_z"`
	CompositePct *float64 `json:"composite_pct"`
	ExposurePct  *float64 `json:"exposure_pct"`
	ResidualPct  *float64 `json:"residual_pct"`
	CompanionPct *float64 `json:"companion_pct"`
	HasGap       bool     `json:"has_gap"`
}

// IndexReport is the render model for the index command.
type IndexReport struct {
	Regression     RegressionResult `json:"regression"`
	Weights        Weights          `json:"weights"`
	Metric         MetricKey        `json:"metric"`
	Classification Classification   `json:"classification"`
	Entities       []ReportEntity   `json:"entities"`
}

// ReportEntity is one ranked entity in an IndexReport.
type ReportEntity struct {
	Rank  int      `json:"rank"`
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Value *float64 `json:"value"`
	Class int      `json:"class"` // -1 when the value is missing
	Label string   `json:"label,omitempty"`
	Row   IndexRow `json:"row"`
}
