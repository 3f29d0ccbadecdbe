package contract

import (
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyOverrides(t *testing.T) {
	base := &Config{
		InputPath:   "base.csv",
		InputFormat: schema.CSVInput,
		Measures:    []schema.MeasureKey{"asthma", "copd"},
		Metric:      schema.CompositeMetric,
		Classes:     5,
		ResultLimit: 25,
	}

	cfg := base.Clone()
	require.NoError(t, ApplyOverrides(cfg, Overrides{
		Input:   "counties.xlsx",
		Weights: "asthma:0.8",
		Active:  "asthma",
		Metric:  "Residual",
		Breaks:  "natural",
		Classes: 3,
		Limit:   10,
	}))
	assert.Equal(t, "counties.xlsx", cfg.InputPath)
	assert.Equal(t, schema.XLSXInput, cfg.InputFormat)
	assert.Equal(t, schema.Weights{"asthma": 0.8}, cfg.Weights)
	assert.Equal(t, schema.ActiveSet{"asthma": true}, cfg.Active)
	assert.Equal(t, schema.ResidualMetric, cfg.Metric)
	assert.Equal(t, schema.NaturalBreaksMode, cfg.BreakMode)
	assert.Equal(t, 3, cfg.Classes)
	assert.Equal(t, 10, cfg.ResultLimit)
	assert.False(t, cfg.CompareMode)

	assert.Equal(t, "base.csv", base.InputPath, "base config is untouched")
	assert.Nil(t, base.Weights)
}

func TestApplyOverridesTarget(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, ApplyOverrides(cfg, Overrides{TargetActive: "copd"}))
	assert.True(t, cfg.CompareMode)
	assert.Equal(t, schema.ActiveSet{"copd": true}, cfg.TargetActive)
}

func TestApplyOverridesErrors(t *testing.T) {
	tests := []struct {
		name string
		o    Overrides
	}{
		{"bad weights", Overrides{Weights: "asthma"}},
		{"weight out of range", Overrides{Weights: "asthma:2"}},
		{"undeclared active", Overrides{Active: "stroke"}},
		{"bad metric", Overrides{Metric: "gdp"}},
		{"bad breaks", Overrides{Breaks: "jenks"}},
		{"too many classes", Overrides{Classes: 40}},
		{"negative limit", Overrides{Limit: -1}},
		{"bad target weights", Overrides{TargetWeights: "copd:x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Measures: []schema.MeasureKey{"asthma", "copd"}}
			assert.Error(t, ApplyOverrides(cfg, tt.o))
		})
	}
}
