package contract

import (
	"strings"

	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// Overrides are per-request changes layered over a base Config by the MCP
// and HTTP surfaces. Zero values leave the base setting alone.
type Overrides struct {
	Input         string
	Weights       string // "asthma:0.5,copd:0.3"
	Active        string // "asthma,copd"
	Metric        string
	Breaks        string
	Classes       int
	Limit         int
	TargetWeights string
	TargetActive  string
}

// ApplyOverrides validates o and applies it to cfg. cfg should be a clone.
func ApplyOverrides(cfg *Config, o Overrides) error {
	if p := strings.TrimSpace(o.Input); p != "" {
		cfg.InputPath = p
		cfg.InputFormat = InferInputFormat(p)
	}

	declared := declaredMeasures(cfg.Measures)
	if strings.TrimSpace(o.Weights) != "" {
		weights, err := mergeWeights(nil, o.Weights)
		if err != nil {
			return eris.Wrap(err, "invalid weights")
		}
		cfg.Weights = weights
	}
	if strings.TrimSpace(o.Active) != "" {
		active, err := parseActive([]string{o.Active}, declared)
		if err != nil {
			return err
		}
		cfg.Active = active
	}

	if m := strings.ToLower(strings.TrimSpace(o.Metric)); m != "" {
		if _, ok := schema.ValidMetrics[schema.MetricKey(m)]; !ok {
			return eris.Errorf("invalid metric '%s'", o.Metric)
		}
		cfg.Metric = schema.MetricKey(m)
	}
	if b := strings.ToLower(strings.TrimSpace(o.Breaks)); b != "" {
		if _, ok := schema.ValidBreakModes[schema.BreakMode(b)]; !ok {
			return eris.Errorf("invalid break mode '%s'. must be equal, quantile, natural, diverging", o.Breaks)
		}
		cfg.BreakMode = schema.BreakMode(b)
	}
	if o.Classes != 0 {
		if o.Classes < 1 || o.Classes > MaxClassCount {
			return eris.Errorf("classes must be between 1 and %d (received %d)", MaxClassCount, o.Classes)
		}
		cfg.Classes = o.Classes
	}
	if o.Limit != 0 {
		if o.Limit < 0 || o.Limit > MaxResultLimit {
			return eris.Errorf("limit must be between 0 and %d (received %d)", MaxResultLimit, o.Limit)
		}
		cfg.ResultLimit = o.Limit
	}

	if strings.TrimSpace(o.TargetWeights) != "" {
		weights, err := mergeWeights(nil, o.TargetWeights)
		if err != nil {
			return eris.Wrap(err, "invalid target weights")
		}
		cfg.TargetWeights = weights
		cfg.CompareMode = true
	}
	if strings.TrimSpace(o.TargetActive) != "" {
		active, err := parseActive([]string{o.TargetActive}, declared)
		if err != nil {
			return err
		}
		cfg.TargetActive = active
		cfg.CompareMode = true
	}
	return nil
}

func declaredMeasures(measures []schema.MeasureKey) map[schema.MeasureKey]struct{} {
	declared := make(map[schema.MeasureKey]struct{}, len(measures))
	for _, k := range measures {
		declared[k] = struct{}{}
	}
	return declared
}
