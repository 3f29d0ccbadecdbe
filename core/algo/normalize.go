// Package algo holds the numeric building blocks of the index: normalization,
// weighting, compositing, regression, percentiles and classification.
package algo

import (
	"math"

	"github.com/huangsam/envgap/schema"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// NormalizeMinMax rescales a column to [0,1] using the min and max of its
// finite entries. A zero range maps every valid entry to 0.5. Nulls and
// non-finite entries come back as nulls.
func NormalizeMinMax(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	valid := schema.ValidValues(values)
	if len(valid) == 0 {
		return out
	}

	lo, hi := floats.Min(valid), floats.Max(valid)
	span := hi - lo
	// Halve the operands when the range itself overflows.
	scale := 1.0
	if math.IsInf(span, 0) {
		scale = 0.5
		span = hi*scale - lo*scale
	}
	for i, v := range values {
		if !schema.IsValid(v) {
			continue
		}
		if span == 0 {
			out[i] = schema.FloatPtr(0.5)
			continue
		}
		out[i] = schema.FloatPtr((*v*scale - lo*scale) / span)
	}
	return out
}

// ComputeZScores standardizes a column with the population mean and standard
// deviation of its finite entries. A constant column maps every valid entry to 0.
func ComputeZScores(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	valid := schema.ValidValues(values)
	if len(valid) == 0 {
		return out
	}

	// z-scores are scale free, so a sample whose moments overflow is
	// standardized after dividing by its largest magnitude.
	norm := 1.0
	mean, variance := stat.PopMeanVariance(valid, nil)
	if math.IsNaN(mean) || math.IsInf(mean, 0) || math.IsNaN(variance) || math.IsInf(variance, 0) {
		norm = floats.Norm(valid, math.Inf(1))
		scaled := make([]float64, len(valid))
		for i, v := range valid {
			scaled[i] = v / norm
		}
		mean, variance = stat.PopMeanVariance(scaled, nil)
	}
	std := math.Sqrt(variance)
	constant := floats.Min(valid) == floats.Max(valid)
	for i, v := range values {
		if !schema.IsValid(v) {
			continue
		}
		if constant || std == 0 {
			out[i] = schema.FloatPtr(0)
			continue
		}
		out[i] = schema.FloatPtr((*v/norm - mean) / std)
	}
	return out
}
