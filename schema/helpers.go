package schema

import (
	"maps"
	"math"
	"strings"
	"unicode"
)

// FloatPtr returns a pointer to v.
func FloatPtr(v float64) *float64 {
	return &v
}

// IsValid reports whether p holds a finite number.
func IsValid(p *float64) bool {
	return p != nil && !math.IsNaN(*p) && !math.IsInf(*p, 0)
}

// ValidValues returns the finite entries of values in their original order.
func ValidValues(values []*float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if IsValid(v) {
			out = append(out, *v)
		}
	}
	return out
}

// CloneRecords copies the records so callers can replace derived fields
// without touching the originals. Measure values are copied by pointer
// since raw fields are never mutated after load.
func CloneRecords(records []EntityRecord) []EntityRecord {
	out := make([]EntityRecord, len(records))
	for i, r := range records {
		out[i] = r
		out[i].Measures = maps.Clone(r.Measures)
		out[i].Derived = DerivedFields{}
	}
	return out
}

// Metric returns the derived value of the record for the given metric key.
func (r EntityRecord) Metric(key MetricKey) *float64 {
	d := r.Derived
	switch key {
	case CompositeMetric:
		return d.Composite
	case ExposureMetric:
		return d.Exposure
	case ResidualMetric:
		return d.Residual
	case CompanionMetric:
		return d.Companion
	case ExpectedMetric:
		return d.Expected
	case CompositeZMetric:
		return d.CompositeZ
	case ExposureZMetric:
		return d.ExposureZ
	case CompositePctMetric:
		return d.Percentiles[CompositeMetric]
	case ExposurePctMetric:
		return d.Percentiles[ExposureMetric]
	case ResidualPctMetric:
		return d.Percentiles[ResidualMetric]
	case CompanionPctMetric:
		return d.Percentiles[CompanionMetric]
	}
	return nil
}

// Row flattens the derived fields of the record.
func (r EntityRecord) Row() IndexRow {
	d := r.Derived
	return IndexRow{
		Composite:    d.Composite,
		Exposure:     d.Exposure,
		Residual:     d.Residual,
		Expected:     d.Expected,
		Companion:    d.Companion,
		CompositeZ:   d.CompositeZ,
		ExposureZ:    d.ExposureZ,
		CompositePct: d.Percentiles[CompositeMetric],
		ExposurePct:  d.Percentiles[ExposureMetric],
		ResidualPct:  d.Percentiles[ResidualMetric],
		CompanionPct: d.Percentiles[CompanionMetric],
		HasGap:       d.HasGap,
	}
}

// MetricColumn extracts one derived metric across all records.
func MetricColumn(records []EntityRecord, key MetricKey) []*float64 {
	out := make([]*float64, len(records))
	for i, r := range records {
		out[i] = r.Metric(key)
	}
	return out
}

// MeasureColumn extracts one raw measure across all records.
func MeasureColumn(records []EntityRecord, key MeasureKey) []*float64 {
	out := make([]*float64, len(records))
	for i, r := range records {
		out[i] = r.Measures[key]
	}
	return out
}

// ExposureColumn extracts the raw exposure across all records.
func ExposureColumn(records []EntityRecord) []*float64 {
	out := make([]*float64, len(records))
	for i, r := range records {
		out[i] = r.Exposure
	}
	return out
}

// PadFIPS left-pads an all-digit id of up to five characters with zeros.
// Other ids are returned trimmed but otherwise unchanged.
func PadFIPS(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) >= 5 {
		return id
	}
	for _, r := range id {
		if !unicode.IsDigit(r) {
			return id
		}
	}
	return strings.Repeat("0", 5-len(id)) + id
}

// StatePrefix returns the 2-digit state code of a county FIPS id, or "" when
// the id is not numeric.
func StatePrefix(id string) string {
	id = PadFIPS(id)
	if len(id) < 2 || !unicode.IsDigit(rune(id[0])) || !unicode.IsDigit(rune(id[1])) {
		return ""
	}
	return id[:2]
}
