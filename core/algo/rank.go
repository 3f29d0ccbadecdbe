package algo

import (
	"cmp"
	"math"
	"slices"

	"github.com/huangsam/envgap/schema"
)

// RankByMetric sorts records by the given metric in descending order and
// returns the top 'limit' records. Records without a value sort last. If limit
// is not positive or exceeds the number of records, all records are returned.
func RankByMetric(records []schema.EntityRecord, metric schema.MetricKey, limit int) []schema.EntityRecord {
	ranked := slices.Clone(records)
	slices.SortStableFunc(ranked, func(a, b schema.EntityRecord) int {
		va, vb := a.Metric(metric), b.Metric(metric)
		okA, okB := schema.IsValid(va), schema.IsValid(vb)
		switch {
		case okA && okB:
			return cmp.Compare(*vb, *va)
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}

// RankComparisons sorts comparison details by absolute percentile change in
// descending order and returns the top 'limit' entries. Entries without a
// percentile delta sort last.
func RankComparisons(details []schema.ComparisonDetails, limit int) []schema.ComparisonDetails {
	ranked := slices.Clone(details)
	slices.SortStableFunc(ranked, func(a, b schema.ComparisonDetails) int {
		okA, okB := a.DeltaPct != nil, b.DeltaPct != nil
		switch {
		case okA && okB:
			return cmp.Compare(math.Abs(*b.DeltaPct), math.Abs(*a.DeltaPct))
		case okA:
			return -1
		case okB:
			return 1
		}
		return 0
	})
	if limit > 0 && len(ranked) > limit {
		return ranked[:limit]
	}
	return ranked
}
