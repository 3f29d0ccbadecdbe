package algo

import (
	"cmp"
	"slices"

	"github.com/huangsam/envgap/schema"
)

// PercentileRanks ranks the finite entries of values on a 0-100 scale.
// Entries are sorted ascending with ties broken by original position, and the
// i-th of m sorted entries gets i/(m-1)*100. A single valid entry ranks 100.
func PercentileRanks(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if schema.IsValid(v) {
			idx = append(idx, i)
		}
	}

	m := len(idx)
	switch m {
	case 0:
		return out
	case 1:
		out[idx[0]] = schema.FloatPtr(100)
		return out
	}

	slices.SortStableFunc(idx, func(a, b int) int {
		if c := cmp.Compare(*values[a], *values[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	for rank, i := range idx {
		out[i] = schema.FloatPtr(float64(rank) / float64(m-1) * 100)
	}
	return out
}
