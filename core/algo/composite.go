package algo

import "github.com/huangsam/envgap/schema"

// ScoreComposite computes the weighted sum of the normalized measures of one
// entity over the given active keys, visited in canonical order. The first
// missing value makes the composite nil and reports a gap; the gap flag and
// the nil composite come from the same check and never disagree.
func ScoreComposite(keys []schema.MeasureKey, normalized map[schema.MeasureKey]*float64, weights schema.Weights) (*float64, bool) {
	if len(keys) == 0 {
		return nil, false
	}

	var sum float64
	for _, k := range keys {
		v := normalized[k]
		if !schema.IsValid(v) {
			return nil, true
		}
		sum += *v * weights[k]
	}
	return schema.FloatPtr(sum), false
}
