package algo

import "github.com/huangsam/envgap/schema"

// NormalizeWeights rescales the weights of the active keys so they sum to 1.
// Each weight is clamped to [0,1] first. When every active weight is zero the
// active keys share the weight equally. Inactive keys always get 0, so an
// empty active set yields an all-zero vector.
func NormalizeWeights(keys []schema.MeasureKey, weights schema.Weights, active schema.ActiveSet) schema.Weights {
	out := make(schema.Weights, len(keys))
	var activeKeys []schema.MeasureKey
	for _, k := range keys {
		out[k] = 0
		if active[k] {
			activeKeys = append(activeKeys, k)
		}
	}
	if len(activeKeys) == 0 {
		return out
	}

	var sum float64
	for _, k := range activeKeys {
		w := clamp01(weights[k])
		out[k] = w
		sum += w
	}

	if sum == 0 {
		share := 1.0 / float64(len(activeKeys))
		for _, k := range activeKeys {
			out[k] = share
		}
		return out
	}

	for _, k := range activeKeys {
		out[k] /= sum
	}
	return out
}

// clamp01 clamps v to [0,1]. NaN is treated as 0.
func clamp01(v float64) float64 {
	if !(v > 0) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
