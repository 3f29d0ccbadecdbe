package algo

import "github.com/huangsam/envgap/schema"

// ComputeResiduals returns observed minus predicted composite and the
// predicted composite for every position where both composite and exposure
// are present. Other positions are nil in both outputs.
func ComputeResiduals(composite, exposure []*float64, fit schema.RegressionResult) (residual, expected []*float64) {
	residual = make([]*float64, len(composite))
	expected = make([]*float64, len(composite))
	for i := range composite {
		if i >= len(exposure) || !schema.IsValid(composite[i]) || !schema.IsValid(exposure[i]) {
			continue
		}
		pred := Predict(fit, *exposure[i])
		expected[i] = schema.FloatPtr(pred)
		residual[i] = schema.FloatPtr(*composite[i] - pred)
	}
	return residual, expected
}

// Negate flips the sign of every present value.
func Negate(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if v != nil {
			out[i] = schema.FloatPtr(-*v)
		}
	}
	return out
}
