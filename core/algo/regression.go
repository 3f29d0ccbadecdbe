package algo

import (
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrLengthMismatch is returned when paired regression inputs differ in length.
var ErrLengthMismatch = eris.New("algo: x and y lengths differ")

// FitLinear fits y = intercept + slope*x by ordinary least squares.
//
// Degenerate inputs never fail: fewer than two pairs give slope 0 and the
// mean of y as intercept, zero variance in x gives slope 0, and zero variance
// in y gives R² 0.
func FitLinear(x, y []float64) (schema.RegressionResult, error) {
	if len(x) != len(y) {
		return schema.RegressionResult{}, eris.Wrapf(ErrLengthMismatch, "len(x)=%d len(y)=%d", len(x), len(y))
	}

	n := len(x)
	res := schema.RegressionResult{N: n}
	if n == 0 {
		return res, nil
	}

	meanY := stat.Mean(y, nil)
	if n < 2 || floats.Min(x) == floats.Max(x) {
		res.Intercept = meanY
		return res, nil
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	res.Slope = beta
	res.Intercept = alpha
	if floats.Min(y) != floats.Max(y) {
		res.RSquared = stat.RSquared(x, y, nil, alpha, beta)
	}
	return res, nil
}

// CompletePairs keeps the positions where both x and y are finite.
func CompletePairs(x, y []*float64) ([]float64, []float64) {
	n := min(len(x), len(y))
	xs := make([]float64, 0, n)
	ys := make([]float64, 0, n)
	for i := range n {
		if schema.IsValid(x[i]) && schema.IsValid(y[i]) {
			xs = append(xs, *x[i])
			ys = append(ys, *y[i])
		}
	}
	return xs, ys
}

// Predict returns the fitted value at x.
func Predict(fit schema.RegressionResult, x float64) float64 {
	return fit.Intercept + fit.Slope*x
}
