package algo

import (
	"math"
	"slices"

	"github.com/huangsam/envgap/schema"
	"gonum.org/v1/gonum/floats"
)

// Classify bins the finite entries of values with the given break mode and
// class count. A class count below 1 falls back to the default, and an unknown
// mode falls back to quantile breaks. Duplicate adjacent breakpoints are
// removed before labels are generated, so an empty or constant sample yields
// no labels.
func Classify(values []*float64, mode schema.BreakMode, k int) schema.Classification {
	if k < 1 {
		k = schema.DefaultClassCount
	}
	if _, ok := schema.ValidBreakModes[mode]; !ok {
		mode = schema.QuantileMode
	}

	sample := schema.ValidValues(values)
	var breaks []float64
	switch mode {
	case schema.EqualIntervalMode:
		breaks = EqualIntervalBreaks(sample, k)
	case schema.NaturalBreaksMode:
		breaks = NaturalBreaks(sample, k, schema.DefaultMaxIterations)
	case schema.DivergingMode:
		breaks = DivergingBreaks(sample, k)
	default:
		breaks = QuantileBreaks(sample, k)
	}

	breaks = DedupeBreaks(breaks)
	return schema.Classification{
		Mode:   mode,
		Breaks: breaks,
		Labels: FormatLabels(breaks),
	}
}

// EqualIntervalBreaks splits [min,max] into k equal-width classes.
// The last breakpoint is exactly max.
func EqualIntervalBreaks(sample []float64, k int) []float64 {
	if len(sample) == 0 {
		return nil
	}
	if k < 1 {
		k = schema.DefaultClassCount
	}

	lo, hi := floats.Min(sample), floats.Max(sample)
	step := (hi - lo) / float64(k)
	breaks := make([]float64, k+1)
	for i := range k {
		if math.IsInf(step, 0) {
			breaks[i] = lerp(lo, hi, float64(i)/float64(k))
			continue
		}
		breaks[i] = lo + float64(i)*step
	}
	breaks[k] = hi
	return breaks
}

// QuantileBreaks places breakpoints at the i/k sample quantiles, interpolating
// linearly between order statistics.
func QuantileBreaks(sample []float64, k int) []float64 {
	if len(sample) == 0 {
		return nil
	}
	if k < 1 {
		k = schema.DefaultClassCount
	}

	sorted := sortedCopy(sample)
	breaks := make([]float64, k+1)
	for i := range k + 1 {
		breaks[i] = quantileSorted(sorted, float64(i)/float64(k))
	}
	return breaks
}

// NaturalBreaks clusters the sample into k groups with 1-D k-means and
// returns the group boundaries. Centroids start at evenly spaced sample
// quantiles so the result is deterministic. Iteration stops when no point
// changes group or after maxIter rounds.
func NaturalBreaks(sample []float64, k, maxIter int) []float64 {
	if len(sample) == 0 {
		return nil
	}
	if k < 1 {
		k = schema.DefaultClassCount
	}
	if maxIter < 1 {
		maxIter = schema.DefaultMaxIterations
	}

	sorted := sortedCopy(sample)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if k == 1 {
		return []float64{lo, hi}
	}

	centroids := make([]float64, k)
	for i := range k {
		centroids[i] = quantileSorted(sorted, float64(i)/float64(k-1))
	}

	assign := make([]int, len(sorted))
	for i := range assign {
		assign[i] = -1
	}
	for range maxIter {
		changed := false
		for j, v := range sorted {
			c := nearestCentroid(centroids, v)
			if c != assign[j] {
				assign[j] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		// Means are accumulated as v/n so large samples cannot overflow.
		counts := make([]int, k)
		for j := range sorted {
			counts[assign[j]]++
		}
		means := make([]float64, k)
		for j, v := range sorted {
			means[assign[j]] += v / float64(counts[assign[j]])
		}
		for c := range k {
			if counts[c] > 0 {
				centroids[c] = means[c]
			}
		}
	}

	// Cluster maxima, visited in ascending centroid order.
	maxima := make([]float64, k)
	filled := make([]bool, k)
	for j, v := range sorted {
		c := assign[j]
		if !filled[c] || v > maxima[c] {
			maxima[c] = v
			filled[c] = true
		}
	}
	order := make([]int, k)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case centroids[a] < centroids[b]:
			return -1
		case centroids[a] > centroids[b]:
			return 1
		}
		return 0
	})

	breaks := make([]float64, 0, k+1)
	breaks = append(breaks, lo)
	for _, c := range order[:k-1] {
		prev := breaks[len(breaks)-1]
		if !filled[c] || maxima[c] < prev {
			breaks = append(breaks, prev)
			continue
		}
		breaks = append(breaks, maxima[c])
	}
	return append(breaks, hi)
}

// DivergingBreaks returns k evenly spaced breakpoints from -h to +h where h is
// the largest absolute value in the sample, so zero is always centered.
// A sample of zeros yields the single breakpoint 0.
func DivergingBreaks(sample []float64, k int) []float64 {
	if len(sample) == 0 {
		return nil
	}
	if k < 1 {
		k = schema.DefaultClassCount
	}

	var h float64
	for _, v := range sample {
		h = math.Max(h, math.Abs(v))
	}
	if h == 0 {
		return []float64{0}
	}
	if k < 2 {
		return []float64{-h, h}
	}

	breaks := make([]float64, k)
	step := 2 * h / float64(k-1)
	for i := range k {
		breaks[i] = -h + float64(i)*step
	}
	breaks[k-1] = h
	return breaks
}

// AssignClass returns the 0-based class of v for the given breakpoints, or -1
// when v is missing or there are fewer than two breakpoints. Values outside
// the range are clamped into the first or last class.
func AssignClass(v *float64, breaks []float64) int {
	if !schema.IsValid(v) || len(breaks) < 2 {
		return -1
	}
	last := len(breaks) - 2
	for i := range last {
		if *v <= breaks[i+1] {
			return i
		}
	}
	return last
}

// nearestCentroid returns the index of the closest centroid; ties go to the lower index.
func nearestCentroid(centroids []float64, v float64) int {
	best, bestDist := 0, math.Abs(v-centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := math.Abs(v - centroids[i]); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// quantileSorted interpolates the p-quantile of an ascending sample at
// position p*(n-1).
func quantileSorted(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	frac := pos - float64(lo)
	if frac == 0 || sorted[lo] == sorted[hi] {
		return sorted[lo]
	}
	if d := sorted[hi] - sorted[lo]; !math.IsInf(d, 0) {
		return sorted[lo] + frac*d
	}
	return lerp(sorted[lo], sorted[hi], frac)
}

// lerp interpolates between a and b without forming b-a, which can overflow
// for finite operands of opposite sign.
func lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func sortedCopy(sample []float64) []float64 {
	sorted := slices.Clone(sample)
	slices.Sort(sorted)
	return sorted
}
