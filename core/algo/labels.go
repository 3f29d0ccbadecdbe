package algo

import "fmt"

// labelFormat renders one class range at fixed 2-decimal precision.
const labelFormat = "%.2f – %.2f"

// DedupeBreaks drops breakpoints equal to their predecessor.
func DedupeBreaks(breaks []float64) []float64 {
	if len(breaks) == 0 {
		return nil
	}
	out := make([]float64, 0, len(breaks))
	out = append(out, breaks[0])
	for _, b := range breaks[1:] {
		if b != out[len(out)-1] {
			out = append(out, b)
		}
	}
	return out
}

// FormatLabels returns one label per adjacent pair of breakpoints.
func FormatLabels(breaks []float64) []string {
	if len(breaks) < 2 {
		return nil
	}
	labels := make([]string, len(breaks)-1)
	for i := range labels {
		labels[i] = fmt.Sprintf(labelFormat, breaks[i], breaks[i+1])
	}
	return labels
}
