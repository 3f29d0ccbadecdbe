package algo

import (
	"math"
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ptrs turns a list of values into a column; NaN marks a missing entry.
func ptrs(values ...float64) []*float64 {
	out := make([]*float64, len(values))
	for i, v := range values {
		if !math.IsNaN(v) {
			out[i] = schema.FloatPtr(v)
		}
	}
	return out
}

// deref turns a column back into values; missing entries become NaN.
func deref(values []*float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	return out
}

var null = math.NaN()

func assertColumn(t *testing.T, want []float64, got []*float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.Nil(t, got[i], "index %d should be nil", i)
			continue
		}
		if assert.NotNil(t, got[i], "index %d should be present", i) {
			assert.InDelta(t, want[i], *got[i], 1e-9, "index %d", i)
		}
	}
}

func TestNormalizeMinMax(t *testing.T) {
	tests := []struct {
		name   string
		values []*float64
		want   []float64
	}{
		{"empty", nil, []float64{}},
		{"all null", ptrs(null, null), []float64{null, null}},
		{"zero range", ptrs(3, null, 3), []float64{0.5, null, 0.5}},
		{"basic", ptrs(10, 20, null), []float64{0, 1, null}},
		{"interior", ptrs(0, 5, 10), []float64{0, 0.5, 1}},
		{"negative", ptrs(-2, 0, 2), []float64{0, 0.5, 1}},
		{"infinite ignored", []*float64{schema.FloatPtr(math.Inf(1)), schema.FloatPtr(1), schema.FloatPtr(3)}, []float64{null, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertColumn(t, tt.want, NormalizeMinMax(tt.values))
		})
	}
}

func TestNormalizeMinMaxRoundTrip(t *testing.T) {
	raw := []float64{12.5, 3, 7.25, 100, 42}
	lo, hi := 3.0, 100.0
	norm := NormalizeMinMax(ptrs(raw...))
	for i, v := range norm {
		require.NotNil(t, v)
		assert.GreaterOrEqual(t, *v, 0.0)
		assert.LessOrEqual(t, *v, 1.0)
		assert.InDelta(t, raw[i], lo+*v*(hi-lo), 1e-9)
	}
}

func TestNormalizeMinMaxDoesNotMutate(t *testing.T) {
	in := ptrs(1, 2, 3)
	_ = NormalizeMinMax(in)
	assert.Equal(t, []float64{1, 2, 3}, deref(in))
}

func TestComputeZScores(t *testing.T) {
	t.Run("constant series", func(t *testing.T) {
		assertColumn(t, []float64{0, 0, null, 0}, ComputeZScores(ptrs(4, 4, null, 4)))
	})

	t.Run("population std", func(t *testing.T) {
		// mean 5, population variance 4
		got := ComputeZScores(ptrs(2, 4, 4, 4, 5, 5, 7, 9))
		assertColumn(t, []float64{-1.5, -0.5, -0.5, -0.5, 0, 0, 1, 2}, got)
	})

	t.Run("nulls pass through", func(t *testing.T) {
		assertColumn(t, []float64{-1, null, 1}, ComputeZScores(ptrs(1, null, 3)))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, ComputeZScores(nil))
	})
}

func TestNormalizeExtremeRange(t *testing.T) {
	t.Run("min-max", func(t *testing.T) {
		got := NormalizeMinMax(ptrs(-math.MaxFloat64, 0, math.MaxFloat64))
		assertColumn(t, []float64{0, 0.5, 1}, got)
	})

	t.Run("z-scores", func(t *testing.T) {
		got := ComputeZScores(ptrs(math.MaxFloat64, math.MaxFloat64/2, 0))
		for _, v := range got {
			require.NotNil(t, v)
			assert.False(t, math.IsNaN(*v) || math.IsInf(*v, 0), "z-score %v", *v)
		}
		assert.Greater(t, *got[0], 0.0)
		assert.Less(t, *got[2], 0.0)
		assert.InDelta(t, 0, *got[0]+*got[1]+*got[2], 1e-9)
	})
}

// FuzzNormalizeMinMax checks that every present output lies in [0,1].
func FuzzNormalizeMinMax(f *testing.F) {
	f.Add(1.0, 2.0, 3.0)
	f.Add(0.0, 0.0, 0.0)
	f.Add(-1e9, 5.0, 1e9)
	f.Add(-math.MaxFloat64, 0.0, math.MaxFloat64)

	f.Fuzz(func(t *testing.T, a, b, c float64) {
		out := NormalizeMinMax(ptrs(a, b, c))
		for _, v := range out {
			if v == nil {
				continue
			}
			if *v < 0 || *v > 1 || math.IsNaN(*v) {
				t.Fatalf("value %v out of range for inputs %v %v %v", *v, a, b, c)
			}
		}
	})
}

func BenchmarkNormalizeMinMax(b *testing.B) {
	values := make([]*float64, 3000)
	for i := range values {
		values[i] = schema.FloatPtr(float64(i % 97))
	}

	for b.Loop() {
		_ = NormalizeMinMax(values)
	}
}
