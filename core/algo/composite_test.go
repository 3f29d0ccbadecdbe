package algo

import (
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreComposite(t *testing.T) {
	keys := []schema.MeasureKey{"A", "B"}
	weights := schema.Weights{"A": 0.5, "B": 0.5}

	t.Run("missing input propagates", func(t *testing.T) {
		v, gap := ScoreComposite(keys, map[schema.MeasureKey]*float64{"A": schema.FloatPtr(0.4), "B": nil}, weights)
		assert.Nil(t, v)
		assert.True(t, gap)
	})

	t.Run("complete inputs", func(t *testing.T) {
		v, gap := ScoreComposite(keys, map[schema.MeasureKey]*float64{"A": schema.FloatPtr(0.4), "B": schema.FloatPtr(0.6)}, weights)
		require.NotNil(t, v)
		assert.InDelta(t, 0.5, *v, 1e-12)
		assert.False(t, gap)
	})

	t.Run("absent key is a gap", func(t *testing.T) {
		v, gap := ScoreComposite(keys, map[schema.MeasureKey]*float64{"A": schema.FloatPtr(0.4)}, weights)
		assert.Nil(t, v)
		assert.True(t, gap)
	})

	t.Run("inactive measures are ignored", func(t *testing.T) {
		v, gap := ScoreComposite([]schema.MeasureKey{"A"}, map[schema.MeasureKey]*float64{"A": schema.FloatPtr(0.4), "B": nil}, schema.Weights{"A": 1})
		require.NotNil(t, v)
		assert.InDelta(t, 0.4, *v, 1e-12)
		assert.False(t, gap)
	})

	t.Run("no keys", func(t *testing.T) {
		v, gap := ScoreComposite(nil, nil, nil)
		assert.Nil(t, v)
		assert.False(t, gap)
	})
}

func TestScoreCompositeGapMatchesNull(t *testing.T) {
	keys := []schema.MeasureKey{"A", "B", "C"}
	weights := schema.Weights{"A": 0.2, "B": 0.3, "C": 0.5}
	inputs := []map[schema.MeasureKey]*float64{
		{"A": schema.FloatPtr(0), "B": schema.FloatPtr(1), "C": schema.FloatPtr(0.5)},
		{"A": nil, "B": schema.FloatPtr(1), "C": schema.FloatPtr(0.5)},
		{"A": schema.FloatPtr(0), "B": schema.FloatPtr(1), "C": nil},
		{},
	}
	for _, in := range inputs {
		v, gap := ScoreComposite(keys, in, weights)
		assert.Equal(t, v == nil, gap)
	}
}
