package chart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(exposure, composite *float64) schema.EntityRecord {
	return schema.EntityRecord{Derived: schema.DerivedFields{Exposure: exposure, Composite: composite}}
}

func sampleRecords() []schema.EntityRecord {
	return []schema.EntityRecord{
		record(schema.FloatPtr(0), schema.FloatPtr(0.2)),
		record(schema.FloatPtr(0.5), schema.FloatPtr(0.3)),
		record(schema.FloatPtr(1), schema.FloatPtr(1)),
		record(nil, schema.FloatPtr(0.5)),
		record(schema.FloatPtr(0.5), nil),
	}
}

func TestPoints(t *testing.T) {
	fit := schema.RegressionResult{Slope: 1, Intercept: 0}
	above, below := Points(sampleRecords(), fit)
	assert.Len(t, above, 2, "points on or above the line")
	assert.Len(t, below, 1)
	assert.InDelta(t, 0.5, below[0].X, 1e-12)
}

func TestWriteScatter(t *testing.T) {
	fit := schema.RegressionResult{Slope: 0.8, Intercept: 0.1, RSquared: 0.7, N: 3}

	for _, ext := range []string{".png", ".svg"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "scatter"+ext)
			require.NoError(t, WriteScatter(path, sampleRecords(), fit))
			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.NotEmpty(t, content)
			if ext == ".svg" {
				assert.True(t, strings.Contains(string(content), "<svg"))
			}
		})
	}
}

func TestWriteScatterErrors(t *testing.T) {
	dir := t.TempDir()

	err := WriteScatter(filepath.Join(dir, "scatter.gif"), sampleRecords(), schema.RegressionResult{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	err = WriteScatter(filepath.Join(dir, "scatter.png"), []schema.EntityRecord{record(nil, nil)}, schema.RegressionResult{})
	assert.ErrorIs(t, err, ErrNoPoints)
}
