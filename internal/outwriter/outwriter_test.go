package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/parquet"
	"github.com/huangsam/envgap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, output schema.OutputMode, ext string) *contract.Config {
	t.Helper()
	return &contract.Config{
		Output:         output,
		OutputFile:     filepath.Join(t.TempDir(), "out"+ext),
		Precision:      3,
		Width:          120,
		ExposureColumn: "pm25_mean_2016_2024",
		HistoryBackend: schema.SQLiteBackend,
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func sampleReport() schema.IndexReport {
	return schema.IndexReport{
		Regression: schema.RegressionResult{Slope: 0.8, Intercept: 0.1, RSquared: 0.64, N: 2},
		Weights:    schema.Weights{"asthma": 1},
		Metric:     schema.CompositeMetric,
		Classification: schema.Classification{
			Metric: schema.CompositeMetric,
			Mode:   schema.QuantileMode,
			Breaks: []float64{0, 0.5, 1},
			Labels: []string{"0.00 – 0.50", "0.50 – 1.00"},
		},
		Entities: []schema.ReportEntity{
			{
				Rank: 1, ID: "01003", Name: "Baldwin", Value: schema.FloatPtr(1), Class: 1, Label: "0.50 – 1.00",
				Row: schema.IndexRow{Composite: schema.FloatPtr(1), CompositePct: schema.FloatPtr(100)},
			},
			{
				Rank: 2, ID: "01001", Name: "Autauga", Value: nil, Class: -1,
				Row: schema.IndexRow{HasGap: true},
			},
		},
	}
}

func TestPrintIndexReport_CSV(t *testing.T) {
	cfg := testConfig(t, schema.CSVOut, ".csv")
	require.NoError(t, NewOutWriter().WriteIndex(sampleReport(), cfg, time.Second))

	records := readCSV(t, cfg.OutputFile)
	require.Len(t, records, 3)
	assert.Equal(t, indexCSVHeader, records[0])
	assert.Equal(t, []string{"1", "01003", "Baldwin", "composite", "1.000", "1", "0.50 – 1.00"}, records[1][:7])
	assert.Equal(t, "", records[2][4], "missing values render empty")
	assert.Equal(t, "-1", records[2][5])
	assert.Equal(t, "true", records[2][len(records[2])-1])
}

func TestPrintIndexReport_JSON(t *testing.T) {
	cfg := testConfig(t, schema.JSONOut, ".json")
	require.NoError(t, NewOutWriter().WriteIndex(sampleReport(), cfg, time.Second))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var got schema.IndexReport
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, schema.CompositeMetric, got.Metric)
	require.Len(t, got.Entities, 2)
	assert.Nil(t, got.Entities[1].Value)
	assert.Equal(t, []float64{0, 0.5, 1}, got.Classification.Breaks)
}

func TestPrintIndexReport_Table(t *testing.T) {
	cfg := testConfig(t, schema.TextOut, ".txt")
	require.NoError(t, NewOutWriter().WriteIndex(sampleReport(), cfg, time.Second))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	out := string(content)
	assert.Contains(t, out, "Baldwin")
	assert.Contains(t, out, "Showing top 2 entities by composite (quantile breaks, 2 classes, 1 with data gaps)")
	assert.Contains(t, out, "R² 0.640, n=2")
}

func TestPrintIndexReport_Parquet(t *testing.T) {
	cfg := testConfig(t, schema.ParquetOut, ".parquet")
	require.NoError(t, NewOutWriter().WriteIndex(sampleReport(), cfg, time.Second))

	rows, err := parquet.ReadIndexParquet(cfg.OutputFile)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "01003", rows[0].ID)
	assert.Nil(t, rows[1].Composite)
}

func TestPrintIndexReport_XLSX(t *testing.T) {
	cfg := testConfig(t, schema.XLSXOut, ".xlsx")
	require.NoError(t, NewOutWriter().WriteIndex(sampleReport(), cfg, time.Second))
	info, err := os.Stat(cfg.OutputFile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestPrintClassification(t *testing.T) {
	class := sampleReport().Classification

	t.Run("csv", func(t *testing.T) {
		cfg := testConfig(t, schema.CSVOut, ".csv")
		require.NoError(t, NewOutWriter().WriteClassification(class, []int{3, 2}, cfg))
		records := readCSV(t, cfg.OutputFile)
		require.Len(t, records, 3)
		assert.Equal(t, []string{"composite", "quantile", "0", "0.000", "0.500", "0.00 – 0.50", "3"}, records[1])
		assert.Equal(t, "2", records[2][6])
	})

	t.Run("short counts", func(t *testing.T) {
		rows := classRows(class, nil, func(v float64) string { return "x" })
		require.Len(t, rows, 2)
		assert.Equal(t, "0", rows[0][6])
	})

	t.Run("no classes", func(t *testing.T) {
		var buf bytes.Buffer
		err := writeClassTable(schema.Classification{Metric: schema.ResidualMetric}, nil, &contract.Config{}, func(float64) string { return "" }, &buf)
		require.NoError(t, err)
		assert.Contains(t, buf.String(), "No classes for residual")
	})

	t.Run("parquet unsupported", func(t *testing.T) {
		cfg := testConfig(t, schema.ParquetOut, ".parquet")
		assert.ErrorIs(t, NewOutWriter().WriteClassification(class, nil, cfg), ErrUnsupportedOutput)
	})
}

func TestPrintWeights(t *testing.T) {
	idx := schema.IndexConfig{
		Measures: []schema.MeasureKey{"asthma", "copd", "chd"},
		Weights:  schema.Weights{"asthma": 0.6, "copd": 0.2},
		Active:   schema.ActiveSet{"asthma": true, "copd": true, "chd": false},
	}
	normalized := schema.Weights{"asthma": 0.75, "copd": 0.25, "chd": 0}

	cfg := testConfig(t, schema.CSVOut, ".csv")
	require.NoError(t, NewOutWriter().WriteWeights(idx, normalized, cfg))
	records := readCSV(t, cfg.OutputFile)
	assert.Equal(t, [][]string{
		weightsCSVHeader,
		{"asthma", "true", "0.600", "0.750"},
		{"copd", "true", "0.200", "0.250"},
		{"chd", "false", "0.000", "0.000"},
	}, records)
}

func TestFormatWeights(t *testing.T) {
	tests := []struct {
		name     string
		entries  []WeightEntry
		expected string
	}{
		{
			name: "active positive weights only",
			entries: []WeightEntry{
				{Measure: "asthma", Active: true, Normalized: 0.75},
				{Measure: "copd", Active: true, Normalized: 0.25},
				{Measure: "chd", Active: false, Normalized: 0},
			},
			expected: "0.75*norm(asthma) + 0.25*norm(copd)",
		},
		{
			name:     "nothing active",
			entries:  []WeightEntry{{Measure: "chd"}},
			expected: "0",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatWeights(tt.entries))
		})
	}
}

func TestPrintFormulas(t *testing.T) {
	idx := schema.IndexConfig{
		Measures: []schema.MeasureKey{"asthma"},
		Weights:  schema.Weights{"asthma": 1},
		Active:   schema.ActiveSet{"asthma": true},
	}
	cfg := testConfig(t, schema.TextOut, ".txt")
	require.NoError(t, NewOutWriter().WriteFormulas(idx, schema.Weights{"asthma": 1}, cfg))

	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "1.00*norm(asthma)")
	assert.Contains(t, string(content), "companion")
}

func TestPrintComparisonResults(t *testing.T) {
	result := schema.ComparisonResult{
		Details: []schema.ComparisonDetails{
			{
				ID: "a", BeforeComposite: schema.FloatPtr(0), AfterComposite: schema.FloatPtr(1), DeltaComposite: schema.FloatPtr(1),
				BeforePct: schema.FloatPtr(0), AfterPct: schema.FloatPtr(100), DeltaPct: schema.FloatPtr(100),
			},
			{ID: "b"},
		},
	}

	cfg := testConfig(t, schema.CSVOut, ".csv")
	require.NoError(t, NewOutWriter().WriteComparison(result, cfg, time.Second))
	records := readCSV(t, cfg.OutputFile)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"1", "a", "", "0.000", "1.000", "1.000", "0.000", "100.000", "100.000"}, records[1])
	assert.Equal(t, []string{"2", "b", "", "", "", "", "", "", ""}, records[2])

	_, fmtOptional := createFormatters(1)
	assert.Equal(t, "+1.0", formatDelta(schema.FloatPtr(1), fmtOptional))
	assert.Equal(t, "-1.0", formatDelta(schema.FloatPtr(-1), fmtOptional))
	assert.Equal(t, "-", formatDelta(nil, fmtOptional))
}

func TestPrintRuns(t *testing.T) {
	end := time.Date(2026, 5, 1, 10, 0, 2, 0, time.UTC)
	ms := int64(2000)
	runs := []schema.RunSummary{
		{RunID: 2, StartTime: end.Add(-2 * time.Second), EndTime: &end, DurationMs: &ms, TotalEntities: 10,
			Regression: schema.RegressionResult{Slope: 1, RSquared: 0.5, N: 9}},
		{RunID: 1, StartTime: end.Add(-time.Hour)},
	}

	t.Run("csv", func(t *testing.T) {
		cfg := testConfig(t, schema.CSVOut, ".csv")
		require.NoError(t, NewOutWriter().WriteRuns(runs, cfg))
		records := readCSV(t, cfg.OutputFile)
		require.Len(t, records, 3)
		assert.Equal(t, "2", records[1][0])
		assert.Equal(t, "2000", records[1][3])
		assert.Equal(t, "", records[2][2])
	})

	t.Run("parquet", func(t *testing.T) {
		cfg := testConfig(t, schema.ParquetOut, ".parquet")
		require.NoError(t, NewOutWriter().WriteRuns(runs, cfg))
		got, err := parquet.ReadRunsParquet(cfg.OutputFile)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("empty table", func(t *testing.T) {
		cfg := testConfig(t, schema.TextOut, ".txt")
		require.NoError(t, NewOutWriter().WriteRuns(nil, cfg))
		content, err := os.ReadFile(cfg.OutputFile)
		require.NoError(t, err)
		assert.Equal(t, "No runs recorded yet\n", string(content))
	})
}

func TestPrintHistoryStatus(t *testing.T) {
	now := time.Now()
	status := schema.HistoryStatus{
		Backend: schema.SQLiteBackend, Connected: true, TotalRuns: 2, TotalEntities: 20,
		LastRunID: 2, LastRunTime: now, OldestRunTime: now.Add(-time.Hour),
	}
	cfg := testConfig(t, schema.TextOut, ".txt")
	require.NoError(t, NewOutWriter().WriteHistoryStatus(status, cfg))
	content, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "Backend:   sqlite")
	assert.Contains(t, string(content), "Last run:  #2")

	disabled := testConfig(t, schema.TextOut, ".txt")
	require.NoError(t, NewOutWriter().WriteHistoryStatus(schema.HistoryStatus{Backend: schema.NoneBackend}, disabled))
	content, err = os.ReadFile(disabled.OutputFile)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(content), "Runs:"))
}

func TestPrintBackfill(t *testing.T) {
	result := schema.BackfillResult{
		Records: []schema.EntityRecord{
			{ID: "01001", Exposure: schema.FloatPtr(9.5)},
			{ID: "01003", Exposure: schema.FloatPtr(10.1234)},
			{ID: "01005"},
		},
		FromState: 1,
	}
	cfg := testConfig(t, schema.CSVOut, ".csv")
	require.NoError(t, NewOutWriter().WriteBackfill(result, cfg))
	assert.Equal(t, [][]string{
		{"fips", "pm25_mean_2016_2024"},
		{"01001", "9.500"},
		{"01003", "10.123"},
	}, readCSV(t, cfg.OutputFile))
}

func TestGetMaxTableNameWidth(t *testing.T) {
	tests := []struct {
		width    int
		expected int
	}{
		{width: 80, expected: 12},
		{width: 140, expected: 25},
		{width: 400, expected: 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, GetMaxTableNameWidth(&contract.Config{Width: tt.width}))
	}
}
