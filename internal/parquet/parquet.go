// Package parquet provides data structures and functions for exporting index
// results and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"io"
	"os"
	"time"

	"github.com/huangsam/envgap/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
)

// Run represents a single stored pipeline run with its regression summary.
// This struct maps to the envgap_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// DurationMs is the duration of the run in milliseconds (nullable)
	DurationMs *int64 `parquet:"duration_ms,optional,snappy"`

	TotalEntities int32   `parquet:"total_entities,snappy"`
	Slope         float64 `parquet:"slope,snappy"`
	Intercept     float64 `parquet:"intercept,snappy"`
	RSquared      float64 `parquet:"r_squared,snappy"`
	Pairs         int32   `parquet:"pairs,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// EntityIndex is one entity's derived values. RunID is zero for rows exported
// straight from a pipeline result rather than from history.
type EntityIndex struct {
	RunID        int64    `parquet:"run_id,snappy"`
	Rank         int32    `parquet:"rank,snappy"`
	ID           string   `parquet:"id,snappy"`
	Name         *string  `parquet:"name,optional,snappy"`
	Composite    *float64 `parquet:"composite,optional,snappy"`
	Exposure     *float64 `parquet:"exposure,optional,snappy"`
	Residual     *float64 `parquet:"residual,optional,snappy"`
	Expected     *float64 `parquet:"expected,optional,snappy"`
	Companion    *float64 `parquet:"companion,optional,snappy"`
	CompositeZ   *float64 `parquet:"composite_z,optional,snappy"`
	ExposureZ    *float64 `parquet:"exposure_z,optional,snappy"`
	CompositePct *float64 `parquet:"composite_pct,optional,snappy"`
	ExposurePct  *float64 `parquet:"exposure_pct,optional,snappy"`
	ResidualPct  *float64 `parquet:"residual_pct,optional,snappy"`
	CompanionPct *float64 `parquet:"companion_pct,optional,snappy"`
	HasGap       bool     `parquet:"has_gap,snappy"`

	// Class is the class index of the ranked metric, -1 when unclassified
	Class int32   `parquet:"class,snappy"`
	Label *string `parquet:"label,optional,snappy"`
}

// WriteRunsParquet writes runs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteIndexParquet writes entity rows to a Parquet file.
func WriteIndexParquet(data []EntityIndex, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteIndex writes entity rows to w.
func WriteIndex(w io.Writer, data []EntityIndex) error {
	return write(w, data)
}

// ReadIndexParquet reads every entity row from a Parquet file.
func ReadIndexParquet(path string) ([]EntityIndex, error) {
	return readFile[EntityIndex](path)
}

// ReadRunsParquet reads every run from a Parquet file.
func ReadRunsParquet(path string) ([]Run, error) {
	return readFile[Run](path)
}

func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return eris.Wrapf(err, "parquet: create %s", outputPath)
	}
	defer func() { _ = file.Close() }()
	return write(file, data)
}

// write derives the schema from T's struct tags.
func write[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return eris.Wrap(err, "parquet: write rows")
	}
	if err := writer.Close(); err != nil {
		return eris.Wrap(err, "parquet: close writer")
	}
	return nil
}

func readFile[T any](path string) ([]T, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "parquet: open %s", path)
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, eris.Wrap(err, "parquet: read rows")
	}
	return rows[:n], nil
}

// ConvertRunSummaries converts stored run summaries for Parquet export.
func ConvertRunSummaries(runs []schema.RunSummary) []Run {
	result := make([]Run, len(runs))
	for i, r := range runs {
		result[i] = Run{
			RunID:         r.RunID,
			StartTime:     r.StartTime,
			EndTime:       r.EndTime,
			DurationMs:    r.DurationMs,
			TotalEntities: int32(r.TotalEntities),
			Slope:         r.Regression.Slope,
			Intercept:     r.Regression.Intercept,
			RSquared:      r.Regression.RSquared,
			Pairs:         int32(r.Regression.N),
			ConfigParams:  optionalString(r.ConfigParams),
		}
	}
	return result
}

// ConvertRunEntities converts stored entity rows for Parquet export.
func ConvertRunEntities(entities []schema.RunEntity) []EntityIndex {
	result := make([]EntityIndex, len(entities))
	for i, e := range entities {
		result[i] = fromRow(e.RunID, int32(i+1), e.ID, e.Name, e.Values)
		result[i].Class = -1
	}
	return result
}

// ConvertReport converts a ranked index report for Parquet export.
func ConvertReport(report schema.IndexReport) []EntityIndex {
	result := make([]EntityIndex, len(report.Entities))
	for i, e := range report.Entities {
		row := fromRow(0, int32(e.Rank), e.ID, e.Name, e.Row)
		row.Class = int32(e.Class)
		row.Label = optionalString(e.Label)
		result[i] = row
	}
	return result
}

func fromRow(runID int64, rank int32, id, name string, v schema.IndexRow) EntityIndex {
	return EntityIndex{
		RunID:        runID,
		Rank:         rank,
		ID:           id,
		Name:         optionalString(name),
		Composite:    v.Composite,
		Exposure:     v.Exposure,
		Residual:     v.Residual,
		Expected:     v.Expected,
		Companion:    v.Companion,
		CompositeZ:   v.CompositeZ,
		ExposureZ:    v.ExposureZ,
		CompositePct: v.CompositePct,
		ExposurePct:  v.ExposurePct,
		ResidualPct:  v.ResidualPct,
		CompanionPct: v.CompanionPct,
		HasGap:       v.HasGap,
	}
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
