package outwriter

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/parquet"
	"github.com/huangsam/envgap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rotisserie/eris"
)

// indexCSVHeader is shared by the CSV and XLSX renderings of an index report.
var indexCSVHeader = []string{
	"rank", "id", "name", "metric", "value", "class", "label",
	"composite", "exposure", "residual", "expected", "companion",
	"composite_z", "exposure_z",
	"composite_pct", "exposure_pct", "residual_pct", "companion_pct",
	"has_gap",
}

// PrintIndexReport outputs the index report, dispatching based on the output format configured.
func PrintIndexReport(report schema.IndexReport, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, indexCSVHeader, indexRows(report, fmtOptional))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "index", indexCSVHeader, indexRows(report, fmtOptional))
	case schema.ParquetOut:
		if err := parquet.WriteIndexParquet(parquet.ConvertReport(report), cfg.OutputFile); err != nil {
			return eris.Wrap(err, "error writing Parquet output")
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeIndexTable(report, cfg, fmtFloat, fmtOptional, duration, w)
		}, "Wrote table")
	}
}

// indexRows flattens the report into CSV-ready rows.
func indexRows(report schema.IndexReport, fmtOptional func(*float64) string) [][]string {
	rows := make([][]string, 0, len(report.Entities))
	for _, e := range report.Entities {
		r := e.Row
		rows = append(rows, []string{
			strconv.Itoa(e.Rank),
			e.ID,
			e.Name,
			string(report.Metric),
			fmtOptional(e.Value),
			strconv.Itoa(e.Class),
			e.Label,
			fmtOptional(r.Composite),
			fmtOptional(r.Exposure),
			fmtOptional(r.Residual),
			fmtOptional(r.Expected),
			fmtOptional(r.Companion),
			fmtOptional(r.CompositeZ),
			fmtOptional(r.ExposureZ),
			fmtOptional(r.CompositePct),
			fmtOptional(r.ExposurePct),
			fmtOptional(r.ResidualPct),
			fmtOptional(r.CompanionPct),
			strconv.FormatBool(r.HasGap),
		})
	}
	return rows
}

// writeIndexTable generates and writes the human-readable table.
func writeIndexTable(report schema.IndexReport, cfg *contract.Config, fmtFloat func(float64) string, fmtOptional func(*float64) string, duration time.Duration, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Rank", "ID", "Name", string(report.Metric), "Class", "Composite", "Exposure", "Residual", "Pct"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	class := report.Classification
	diverging := class.Mode == schema.DivergingMode
	nameWidth := GetMaxTableNameWidth(cfg)

	var data [][]string
	gaps := 0
	for _, e := range report.Entities {
		if e.Row.HasGap {
			gaps++
		}
		label := e.Label
		if cfg.UseColors {
			label = contract.GetColorLabel(label, e.Class, class.Classes(), diverging)
		}
		data = append(data, []string{
			strconv.Itoa(e.Rank),
			e.ID,
			contract.TruncateText(e.Name, nameWidth),
			dashIfEmpty(fmtOptional(e.Value)),
			dashIfEmpty(label),
			dashIfEmpty(fmtOptional(e.Row.Composite)),
			dashIfEmpty(fmtOptional(e.Row.Exposure)),
			dashIfEmpty(fmtOptional(e.Row.Residual)),
			dashIfEmpty(fmtOptional(e.Row.CompositePct)),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	fit := report.Regression
	if _, err := fmt.Fprintf(writer, "Showing top %d entities by %s (%s breaks, %d classes, %d with data gaps)\n",
		len(report.Entities), report.Metric, class.Mode, class.Classes(), gaps); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Regression: composite = %s × exposure + %s (R² %s, n=%d)\n",
		fmtFloat(fit.Slope), fmtFloat(fit.Intercept), fmtFloat(fit.RSquared), fit.N); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Index computed in %v. History backend: %s\n", duration, cfg.HistoryBackend); err != nil {
		return err
	}
	return nil
}
