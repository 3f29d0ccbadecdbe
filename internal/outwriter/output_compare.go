package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rotisserie/eris"
)

var compareCSVHeader = []string{
	"rank", "id", "name",
	"base_composite", "target_composite", "delta_composite",
	"base_pct", "target_pct", "delta_pct",
}

// PrintComparisonResults outputs the comparison, dispatching based on the output format configured.
func PrintComparisonResults(result schema.ComparisonResult, cfg *contract.Config, duration time.Duration) error {
	fmtFloat, fmtOptional := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, compareCSVHeader, comparisonRows(result, fmtOptional))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "comparison", compareCSVHeader, comparisonRows(result, fmtOptional))
	case schema.ParquetOut:
		return eris.Wrap(ErrUnsupportedOutput, "comparison")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeComparisonTable(result, cfg, fmtFloat, fmtOptional, duration, w)
		}, "Wrote table")
	}
}

func comparisonRows(result schema.ComparisonResult, fmtOptional func(*float64) string) [][]string {
	rows := make([][]string, 0, len(result.Details))
	for i, d := range result.Details {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			d.ID,
			d.Name,
			fmtOptional(d.BeforeComposite),
			fmtOptional(d.AfterComposite),
			fmtOptional(d.DeltaComposite),
			fmtOptional(d.BeforePct),
			fmtOptional(d.AfterPct),
			fmtOptional(d.DeltaPct),
		})
	}
	return rows
}

// formatDelta prefixes positive changes with a plus sign.
func formatDelta(v *float64, fmtOptional func(*float64) string) string {
	s := fmtOptional(v)
	if v != nil && *v > 0 {
		return "+" + s
	}
	return dashIfEmpty(s)
}

func writeComparisonTable(result schema.ComparisonResult, cfg *contract.Config, fmtFloat func(float64) string, fmtOptional func(*float64) string, duration time.Duration, writer io.Writer) error {
	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Rank", "ID", "Name", "Base", "Target", "Δ Composite", "Base %", "Target %", "Δ %"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	nameWidth := GetMaxTableNameWidth(cfg)
	var data [][]string
	for i, d := range result.Details {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			d.ID,
			contract.TruncateText(d.Name, nameWidth),
			dashIfEmpty(fmtOptional(d.BeforeComposite)),
			dashIfEmpty(fmtOptional(d.AfterComposite)),
			formatDelta(d.DeltaComposite, fmtOptional),
			dashIfEmpty(fmtOptional(d.BeforePct)),
			dashIfEmpty(fmtOptional(d.AfterPct)),
			formatDelta(d.DeltaPct, fmtOptional),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	base, target := result.BaseRegression, result.TargetRegression
	if _, err := fmt.Fprintf(writer, "Showing top %d entities by percentile change\n", len(result.Details)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(writer, "Base R² %s (n=%d) → target R² %s (n=%d)\n",
		fmtFloat(base.RSquared), base.N, fmtFloat(target.RSquared), target.N); err != nil {
		return err
	}
	_, err := fmt.Fprintf(writer, "Comparison completed in %v\n", duration)
	return err
}
