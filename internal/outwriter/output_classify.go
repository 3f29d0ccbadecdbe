package outwriter

import (
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var classCSVHeader = []string{"metric", "mode", "class", "lower", "upper", "label", "count"}

// classificationJSON adds member counts to the classification for JSON output.
type classificationJSON struct {
	schema.Classification
	Counts []int `json:"counts"`
}

// PrintClassification outputs breaks and labels, dispatching based on the output format configured.
func PrintClassification(class schema.Classification, counts []int, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, classificationJSON{Classification: class, Counts: counts})
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, classCSVHeader, classRows(class, counts, fmtFloat))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "classes", classCSVHeader, classRows(class, counts, fmtFloat))
	case schema.ParquetOut:
		return ErrUnsupportedOutput
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeClassTable(class, counts, cfg, fmtFloat, w)
		}, "Wrote table")
	}
}

// classRows renders one row per class. Counts may be shorter than the labels.
func classRows(class schema.Classification, counts []int, fmtFloat func(float64) string) [][]string {
	rows := make([][]string, 0, len(class.Labels))
	for i, label := range class.Labels {
		count := 0
		if i < len(counts) {
			count = counts[i]
		}
		rows = append(rows, []string{
			string(class.Metric),
			string(class.Mode),
			strconv.Itoa(i),
			fmtFloat(class.Breaks[i]),
			fmtFloat(class.Breaks[i+1]),
			label,
			strconv.Itoa(count),
		})
	}
	return rows
}

func writeClassTable(class schema.Classification, counts []int, cfg *contract.Config, fmtFloat func(float64) string, writer io.Writer) error {
	if len(class.Labels) == 0 {
		_, err := fmt.Fprintf(writer, "No classes for %s: the metric has no spread to classify\n", class.Metric)
		return err
	}

	table := tablewriter.NewWriter(writer)
	table.Header([]string{"Class", "Lower", "Upper", "Label", "Count"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	diverging := class.Mode == schema.DivergingMode
	var data [][]string
	for _, row := range classRows(class, counts, fmtFloat) {
		idx, _ := strconv.Atoi(row[2])
		label := row[5]
		if cfg.UseColors {
			label = contract.GetColorLabel(label, idx, class.Classes(), diverging)
		}
		data = append(data, []string{row[2], row[3], row[4], label, row[6]})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(writer, "Classified %s into %d classes using %s breaks\n", class.Metric, class.Classes(), class.Mode)
	return err
}
