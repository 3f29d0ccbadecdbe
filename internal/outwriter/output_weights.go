package outwriter

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var weightsCSVHeader = []string{"measure", "active", "raw_weight", "normalized_weight"}

// WeightEntry is one measure's weight in JSON output.
type WeightEntry struct {
	Measure    schema.MeasureKey `json:"measure"`
	Active     bool              `json:"active"`
	Raw        float64           `json:"raw_weight"`
	Normalized float64           `json:"normalized_weight"`
}

// FormulaStep describes how one derived metric is computed.
type FormulaStep struct {
	Metric  string `json:"metric"`
	Formula string `json:"formula"`
}

// FormulasRenderModel is the complete render model for the formulas command.
type FormulasRenderModel struct {
	Description string        `json:"description"`
	Weights     []WeightEntry `json:"weights"`
	Steps       []FormulaStep `json:"steps"`
}

// PrintWeights outputs raw and normalized weights in canonical measure order.
func PrintWeights(idx schema.IndexConfig, normalized schema.Weights, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	entries := buildWeightEntries(idx, normalized)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, entries)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, weightsCSVHeader, weightRows(entries, fmtFloat))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "weights", weightsCSVHeader, weightRows(entries, fmtFloat))
	case schema.ParquetOut:
		return ErrUnsupportedOutput
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Measure", "Active", "Raw", "Normalized"})
			table.Configure(func(cfg *tablewriter.Config) {
				cfg.Row.Alignment.Global = tw.AlignRight
			})
			if err := table.Bulk(weightRows(entries, fmtFloat)); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote table")
	}
}

func buildWeightEntries(idx schema.IndexConfig, normalized schema.Weights) []WeightEntry {
	entries := make([]WeightEntry, 0, len(idx.Measures))
	for _, k := range idx.Measures {
		entries = append(entries, WeightEntry{
			Measure:    k,
			Active:     idx.Active[k],
			Raw:        idx.Weights[k],
			Normalized: normalized[k],
		})
	}
	return entries
}

func weightRows(entries []WeightEntry, fmtFloat func(float64) string) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{string(e.Measure), strconv.FormatBool(e.Active), fmtFloat(e.Raw), fmtFloat(e.Normalized)})
	}
	return rows
}

// formatWeights formats active weights for display in formulas.
func formatWeights(entries []WeightEntry) string {
	var parts []string
	for _, e := range entries {
		if e.Active && e.Normalized > 0 {
			parts = append(parts, fmt.Sprintf("%.2f*norm(%s)", e.Normalized, e.Measure))
		}
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, " + ")
}

// buildFormulasRenderModel constructs the render model with the current weights substituted.
func buildFormulasRenderModel(idx schema.IndexConfig, normalized schema.Weights) *FormulasRenderModel {
	entries := buildWeightEntries(idx, normalized)
	return &FormulasRenderModel{
		Description: "Each measure is min-max normalized across entities, then combined with normalized weights. " +
			"An entity missing any active measure has no composite and is flagged as a data gap.",
		Weights: entries,
		Steps: []FormulaStep{
			{Metric: "norm(x)", Formula: "(x - min) / (max - min); 0.5 when max == min"},
			{Metric: string(schema.CompositeMetric), Formula: formatWeights(entries)},
			{Metric: string(schema.ExposureMetric), Formula: "norm(exposure)"},
			{Metric: string(schema.ExpectedMetric), Formula: "slope * exposure + intercept (OLS of composite on exposure)"},
			{Metric: string(schema.ResidualMetric), Formula: "composite - expected"},
			{Metric: string(schema.CompanionMetric), Formula: "-residual"},
			{Metric: string(schema.CompositeZMetric), Formula: "(composite - mean) / std (population)"},
			{Metric: string(schema.ExposureZMetric), Formula: "(exposure - mean) / std (population)"},
			{Metric: "<metric>_pct", Formula: "rank / (n - 1) * 100 over entities with a value; 100 when n == 1"},
		},
	}
}

// PrintFormulas displays the formal definitions of every derived metric.
// This is a static display that does not require a dataset.
func PrintFormulas(idx schema.IndexConfig, normalized schema.Weights, cfg *contract.Config) error {
	renderModel := buildFormulasRenderModel(idx, normalized)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, renderModel)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, []string{"metric", "formula"}, formulaRows(renderModel))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "formulas", []string{"metric", "formula"}, formulaRows(renderModel))
	case schema.ParquetOut:
		return ErrUnsupportedOutput
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return printFormulasText(w, renderModel)
		}, "Wrote text")
	}
}

func formulaRows(m *FormulasRenderModel) [][]string {
	rows := make([][]string, 0, len(m.Steps))
	for _, s := range m.Steps {
		rows = append(rows, []string{s.Metric, s.Formula})
	}
	return rows
}

func printFormulasText(w io.Writer, m *FormulasRenderModel) error {
	if _, err := fmt.Fprintf(w, "🌫️  Environmental Health Gap Index\n=================================\n\n%s\n\n", m.Description); err != nil {
		return err
	}
	for _, s := range m.Steps {
		if _, err := fmt.Fprintf(w, "%-14s = %s\n", s.Metric, s.Formula); err != nil {
			return err
		}
	}
	return nil
}
