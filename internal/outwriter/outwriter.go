// Package outwriter has output and writer logic.
package outwriter

import (
	"time"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/rotisserie/eris"
)

// ErrUnsupportedOutput is returned when a result type cannot be rendered in the configured format.
var ErrUnsupportedOutput = eris.New("outwriter: output format not supported for this result")

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WriteIndex prints the ranked index report using the configured output format.
func (ow *OutWriter) WriteIndex(report schema.IndexReport, cfg *contract.Config, duration time.Duration) error {
	return PrintIndexReport(report, cfg, duration)
}

// WriteClassification prints class breaks, labels and member counts.
func (ow *OutWriter) WriteClassification(class schema.Classification, counts []int, cfg *contract.Config) error {
	return PrintClassification(class, counts, cfg)
}

// WriteWeights prints raw and normalized weights for each measure.
func (ow *OutWriter) WriteWeights(idx schema.IndexConfig, normalized schema.Weights, cfg *contract.Config) error {
	return PrintWeights(idx, normalized, cfg)
}

// WriteComparison prints comparison results using the configured output format.
func (ow *OutWriter) WriteComparison(result schema.ComparisonResult, cfg *contract.Config, duration time.Duration) error {
	return PrintComparisonResults(result, cfg, duration)
}

// WriteFormulas prints the formulas behind every derived metric.
func (ow *OutWriter) WriteFormulas(idx schema.IndexConfig, normalized schema.Weights, cfg *contract.Config) error {
	return PrintFormulas(idx, normalized, cfg)
}

// WriteRuns prints stored run summaries.
func (ow *OutWriter) WriteRuns(runs []schema.RunSummary, cfg *contract.Config) error {
	return PrintRuns(runs, cfg)
}

// WriteHistoryStatus prints the state of the run history store.
func (ow *OutWriter) WriteHistoryStatus(status schema.HistoryStatus, cfg *contract.Config) error {
	return PrintHistoryStatus(status, cfg)
}

// WriteBackfill prints backfilled exposure values as fips,<exposure column>.
func (ow *OutWriter) WriteBackfill(result schema.BackfillResult, cfg *contract.Config) error {
	return PrintBackfill(result, cfg)
}
