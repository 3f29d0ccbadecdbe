package outwriter

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/parquet"
	"github.com/huangsam/envgap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/rotisserie/eris"
)

// DateTimeFormat is used for timestamps in tables and CSV.
const DateTimeFormat = "2006-01-02 15:04:05"

var runsCSVHeader = []string{"run_id", "start_time", "end_time", "duration_ms", "total_entities", "slope", "intercept", "r_squared", "pairs", "config_params"}

// PrintRuns outputs stored run summaries, newest first.
func PrintRuns(runs []schema.RunSummary, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, runs)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeCSVRows(w, runsCSVHeader, runRows(runs, fmtFloat))
		}, "Wrote CSV")
	case schema.XLSXOut:
		return writeXLSX(cfg.OutputFile, "runs", runsCSVHeader, runRows(runs, fmtFloat))
	case schema.ParquetOut:
		if err := parquet.WriteRunsParquet(parquet.ConvertRunSummaries(runs), cfg.OutputFile); err != nil {
			return eris.Wrap(err, "error writing Parquet output")
		}
		fmt.Fprintf(os.Stderr, "💾 Wrote Parquet to %s\n", cfg.OutputFile)
		return nil
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			if len(runs) == 0 {
				_, err := fmt.Fprintln(w, "No runs recorded yet")
				return err
			}
			table := tablewriter.NewWriter(w)
			table.Header([]string{"Run", "Started", "Duration", "Entities", "Slope", "Intercept", "R²", "Pairs"})
			table.Configure(func(cfg *tablewriter.Config) {
				cfg.Row.Alignment.Global = tw.AlignRight
			})
			var data [][]string
			for _, row := range runRows(runs, fmtFloat) {
				duration := "-"
				if row[3] != "" {
					duration = row[3] + "ms"
				}
				data = append(data, []string{row[0], row[1], duration, row[4], row[5], row[6], row[7], row[8]})
			}
			if err := table.Bulk(data); err != nil {
				return err
			}
			return table.Render()
		}, "Wrote table")
	}
}

func runRows(runs []schema.RunSummary, fmtFloat func(float64) string) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		end, duration := "", ""
		if r.EndTime != nil {
			end = r.EndTime.Local().Format(DateTimeFormat)
		}
		if r.DurationMs != nil {
			duration = strconv.FormatInt(*r.DurationMs, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(r.RunID, 10),
			r.StartTime.Local().Format(DateTimeFormat),
			end,
			duration,
			strconv.Itoa(r.TotalEntities),
			fmtFloat(r.Regression.Slope),
			fmtFloat(r.Regression.Intercept),
			fmtFloat(r.Regression.RSquared),
			strconv.Itoa(r.Regression.N),
			r.ConfigParams,
		})
	}
	return rows
}

// PrintHistoryStatus outputs the state of the run history store.
func PrintHistoryStatus(status schema.HistoryStatus, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, status)
		}, "Wrote JSON")
	}
	return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		if _, err := fmt.Fprintf(w, "Backend:   %s\nConnected: %t\n", status.Backend, status.Connected); err != nil {
			return err
		}
		if !status.Connected {
			return nil
		}
		if _, err := fmt.Fprintf(w, "Runs:      %d\nEntities:  %d\n", status.TotalRuns, status.TotalEntities); err != nil {
			return err
		}
		if status.TotalRuns == 0 {
			return nil
		}
		_, err := fmt.Fprintf(w, "Last run:  #%d at %s\nOldest:    %s\n",
			status.LastRunID,
			status.LastRunTime.Local().Format(DateTimeFormat),
			status.OldestRunTime.Local().Format(DateTimeFormat))
		return err
	}, "Wrote status")
}

// PrintBackfill writes the backfilled exposure column as CSV, the format the
// loaders read back. JSON output includes the imputation counts.
func PrintBackfill(result schema.BackfillResult, cfg *contract.Config) error {
	column := cfg.ExposureColumn
	if column == "" {
		column = "exposure"
	}
	if cfg.Output == schema.JSONOut {
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, result)
		}, "Wrote JSON")
	}

	fmtFloat, _ := createFormatters(3)
	rows := make([][]string, 0, len(result.Records))
	for _, r := range result.Records {
		if r.Exposure == nil {
			continue
		}
		rows = append(rows, []string{r.ID, fmtFloat(*r.Exposure)})
	}
	if cfg.Output == schema.XLSXOut {
		return writeXLSX(cfg.OutputFile, "backfill", []string{"fips", column}, rows)
	}
	if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
		return writeCSVRows(w, []string{"fips", column}, rows)
	}, "Wrote CSV"); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Backfilled %d from state means, %d from the national mean (%.3f), skipped %d\n",
		result.FromState, result.FromNational, result.NationalMean, result.Skipped)
	return nil
}
