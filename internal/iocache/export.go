package iocache

import (
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/parquet"
	"github.com/rotisserie/eris"
)

// ExportResult describes the files written by ExportHistory.
type ExportResult struct {
	RunsFile     string
	EntitiesFile string
	Runs         int
	Entities     int
}

// ExportHistory writes every stored run and entity row to two Parquet files
// named after outputFile.
func ExportHistory(store contract.RunStore, outputFile string) (ExportResult, error) {
	if outputFile == "" {
		return ExportResult{}, eris.New("iocache: --output-file is required for export")
	}
	if store == nil {
		return ExportResult{}, eris.New("iocache: history store is not initialized")
	}

	status, err := store.GetStatus()
	if err != nil {
		return ExportResult{}, eris.Wrap(err, "iocache: get history status")
	}
	if status.TotalRuns == 0 {
		return ExportResult{}, eris.New("iocache: no run history found to export")
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		return ExportResult{}, eris.Wrap(err, "iocache: list runs")
	}
	entities, err := store.ListEntities(0)
	if err != nil {
		return ExportResult{}, eris.Wrap(err, "iocache: list entities")
	}

	res := ExportResult{
		RunsFile:     outputFile + ".runs.parquet",
		EntitiesFile: outputFile + ".entities.parquet",
		Runs:         len(runs),
		Entities:     len(entities),
	}
	if err := parquet.WriteRunsParquet(parquet.ConvertRunSummaries(runs), res.RunsFile); err != nil {
		return ExportResult{}, eris.Wrap(err, "iocache: write runs")
	}
	if err := parquet.WriteIndexParquet(parquet.ConvertRunEntities(entities), res.EntitiesFile); err != nil {
		return ExportResult{}, eris.Wrap(err, "iocache: write entities")
	}
	return res, nil
}
