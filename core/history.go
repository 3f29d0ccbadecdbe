package core

import (
	"context"
	"fmt"
	"os"

	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/internal/iocache"
	"github.com/huangsam/envgap/internal/outwriter"
	"github.com/rotisserie/eris"
)

// ErrHistoryDisabled is returned by history commands when no store is configured.
var ErrHistoryDisabled = eris.New("core: run history is not initialized")

func historyStore(mgr contract.StoreManager) (contract.RunStore, error) {
	if mgr == nil {
		return nil, ErrHistoryDisabled
	}
	store := mgr.GetRunStore()
	if store == nil {
		return nil, ErrHistoryDisabled
	}
	return store, nil
}

// ExecuteHistoryStatus prints the state of the run history store.
func ExecuteHistoryStatus(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	store, err := historyStore(mgr)
	if err != nil {
		return err
	}
	status, err := store.GetStatus()
	if err != nil {
		return eris.Wrap(err, "core: get history status")
	}
	return outwriter.NewOutWriter().WriteHistoryStatus(status, cfg)
}

// ExecuteHistoryList prints the most recent runs, up to the result limit.
func ExecuteHistoryList(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	store, err := historyStore(mgr)
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(cfg.ResultLimit)
	if err != nil {
		return eris.Wrap(err, "core: list runs")
	}
	return outwriter.NewOutWriter().WriteRuns(runs, cfg)
}

// ExecuteHistoryClear removes every stored run.
func ExecuteHistoryClear(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	store, err := historyStore(mgr)
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return eris.Wrap(err, "core: clear history")
	}
	fmt.Fprintf(os.Stderr, "🧹 Cleared run history (%s)\n", cfg.HistoryBackend)
	return nil
}

// ExecuteHistoryExport writes every stored run and row to Parquet files.
func ExecuteHistoryExport(_ context.Context, cfg *contract.Config, mgr contract.StoreManager) error {
	store, err := historyStore(mgr)
	if err != nil {
		return err
	}
	res, err := iocache.ExportHistory(store, cfg.OutputFile)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Exported %d runs to %s\n", res.Runs, res.RunsFile)
	fmt.Fprintf(os.Stderr, "💾 Exported %d rows to %s\n", res.Entities, res.EntitiesFile)
	return nil
}

// ExecuteHistoryMigrate migrates the history schema to targetVersion; a
// negative version means the latest.
func ExecuteHistoryMigrate(_ context.Context, cfg *contract.Config, targetVersion int) error {
	res, err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion)
	if err != nil {
		return err
	}
	if !res.Changed {
		fmt.Fprintf(os.Stderr, "✅ History schema already at version %d\n", res.To)
		return nil
	}
	fmt.Fprintf(os.Stderr, "✅ Migrated history schema from version %d to %d\n", res.From, res.To)
	return nil
}
