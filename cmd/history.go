package cmd

import (
	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyCmd is the parent command for run history operations.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage the history of index runs.",
	Long: `Every index run is recorded with its configuration, regression and per-entity rows.
Use these subcommands to inspect, export, clear and migrate that history.`,
}

// historySetup opens the history store without requiring a dataset.
func historySetup(cmd *cobra.Command, _ []string) error {
	return sharedSetup(rootCtx, cmd, nil)
}

// historyStatusCmd shows the state of the history store.
var historyStatusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show run history status",
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryStatus(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot get history status", err)
		}
	},
}

// historyListCmd lists recent runs.
var historyListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List the most recent runs",
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryList(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot list runs", err)
		}
	},
}

// historyClearCmd removes every stored run.
var historyClearCmd = &cobra.Command{
	Use:     "clear",
	Short:   "Clear run history",
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryClear(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot clear history", err)
		}
	},
}

// historyExportCmd writes the history to Parquet.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet files",
	Long: `Export every stored run and its per-entity rows to two Parquet files.

Examples:
  envgap history export --output-file runs.parquet`,
	Args:    cobra.NoArgs,
	PreRunE: historySetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryExport(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot export history", err)
		}
	},
}

// historyMigrateCmd migrates the history schema.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate the run history schema",
	Long: `Apply or roll back schema migrations on the history database.

Examples:
  envgap history migrate
  envgap history migrate --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: migrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteHistoryMigrate(rootCtx, cfg, viper.GetInt("target-version")); err != nil {
			contract.LogFatal("Cannot migrate history", err)
		}
	},
}
