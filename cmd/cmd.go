// Package cmd defines the command-line interface for envgap.
package cmd

import (
	"github.com/huangsam/envgap/internal/contract"
	"github.com/huangsam/envgap/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(formulasCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(plotCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(historyCmd)

	// Add the history subcommands to the parent history command
	historyCmd.AddCommand(historyStatusCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyMigrateCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().StringP("input", "i", "", "Path to the dataset (csv, json, xlsx or shp)")
	rootCmd.PersistentFlags().String("format", "", "Dataset format override: csv or json or xlsx or shp")
	rootCmd.PersistentFlags().String("id-column", contract.DefaultIDColumn, "Column holding the entity identifier")
	rootCmd.PersistentFlags().String("name-column", contract.DefaultNameColumn, "Column holding the entity display name")
	rootCmd.PersistentFlags().String("exposure-column", "", "Column holding the environmental exposure")
	rootCmd.PersistentFlags().StringSlice("measures", nil, "Health measures in canonical order (default: every numeric column)")
	rootCmd.PersistentFlags().StringSlice("active", nil, "Measures that contribute to the composite (default: all)")
	rootCmd.PersistentFlags().String("weights-override", "", "Measure weights (format: 'asthma:0.5,copd:0.25')")
	rootCmd.PersistentFlags().String("metric", string(schema.CompositeMetric), "Metric to classify and rank by")
	rootCmd.PersistentFlags().String("breaks", "", "Class break mode: quantile or equal or natural or diverging")
	rootCmd.PersistentFlags().Int("classes", schema.DefaultClassCount, "Number of classes")
	rootCmd.PersistentFlags().IntP("limit", "l", contract.DefaultResultLimit, "Number of results to display")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json or parquet or xlsx")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("history-backend", string(schema.SQLiteBackend), "Run history backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("history-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("log-level", contract.DefaultLogLevel, "Log level: debug or info or warn or error")
	rootCmd.PersistentFlags().String("log-format", contract.DefaultLogFormat, "Log format: console or json")
	rootCmd.PersistentFlags().String("profile", "", "Enable profiling and write profiles to files with this prefix")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of compareCmd to Viper
	compareCmd.Flags().String("target-weights-override", "", "Target measure weights (format: 'asthma:1,copd:0')")
	compareCmd.Flags().StringSlice("target-active", nil, "Target active measures")
	if err := viper.BindPFlags(compareCmd.Flags()); err != nil {
		contract.LogFatal("Error binding compare flags", err)
	}

	// Bind all flags of backfillCmd to Viper
	backfillCmd.Flags().String("national-id", "", "Identifier of the national aggregate row ('-' disables it)")
	if err := viper.BindPFlags(backfillCmd.Flags()); err != nil {
		contract.LogFatal("Error binding backfill flags", err)
	}

	// Bind all flags of plotCmd to Viper
	plotCmd.Flags().String("plot-file", "", "Path of the chart image (png, svg or pdf)")
	if err := viper.BindPFlags(plotCmd.Flags()); err != nil {
		contract.LogFatal("Error binding plot flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListenAddr, "Address the HTTP API listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of historyMigrateCmd to Viper
	historyMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(historyMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding history migrate flags", err)
	}
}
