package cmd

import (
	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/spf13/cobra"
)

// indexCmd ranks entities by the composite or a derived metric.
var indexCmd = &cobra.Command{
	Use:   "index [dataset]",
	Short: "Compute the composite health index and rank entities.",
	Long: `Combine the active health measures into a weighted composite, regress it on the
exposure and rank entities by the chosen metric.

Derived metrics:
- composite, composite_z, composite_pct - weighted health burden
- exposure, exposure_z, exposure_pct - scaled environmental exposure
- residual, residual_pct - burden beyond what exposure predicts
- companion, companion_pct - burden below what exposure predicts
- expected - burden predicted from exposure

Examples:
  # Rank counties by composite burden
  envgap index counties.csv --exposure-column pm25

  # Rank by the unexplained burden with diverging classes
  envgap index counties.csv --exposure-column pm25 --metric residual

  # Weight asthma twice as much as copd and export to Excel
  envgap index counties.csv --weights-override 'asthma:2,copd:1' --output xlsx --output-file index.xlsx`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteIndex(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot compute index", err)
		}
	},
}

// classifyCmd shows the class breaks of a metric.
var classifyCmd = &cobra.Command{
	Use:   "classify [dataset]",
	Short: "Classify a metric into ordered classes.",
	Long: `Compute class breaks for a metric and show how many entities fall into each class.

Break modes:
- quantile  - equal counts per class (default for most metrics)
- equal     - equal-width intervals
- natural   - Jenks natural breaks
- diverging - symmetric around zero (default for residual metrics)

Examples:
  envgap classify counties.csv --metric composite --classes 4
  envgap classify counties.csv --exposure-column pm25 --metric residual`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteClassify(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot classify metric", err)
		}
	},
}

// weightsCmd shows the normalized weights.
var weightsCmd = &cobra.Command{
	Use:   "weights [dataset]",
	Short: "Show raw and normalized measure weights.",
	Long: `Resolve the measure list, active set and raw weights, then print the normalized
weights the composite will use. A dataset is optional when --measures is set.

Examples:
  envgap weights --measures asthma,copd --weights-override 'asthma:3,copd:1'
  envgap weights counties.csv --active asthma`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteWeights(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot resolve weights", err)
		}
	},
}

// formulasCmd documents every derived metric.
var formulasCmd = &cobra.Command{
	Use:   "formulas",
	Short: "Describe how each derived metric is computed.",
	Args:  cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return sharedSetup(rootCtx, cmd, args)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteFormulas(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot describe formulas", err)
		}
	},
}
