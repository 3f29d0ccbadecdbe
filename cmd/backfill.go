package cmd

import (
	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/spf13/cobra"
)

// backfillCmd fills missing exposure values.
var backfillCmd = &cobra.Command{
	Use:   "backfill [dataset]",
	Short: "Fill missing exposure values with state and national means.",
	Long: `Read the identifier and exposure columns, pad identifiers to five digits and fill
each missing exposure with the mean of its state, or the national mean when the
state has no observed values. The national aggregate row always receives the
national mean.

Examples:
  envgap backfill exposure.csv --exposure-column pm25 --output csv --output-file exposure_filled.csv
  envgap backfill exposure.csv --exposure-column pm25 --national-id -`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteBackfill(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot backfill exposure", err)
		}
	},
}

// plotCmd draws the composite against the exposure.
var plotCmd = &cobra.Command{
	Use:   "plot [dataset]",
	Short: "Plot the composite against the exposure with the fitted line.",
	Long: `Render a scatter chart of composite versus scaled exposure with the regression line.
The image format follows the --plot-file extension.

Examples:
  envgap plot counties.csv --exposure-column pm25 --plot-file gap.png`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecutePlot(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot plot index", err)
		}
	},
}
