package cmd

import (
	"github.com/huangsam/envgap/core"
	"github.com/huangsam/envgap/internal/contract"
	"github.com/spf13/cobra"
)

// compareCmd focused on weighting scenario comparisons.
var compareCmd = &cobra.Command{
	Use:   "compare [dataset]",
	Short: "Compare the index under two weighting configurations.",
	Long: `Run the index twice on the same dataset, once with the base weights and active
measures and once with the target ones, and show per-entity deltas.

Ideal for:
- Sensitivity checks - see how much the ranking depends on the weights
- Measure audits - see what dropping a measure does to each entity

Target weights and active measures fall back to the base ones when not given.

Examples:
  # Drop copd from the composite
  envgap compare counties.csv --active asthma,copd --target-active asthma

  # Shift weight from asthma to copd
  envgap compare counties.csv --weights-override 'asthma:2,copd:1' --target-weights-override 'asthma:1,copd:2'`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCompare(rootCtx, cfg, storeManager); err != nil {
			contract.LogFatal("Cannot run comparison", err)
		}
	},
}
