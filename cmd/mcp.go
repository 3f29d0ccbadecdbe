package cmd

import (
	"github.com/huangsam/envgap/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp [dataset]",
	Short: "Start the envgap MCP server",
	Long:  `Launch an MCP server that allows AI agents to compute the index, classify metrics and compare weightings via standard tools.`,
	Args:  cobra.MaximumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// Tool handlers suppress the text header so stdout stays reserved
		// for the protocol.
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, storeManager)
	},
}
