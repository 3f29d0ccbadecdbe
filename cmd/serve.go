package cmd

import (
	"os/signal"
	"syscall"

	"github.com/huangsam/envgap/internal/api"
	"github.com/spf13/cobra"
)

// serveCmd starts the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the envgap HTTP API",
	Long: `Serve the index, classification and weight normalization over HTTP.

Routes:
  GET  /api/health
  POST /api/index
  POST /api/classify
  POST /api/weights/normalize
  GET  /metrics`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return sharedSetup(rootCtx, cmd, args)
	},
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return api.NewServer().ListenAndServe(ctx, cfg.ListenAddr)
	},
}
