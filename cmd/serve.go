package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// newServeCmd creates the 'serve' subcommand, which hosts the HTTP trigger.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger",
		Long: `Starts an HTTP server whose root path runs one ingestion per request.
Also exposes /healthz, /readyz, /metrics and, when run history is enabled, /runs.
Shuts down gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close(context.WithoutCancel(cmd.Context()))
			}()
			return app.Serve(cmd.Context())
		},
	}
}
