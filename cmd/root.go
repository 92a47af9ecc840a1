// Package cmd defines the CLI commands for the pokeapi-ingest executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/pokeapi-ingest/internal/config"
	"github.com/JakeFAU/pokeapi-ingest/internal/server"
)

var cfgFile string

// buildApp is the application factory. Tests replace it.
var buildApp = func(ctx context.Context, cfg *config.Config) (*server.App, error) {
	return server.Build(ctx, cfg, nil)
}

// newRootCmd creates the root command and its subcommands.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pokeapi-ingest",
		Short: "Loads PokeAPI pages into a warehouse table, one page per run.",
		Long: `pokeapi-ingest reads a pagination cursor from object storage, fetches one
listing page and its detail records from PokeAPI, advances the cursor and appends
the records to a warehouse table, creating the dataset and table when missing.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newServeCmd())
	return cmd
}

// loadApp reads configuration and builds the application.
func loadApp(ctx context.Context) (*server.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	app, err := buildApp(ctx, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application services: %w", err)
	}
	return app, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
