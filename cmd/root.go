// Package cmd implements the lectern command line interface.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern0/lectern/internal/app"
	"github.com/lectern0/lectern/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "Lectern - ask questions about your course materials",
	Long: `Lectern answers questions about indexed course documents.

It chunks and embeds course materials into PostgreSQL with pgvector,
then lets Claude search them with tools to produce cited answers.

Index documents with 'lectern index', then ask with 'lectern ask'
or start an interactive conversation with 'lectern chat'.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads configuration and assembles the application.
// Callers must Close the returned App.
func setup(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	return app.Setup(ctx, cfg)
}
