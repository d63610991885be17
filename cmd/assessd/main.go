// Assessd serves the R2v3.1 self-assessment API.
//
// The server imports CSV question banks, stores assessments and their
// answers, and exports completed assessments as PDF or Excel reports.
//
// Configuration is loaded from ~/.config/assessd/config.yaml and ASSESSD_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start the server with defaults
//	assessd serve
//
//	# Load a question bank without running the server
//	assessd import questions.csv
//
//	# Configure via environment
//	ASSESSD_SERVER_HTTP_PORT=8080 ASSESSD_DATABASE_DRIVER=postgres assessd serve
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/assessd/internal/config"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the YAML file passed with --config.
var configPath string

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assessd",
		Short: "R2v3.1 self-assessment server",
		Long: `assessd serves the self-assessment API: CSV question bank imports,
assessments, batched answer saves and PDF/Excel exports.

Running assessd without a subcommand starts the server.`,
		Version:      version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/assessd/config.yaml)")

	root.AddCommand(
		newServeCmd(),
		newImportCmd(),
		newCoverageCmd(),
		newExportCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the assessd HTTP server and block until SIGINT or SIGTERM.

Examples:
  # Start with the default sqlite database
  assessd serve

  # Use postgres
  ASSESSD_DATABASE_DRIVER=postgres ASSESSD_DATABASE_DSN="host=db user=assess" assessd serve`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd)
		},
	}
}

// printVersion prints version information
func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "assessd by Fyrsmith Labs\n")
	fmt.Fprintf(out, "Version:    %s\n", version)
	fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(out, "Build Date: %s\n", buildDate)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	return run(cmd.Context(), cfg)
}
