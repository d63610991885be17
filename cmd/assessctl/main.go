// Package main implements assessctl, a command-line client for the assessd
// HTTP API.
package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/assessd/pkg/client"
)

var (
	// serverURL is the base URL for the assessd HTTP server
	serverURL string
	// timeout bounds every request
	timeout time.Duration
	// configPath points at the shared assessd config file
	configPath string
	// version information
	version = "dev"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "assessctl",
		Short: "CLI for assessd HTTP server operations",
		Long: `assessctl is a command-line interface for the assessd HTTP server.
It creates assessments, lists their questions, saves answers and downloads
PDF or Excel reports.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", client.DefaultBaseURL, "assessd server URL")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "request timeout")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/assessd/config.yaml)")

	root.AddCommand(
		newHealthCmd(),
		newCreateCmd(),
		newQuestionsCmd(),
		newAnswerCmd(),
		newExportCmd(),
		newImportCmd(),
		newCoverageCmd(),
	)
	return root
}

func newClient() *client.Client {
	return client.New(serverURL, client.WithHTTPClient(httpClient()))
}
