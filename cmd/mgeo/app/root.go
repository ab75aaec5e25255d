// Package app provides the command-line interface implementation for mgeo.
//
// This package contains all CLI commands and their implementations, built
// with cobra. Commands are organized hierarchically with a root command and
// subcommands.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/cmd/mgeo/client"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
)

const (
	// cliName is the name of the CLI application
	cliName = "mgeo"

	// cliDescription is the short description shown in help text
	cliDescription = "mgeo - Chinese address parsing and MGeo fine-tuning"
)

// Version is the CLI version, overridable at build time with -ldflags.
var Version = "1.0.0"

// GetVersion returns the CLI version string.
func GetVersion() string {
	return Version
}

// GlobalOptions holds options that are common to all commands
type GlobalOptions struct {
	// ServerURL is the mgeo server address
	ServerURL string

	// Verbose enables verbose output
	Verbose bool
}

// NewMGeoCommand creates the root mgeo command with all subcommands.
//
// The root command provides the main entry point for the CLI. It sets up
// global flags and registers all subcommands.
//
// Returns:
//   - A configured cobra.Command ready for execution
//
// Example:
//
//	cmd := NewMGeoCommand()
//	if err := cmd.Execute(); err != nil {
//	    os.Exit(1)
//	}
func NewMGeoCommand() *cobra.Command {
	opts := &GlobalOptions{}

	cmd := &cobra.Command{
		Use:   cliName,
		Short: cliDescription,
		Long: `mgeo is a command-line tool for Chinese address parsing built around the
MGeo token-classification model.

It covers the full data flywheel: labeling raw addresses with an LLM,
converting annotations to training datasets, fine-tuning the MGeo backbone,
and serving the trained model for address standardization.

Commands that talk to the server (parse, batch, ps, logs, pull) require a
running mgeo server. Start one with 'mgeo serve'.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ServerURL, "server", "",
		fmt.Sprintf("mgeo server address (default: http://localhost:%d)", config.DefaultServerPort))
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false,
		"verbose output")

	cmd.AddCommand(
		NewTrainCommand(opts),
		NewConvertCommand(opts),
		NewTagCommand(opts),
		NewParseCommand(opts),
		NewBatchCommand(opts),
		NewPullCommand(opts),
		NewModelsCommand(opts),
		NewPsCommand(opts),
		NewLogsCommand(opts),
		NewVersionCommand(opts),
		NewServeCommand(opts),
	)

	return cmd
}

// getClient creates a configured API client.
//
// Server address priority:
//  1. --server flag (if specified)
//  2. Default: http://localhost:7869
func getClient(opts *GlobalOptions) *client.Client {
	serverURL := opts.ServerURL
	if serverURL == "" {
		serverURL = fmt.Sprintf("http://localhost:%d", config.DefaultServerPort)
	}
	return client.NewClient(serverURL)
}

// checkError prints an error and exits if err is not nil.
func checkError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
