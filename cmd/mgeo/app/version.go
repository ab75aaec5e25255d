package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

// VersionOptions holds options for the version command
type VersionOptions struct {
	*GlobalOptions

	// Client shows only client version
	Client bool

	// Server shows only server version
	Server bool
}

// NewVersionCommand creates the version command.
//
// The version command displays version information for the CLI client
// and/or the mgeo server.
//
// Usage:
//
//	mgeo version [--client] [--server]
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for displaying version info
func NewVersionCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &VersionOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Display version information",
		Long: `Display version information for the mgeo client and server.

By default, shows version information for both the client and server. Use
--client or --server to show only one.`,
		Example: `  # Show both client and server versions
  mgeo version

  # Show only client version
  mgeo version --client`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Client, "client", false,
		"show client version only")
	cmd.Flags().BoolVar(&opts.Server, "server", false,
		"show server version only")

	return cmd
}

// runVersion executes the version command logic.
func runVersion(opts *VersionOptions) error {
	showClient := opts.Client || (!opts.Client && !opts.Server)
	showServer := opts.Server || (!opts.Client && !opts.Server)

	if showClient {
		fmt.Println("Client Version:")
		fmt.Printf("  Version: %s\n", GetVersion())
	}

	if showServer {
		if showClient {
			fmt.Println()
		}

		cli := getClient(opts.GlobalOptions)
		resp, err := cli.Version()
		if err != nil {
			return fmt.Errorf("failed to get server version: %w", err)
		}

		fmt.Println("Server Version:")
		fmt.Printf("  Version:    %s\n", resp.Version)
		fmt.Printf("  Build Time: %s\n", resp.BuildTime)
	}
	return nil
}
