package app

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PullOptions holds options for the pull command
type PullOptions struct {
	*GlobalOptions

	// Model is the model to pull
	Model string

	// Version is the ModelScope version tag
	Version string
}

// NewPullCommand creates the pull command.
//
// The pull command downloads a model checkpoint from ModelScope to the
// server's model storage.
//
// Usage:
//
//	mgeo pull MODEL [--tag TAG]
//
// Examples:
//
//	mgeo pull mgeo-base
//	mgeo pull iic/mgeo_backbone_chinese_base
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for pulling models
func NewPullCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &PullOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "pull MODEL",
		Short: "Download a model checkpoint",
		Long: `Download a model checkpoint from ModelScope.

Models can be referenced by their catalog ID (e.g. "mgeo-base") or by a
full ModelScope path. The download is resumable; re-running the command
continues where it stopped.`,
		Example: `  mgeo pull mgeo-base
  mgeo pull iic/mgeo_backbone_chinese_base --tag latest`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Model = args[0]
			return runPull(opts)
		},
	}

	cmd.Flags().StringVar(&opts.Version, "tag", "", "version tag (default: latest)")

	return cmd
}

// runPull executes the pull command logic with a simple progress display:
// progress lines overwrite in place, status lines print normally.
func runPull(opts *PullOptions) error {
	cli := getClient(opts.GlobalOptions)

	fmt.Printf("Pulling %s...\n", opts.Model)

	var lastWasProgress bool
	resp, err := cli.Pull(opts.Model, opts.Version, func(message string) {
		isProgress := strings.Contains(message, "%")
		if isProgress {
			fmt.Printf("\r%s", message)
			lastWasProgress = true
		} else {
			if lastWasProgress {
				fmt.Println()
			}
			fmt.Println(message)
			lastWasProgress = false
		}
	})
	if lastWasProgress {
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("failed to pull model: %w", err)
	}

	if resp.Status == "success" {
		fmt.Printf("✓ %s\n", resp.Message)
	} else {
		fmt.Printf("Status: %s\n", resp.Status)
		if resp.Message != "" {
			fmt.Printf("Message: %s\n", resp.Message)
		}
	}
	return nil
}
