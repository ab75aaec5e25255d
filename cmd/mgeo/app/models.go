package app

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command.
//
// The models command lists checkpoints stored on the server, similar to
// 'docker images'.
//
// Usage:
//
//	mgeo models
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for listing local models
func NewModelsCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List downloaded model checkpoints",
		Long:    `List the model checkpoints stored on the mgeo server.`,
		Example: `  mgeo models`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(globalOpts)
		},
	}
	return cmd
}

// runModels executes the models command logic.
func runModels(opts *GlobalOptions) error {
	cli := getClient(opts)

	models, err := cli.ListDownloaded()
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(models) == 0 {
		fmt.Println("No models downloaded")
		fmt.Println()
		fmt.Println("Download the MGeo backbone with: mgeo pull mgeo-base")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tTAG\tSOURCE\tSIZE")
	for _, m := range models {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.Tag, m.Source, formatSize(m.Size))
	}
	w.Flush()
	return nil
}

// formatSize renders a byte count in human-readable form.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
