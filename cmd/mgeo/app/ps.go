package app

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// NewPsCommand creates the ps command.
//
// The ps command lists training runs, similar to 'docker ps'.
//
// Usage:
//
//	mgeo ps
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for listing training runs
func NewPsCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List training runs",
		Long: `List all training runs with their state and timing.

Shows both in-flight and finished runs, newest first. Run IDs from this
list are used with 'mgeo logs'.`,
		Example: `  mgeo ps`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPs(globalOpts)
		},
	}
	return cmd
}

// runPs executes the ps command logic.
func runPs(opts *GlobalOptions) error {
	cli := getClient(opts)

	runs, err := cli.ListRuns()
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No training runs found")
		fmt.Println()
		fmt.Println("Start one with: mgeo train")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tMODEL\tBACKEND\tSTATE\tDURATION\tOUTPUT")
	for _, run := range runs {
		duration := "-"
		if !run.StartedAt.IsZero() {
			end := run.FinishedAt
			if end.IsZero() {
				end = time.Now()
			}
			duration = formatDuration(end.Sub(run.StartedAt))
		}
		output := run.OutputDir
		if output == "" {
			output = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID, run.ModelID, run.Backend, run.State, duration, output)
	}
	w.Flush()
	return nil
}

// formatDuration formats a duration in human-readable form.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
