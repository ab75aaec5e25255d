package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// LogsOptions holds options for the logs command
type LogsOptions struct {
	*GlobalOptions

	// RunID is the training run to read logs from
	RunID string

	// Follow continues streaming logs in real-time
	Follow bool
}

// NewLogsCommand creates the logs command.
//
// The logs command displays trainer output from a training run.
//
// Usage:
//
//	mgeo logs RUN_ID [OPTIONS]
//
// Examples:
//
//	# View logs
//	mgeo logs 2f1f3a8c
//
//	# Follow logs in real-time (like tail -f)
//	mgeo logs 2f1f3a8c -f
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for viewing run logs
func NewLogsCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &LogsOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "logs RUN_ID",
		Short: "View logs from a training run",
		Long: `View trainer output from a training run.

By default, shows existing logs and exits. Use -f/--follow to stream logs
until the run finishes (press Ctrl+C to stop watching).`,
		Example: `  # Show existing logs
  mgeo logs 2f1f3a8c

  # Follow a running fine-tune
  mgeo logs 2f1f3a8c -f`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RunID = args[0]
			return runLogs(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false,
		"follow log output until the run finishes")

	return cmd
}

// runLogs executes the logs command logic.
func runLogs(opts *LogsOptions) error {
	cli := getClient(opts.GlobalOptions)

	printChunk := func(chunk string) {
		fmt.Print(chunk)
		os.Stdout.Sync()
	}

	if opts.Follow {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		logDone := make(chan error, 1)
		go func() {
			logDone <- cli.StreamRunLogs(opts.RunID, true, printChunk)
		}()

		select {
		case <-sigChan:
			return nil
		case err := <-logDone:
			if err != nil {
				return fmt.Errorf("failed to stream logs: %w", err)
			}
			return nil
		}
	}

	if err := cli.StreamRunLogs(opts.RunID, false, printChunk); err != nil {
		return fmt.Errorf("failed to get logs: %w", err)
	}
	return nil
}
