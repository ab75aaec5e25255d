package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/config"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/trainer"
)

// TrainOptions holds options for the train command
type TrainOptions struct {
	*GlobalOptions

	// ConfigPath is the INI training configuration path
	ConfigPath string

	// CreateConfig writes a default configuration file and exits
	CreateConfig bool

	// Backend selects the execution backend ("process" or "docker")
	Backend string
}

// NewTrainCommand creates the train command.
//
// The train command fine-tunes the MGeo backbone on local datasets. All
// hyperparameters come from an INI configuration file; --create-config
// writes a default file to start from.
//
// Usage:
//
//	mgeo train [--config PATH] [--backend NAME]
//	mgeo train --create-config [--config PATH]
//
// Examples:
//
//	# Write a default configuration file
//	mgeo train --create-config
//
//	# Train with the default configuration path
//	mgeo train
//
//	# Train with a custom configuration inside a container
//	mgeo train --config my_config.ini --backend docker
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for training
func NewTrainCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &TrainOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Fine-tune the MGeo model from an INI configuration",
		Long: `Fine-tune the MGeo token-classification model on local datasets.

The training run is driven entirely by an INI configuration file with
[model], [data], [training], and [output] sections. Label lists and
learning-rate schedules are derived from the datasets automatically.

The trained checkpoint is written to a timestamped work directory under the
configured output directory. When model_name differs from the default, the
work directory is renamed to {model_name}_{timestamp} after training.`,
		Example: `  # Create a default configuration file
  mgeo train --create-config

  # Train with the default configuration (configs/train_config.ini)
  mgeo train

  # Train with a custom configuration
  mgeo train --config experiments/large_batch.ini

  # Train inside the ModelScope container image
  mgeo train --backend docker`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Verbose {
				logger.SetDebug(true)
			}
			if opts.CreateConfig {
				return runCreateConfig(opts)
			}
			return runTrain(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", config.DefaultTrainConfigPath,
		"training configuration file path")
	cmd.Flags().BoolVar(&opts.CreateConfig, "create-config", false,
		"write a default configuration file and exit")
	cmd.Flags().StringVar(&opts.Backend, "backend", "process",
		"execution backend: process or docker")

	return cmd
}

// runCreateConfig writes the default training configuration file.
func runCreateConfig(opts *TrainOptions) error {
	if err := config.WriteDefaultTrainConfig(opts.ConfigPath); err != nil {
		return err
	}
	fmt.Printf("Default configuration written to %s\n", opts.ConfigPath)
	fmt.Println("Edit it to point at your datasets, then run: mgeo train --config " + opts.ConfigPath)
	return nil
}

// runTrain executes a training run in the foreground.
//
// The run streams trainer output to stdout and blocks until training
// finishes. Ctrl+C cancels the run and leaves the work directory in place
// for inspection.
func runTrain(cmd *cobra.Command, opts *TrainOptions) error {
	if _, err := os.Stat(opts.ConfigPath); os.IsNotExist(err) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration file not found: %s\n", opts.ConfigPath)
		fmt.Fprintln(out, "Run mgeo train --create-config to create a default configuration file")
		return nil
	}

	cfg, err := config.LoadTrainConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	appCfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load application config: %w", err)
	}

	backend, err := selectBackend(opts.Backend, appCfg)
	if err != nil {
		return err
	}

	job, err := trainer.BuildJob(cfg, time.Now())
	if err != nil {
		return err
	}
	if err := os.MkdirAll(job.WorkDir, 0755); err != nil {
		return fmt.Errorf("failed to create work directory: %w", err)
	}

	logger.Info("Training %s with %d labels (epochs=%d, batch=%d, lr=%g)",
		cfg.ModelID, len(job.Labels), cfg.MaxEpochs, cfg.BatchSize, cfg.LearningRate)
	logger.Info("Work directory: %s", job.WorkDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := backend.Run(ctx, job, os.Stdout); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("training interrupted, partial output left in %s", job.WorkDir)
		}
		return fmt.Errorf("training failed: %w", err)
	}

	outputDir, err := trainer.FinalizeWorkDir(job.WorkDir, cfg.ModelName)
	if err != nil {
		return err
	}

	fmt.Printf("Training complete. Model saved to %s\n", outputDir)
	return nil
}

// selectBackend builds the requested execution backend.
func selectBackend(name string, cfg *config.Config) (trainer.Backend, error) {
	switch name {
	case "", "process":
		return trainer.NewProcessBackend(cfg.Trainer.Python, cfg.Trainer.Script), nil
	case "docker":
		return trainer.NewDockerBackend(cfg.Trainer.Image, cfg.Trainer.Script)
	default:
		return nil, fmt.Errorf("unknown training backend %q (expected process or docker)", name)
	}
}
