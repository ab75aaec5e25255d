package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/flywheel"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/logger"
)

// TagOptions holds options for the tag command
type TagOptions struct {
	*GlobalOptions

	// Input is the address list file
	Input string

	// Output is the JSONL result file
	Output string

	// AddressKey is the JSON field holding the address in structured input
	AddressKey string

	// Delay is the pause between API requests
	Delay time.Duration

	// PromptFile overrides the built-in labeling prompt
	PromptFile string
}

// NewTagCommand creates the tag command.
//
// The tag command labels raw addresses with an OpenAI-compatible chat
// model, producing entity annotations for 'mgeo convert'. Credentials come
// from OPENAI_API_KEY, OPENAI_API_BASE_URL, and OPENAI_API_MODEL (a .env
// file is honored).
//
// Usage:
//
//	mgeo tag --input FILE --output FILE [OPTIONS]
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for LLM address labeling
func NewTagCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &TagOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Label raw addresses with an LLM",
		Long: `Label raw Chinese addresses with an OpenAI-compatible chat model.

The input file may be JSONL (one object per line), a JSON array, or plain
text with one address per line. Each result is appended to the output JSONL
file as it arrives, and progress is checkpointed so an interrupted job
resumes where it stopped.

Set OPENAI_API_KEY, OPENAI_API_BASE_URL, and OPENAI_API_MODEL in the
environment or a .env file.`,
		Example: `  # Label a plain address list
  mgeo tag --input addresses.txt --output tagged.jsonl

  # Label JSONL records with a custom field and slower pacing
  mgeo tag -i orders.jsonl -o tagged.jsonl --address-key shipping_addr --delay 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Verbose {
				logger.SetDebug(true)
			}
			return runTag(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file path (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output JSONL file path (required)")
	cmd.Flags().StringVar(&opts.AddressKey, "address-key", flywheel.DefaultAddressKey,
		"JSON field holding the address in structured input")
	cmd.Flags().DurationVar(&opts.Delay, "delay", 500*time.Millisecond,
		"pause between API requests")
	cmd.Flags().StringVar(&opts.PromptFile, "prompt", "",
		"prompt template file with a {{address}} placeholder")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")

	return cmd
}

// runTag executes the tag command logic.
func runTag(opts *TagOptions) error {
	taggerOpts := []flywheel.Option{flywheel.WithDelay(opts.Delay)}
	if opts.PromptFile != "" {
		taggerOpts = append(taggerOpts, flywheel.WithPromptFile(opts.PromptFile))
	}

	tagger, err := flywheel.NewTagger(taggerOpts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	succeeded, err := tagger.TagFile(ctx, opts.Input, opts.Output, opts.AddressKey)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Printf("Interrupted after %d addresses. Re-run the same command to resume.\n", succeeded)
			return nil
		}
		return err
	}

	fmt.Printf("Labeled %d addresses, results in %s\n", succeeded, opts.Output)
	fmt.Println("Convert them to a training dataset with: mgeo convert " + opts.Output + " train.jsonl")
	return nil
}
