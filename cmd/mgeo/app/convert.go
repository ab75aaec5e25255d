package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/dataset"
)

// NewConvertCommand creates the convert command.
//
// The convert command turns entity-level address annotations (for example
// the output of 'mgeo tag') into the character-token BIOES format the
// trainer consumes.
//
// Usage:
//
//	mgeo convert INPUT OUTPUT
//
// Examples:
//
//	mgeo convert tagged_addresses.jsonl train.jsonl
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for dataset conversion
func NewConvertCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert INPUT OUTPUT",
		Short: "Convert entity annotations to a BIOES training dataset",
		Long: `Convert entity-level address annotations to token-level BIOES format.

Each input line must be a JSON object with "address" and "entities" fields.
Entity values containing commas are treated as multiple separate spans.
The output is one training example per line with per-character tokens and
their BIOES tags.`,
		Example: `  mgeo convert tagged_addresses.jsonl train.jsonl`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := dataset.ConvertFile(args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Converted %d examples to %s\n", count, args[1])
			return nil
		},
	}

	return cmd
}
