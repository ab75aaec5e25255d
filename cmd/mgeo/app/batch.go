package app

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/flywheel"
)

// BatchOptions holds options for the batch command
type BatchOptions struct {
	*GlobalOptions

	// Input is the address list file
	Input string

	// Output is the optional JSONL result file; stdout when empty
	Output string

	// AddressKey is the JSON field holding the address in structured input
	AddressKey string
}

// NewBatchCommand creates the batch command.
//
// The batch command standardizes every address in a file through the
// server and writes the results as JSONL.
//
// Usage:
//
//	mgeo batch INPUT [-o OUTPUT]
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for batch standardization
func NewBatchCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &BatchOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "batch INPUT",
		Short: "Standardize a file of addresses",
		Long: `Standardize every address in a file through the mgeo server.

The input may be JSONL, a JSON array, or plain text with one address per
line. Results are written as JSON Lines, one standardization result per
input address, in input order.`,
		Example: `  # Standardize a plain address list to stdout
  mgeo batch addresses.txt

  # Write results to a file
  mgeo batch addresses.jsonl -o standardized.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Input = args[0]
			return runBatch(opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "",
		"output JSONL file (default: stdout)")
	cmd.Flags().StringVar(&opts.AddressKey, "address-key", flywheel.DefaultAddressKey,
		"JSON field holding the address in structured input")

	return cmd
}

// runBatch executes the batch command logic.
func runBatch(opts *BatchOptions) error {
	addresses, err := flywheel.LoadAddresses(opts.Input, opts.AddressKey)
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("no addresses found in %s", opts.Input)
	}

	cli := getClient(opts.GlobalOptions)
	resp, err := cli.BatchStandardize(addresses)
	if err != nil {
		return err
	}

	out := os.Stdout
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	encoder := json.NewEncoder(out)
	encoder.SetEscapeHTML(false)
	for i := range resp.Results {
		if err := encoder.Encode(&resp.Results[i]); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "Standardized %d/%d addresses\n", resp.Success, resp.Total)
	return nil
}
