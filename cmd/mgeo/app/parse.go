package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/Adeshen/MGeo-finetune-flywheel/internal/address"
	"github.com/Adeshen/MGeo-finetune-flywheel/internal/api"
)

// ParseOptions holds options for the parse command
type ParseOptions struct {
	*GlobalOptions

	// Address is the address to parse
	Address string

	// Interactive starts a REPL instead of parsing one address
	Interactive bool

	// ShowTokens includes raw token/tag output
	ShowTokens bool
}

// NewParseCommand creates the parse command.
//
// The parse command standardizes a Chinese address through the server,
// printing the decoded entities and the eleven-level breakdown.
//
// Usage:
//
//	mgeo parse ADDRESS
//	mgeo parse -i
//
// Parameters:
//   - globalOpts: Global options shared across commands
//
// Returns:
//   - A configured cobra.Command for address parsing
func NewParseCommand(globalOpts *GlobalOptions) *cobra.Command {
	opts := &ParseOptions{
		GlobalOptions: globalOpts,
	}

	cmd := &cobra.Command{
		Use:   "parse [ADDRESS]",
		Short: "Standardize a Chinese address",
		Long: `Standardize a Chinese address into typed entities and eleven levels.

With -i/--interactive, starts a prompt that parses each entered address.
Press Ctrl+D or type /quit to leave.`,
		Example: `  # Parse one address
  mgeo parse 广东省广州市天河区珠村北社大街八巷7号1楼

  # Interactive session
  mgeo parse -i

  # Include the raw model tokens
  mgeo parse --tokens 广州市南沙区环市大道中`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.Address = args[0]
			}
			if opts.Interactive {
				return runParseInteractive(opts)
			}
			if opts.Address == "" {
				return fmt.Errorf("provide an address or use -i for interactive mode")
			}
			return runParse(opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false,
		"interactive parsing session")
	cmd.Flags().BoolVar(&opts.ShowTokens, "tokens", false,
		"show raw model tokens and tags")

	return cmd
}

// runParse parses a single address and prints the result.
func runParse(opts *ParseOptions) error {
	cli := getClient(opts.GlobalOptions)

	resp, err := cli.Standardize(opts.Address)
	if err != nil {
		return err
	}
	printStandardizeResult(os.Stdout, resp, opts.ShowTokens)
	if !resp.Success {
		os.Exit(1)
	}
	return nil
}

// runParseInteractive runs a readline loop parsing each entered address.
func runParseInteractive(opts *ParseOptions) error {
	cli := getClient(opts.GlobalOptions)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ">>> ",
		HistoryFile:     "",
		InterruptPrompt: "^C",
		EOFPrompt:       "/quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Enter an address to parse. Type /quit to exit.")

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			break
		}

		addr := strings.TrimSpace(line)
		if addr == "" {
			continue
		}
		if addr == "/quit" || addr == "/exit" {
			break
		}

		resp, err := cli.Standardize(addr)
		if err != nil {
			fmt.Fprintf(rl.Stdout(), "Error: %v\n", err)
			continue
		}
		printStandardizeResult(rl.Stdout(), resp, opts.ShowTokens)
	}
	return nil
}

// printStandardizeResult renders one standardization result.
func printStandardizeResult(out io.Writer, resp *api.StandardizeResponse, showTokens bool) {
	if !resp.Success {
		fmt.Fprintf(out, "Failed: %s\n", resp.Message)
		return
	}

	if showTokens && resp.TokenResult != nil {
		fmt.Fprintf(out, "Tokens: %s\n", strings.Join(resp.TokenResult.Tokens, " "))
		fmt.Fprintf(out, "Tags:   %s\n", strings.Join(resp.TokenResult.NerTags, " "))
	}

	if resp.EntityResult != nil && len(resp.EntityResult.Entities) > 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, entityType := range address.PriorityOrder {
			if value, ok := resp.EntityResult.Entities[entityType]; ok {
				fmt.Fprintf(w, "  %s\t%s\t%s\n", entityType, address.DisplayName(entityType), value)
			}
		}
		w.Flush()
	}

	if lv := resp.LevelResult; lv != nil {
		fmt.Fprintln(out, "Levels:")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		rows := []struct {
			name  string
			value string
		}{
			{"level1", lv.Level1}, {"level2", lv.Level2}, {"level3", lv.Level3},
			{"level4", lv.Level4}, {"level5", lv.Level5}, {"level6", lv.Level6},
			{"level7", lv.Level7}, {"level8", lv.Level8}, {"level9", lv.Level9},
			{"level10", lv.Level10}, {"level11", lv.Level11}, {"remark", lv.Remark},
		}
		for _, row := range rows {
			if row.value != "" {
				fmt.Fprintf(w, "  %s\t%s\n", row.name, row.value)
			}
		}
		w.Flush()
	}

	fmt.Fprintf(out, "Processed in %.3fs\n", resp.ProcessingTime)
}
