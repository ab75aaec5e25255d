// Command mgeo is the CLI entry point for Chinese address parsing and MGeo
// fine-tuning.
package main

import (
	"os"

	"github.com/Adeshen/MGeo-finetune-flywheel/cmd/mgeo/app"
)

func main() {
	cmd := app.NewMGeoCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
