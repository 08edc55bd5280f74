// Command recall is the entry point for the recall retrieval engine.
// It provides a CLI interface (via Cobra) and an optional HTTP server
// exposing bias-aware search over a local document corpus.
package main

import (
	"fmt"
	"os"

	"github.com/parityworks/recall/cmd/recall/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
