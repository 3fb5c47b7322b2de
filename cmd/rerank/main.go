// Rerank evaluates LLM-based re-ranking strategies over retrieval datasets.
//
// Configuration is loaded from a YAML file and RERANK_* environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Evaluate the configured split
//	rerank eval --config config.yaml
//
//	# Override the blend weight and cutoff from the command line
//	rerank eval --config config.yaml --alpha 0.5 --top-k 20
package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "rerank",
	Short:   "Two-stage re-ranking evaluation for retrieval datasets",
	Long:    `rerank scores retrieval candidates with a relevance LLM and reports MRR and Recall for each re-ranking strategy.`,
	Version: version,
}

func init() {
	rootCmd.AddCommand(evalCmd)
}
