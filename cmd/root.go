// Package cmd defines and implements the CLI commands for the control-plane
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraperd",
		Short: "Control plane for the article scraping pipeline.",
		Long: `scraperd is the HTTP backend that drives the article scraping
pipeline: it launches the scraper binary, tracks its progress from the log
stream, browses the artifact buckets, and runs the text-conversion and
summarization passes over scraped sessions.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml if present)")

	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "command execution failed: %v\n", err)
		os.Exit(1)
	}
}
