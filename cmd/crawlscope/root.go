// Package main provides the entry point for the crawlscope CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for crawlscope.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawlscope",
		Short: "Bounded-depth web crawler for mapping a single site",
		Long: `crawlscope maps a website by following links breadth first from a seed URL.

The crawl stays on the seed's scheme and host, visits each URL at most
once, and stops at a configurable depth. Results can be printed as a
summary, written as a sorted URL list, or exported as JSON or Markdown.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
