// Package main provides the entry point for the webrecon CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for webrecon.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webrecon",
		Short: "Reconnaissance web crawler with importance ranking",
		Long: `webrecon is a reconnaissance web crawler. It maps a site's link structure,
ranks pages by importance (inbound links or PageRank), classifies pages by
type, and reports the most significant pages first.

Crawls are polite by default: requests are rate limited globally, robots.txt
is honored, and the crawl stays inside the seed's registrable domain unless
told otherwise.`,
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
