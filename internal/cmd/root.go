package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for svncrawl
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "svncrawl",
		Short: "Concurrent Subversion repository crawler",
		Long: `svncrawl lists a Subversion repository recursively with a pool of
concurrent workers, one directory listing at a time.

Paths matching the filter patterns are reported on stdout and, optionally,
appended to an output file. Directories matching a stop pattern are not
descended into. Every crawl is recorded in a local history database.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	// Add subcommands
	cmd.AddCommand(NewListCommand())
	cmd.AddCommand(NewCheckoutCommand())
	cmd.AddCommand(NewHistoryCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}
