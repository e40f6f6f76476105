package main

import (
	"fmt"
	"os"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for mdcrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mdcrawl",
		Short: "Crawl websites and save them as markdown",
		Long: `mdcrawl fetches web pages and converts them to markdown files.

The page command saves a single URL. The site command follows links
breadth first up to a depth and page limit and writes one file per page
plus an index.md summarizing the crawl.

Per-site cookies, headers and limits can be set in a .mdcrawl file
(see 'mdcrawl init').`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.String("output-dir", config.DefaultOutputDir,
		"Directory that receives one sub directory per site")
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.BoolP("quiet", "q", false, "Suppress progress output")
	flags.Bool("log-json", false, "Write log records as JSON lines")
	flags.StringP("config", "c", "",
		"Configuration file path (default: .mdcrawl in current or home directory)")
	flags.String("history-dir", config.XDGDataDir(), "Directory of the crawl history database")
	flags.Bool("no-history", false, "Do not record crawls in the history database")

	cmd.AddCommand(NewPageCmd())
	cmd.AddCommand(NewSiteCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
