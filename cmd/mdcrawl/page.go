package main

import (
	"fmt"

	"github.com/nao1215/mdcrawl/internal/crawler"
	"github.com/nao1215/mdcrawl/internal/model"
	"github.com/nao1215/mdcrawl/internal/pipeline"
	"github.com/nao1215/mdcrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewPageCmd creates the page command.
func NewPageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page <url>",
		Short: "Save a single web page as markdown",
		Long: `Page fetches one URL, extracts its main content and saves it as
<output-dir>/<host>/<path>.md. Links are not followed.

Examples:
  # Save one page below .crawl
  mdcrawl page https://go.dev/doc/effective_go

  # Render a client-side application before converting it
  mdcrawl page --render https://example.com/app

  # Use the readability algorithm for article pages
  mdcrawl page --readability --output-dir notes https://blog.example.com/post`,
		Args: cobra.ExactArgs(1),
		RunE: runPageCmd,
	}

	addFetchFlags(cmd)

	return cmd
}

// runPageCmd executes the page command. A fetch failure is returned as an
// error so that the process exits with a non-zero status.
func runPageCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)

	ctx, stop := signalContext(cmd.Context(), logger)
	defer stop()

	target := cfg.Targets[0]
	settings := cfg.SettingsFor(target)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Crawling %s ...\n", target)

	fetchers := pipeline.NewFetchers(cfg, settings, nil, logger)
	defer func() {
		if err := fetchers.Close(); err != nil {
			logger.Warn("failed to close browser", "error", err)
		}
	}()

	spider := crawler.NewSpider(fetchers.Page,
		crawler.WithExtractor(pipeline.NewExtractor(settings)),
		crawler.WithTaskTimeout(2*settings.Timeout),
		crawler.WithLogger(logger),
	)

	page, err := spider.Page(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to crawl %s: %w", target, err)
	}

	if page.Outcome == model.OutcomeEmpty {
		fmt.Fprintf(out, "No content extracted from %s\n", target)
		return nil
	}

	path, err := report.NewSiteWriter(cfg.OutputDir, report.WithLogger(logger)).WritePage(page)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}

	_, err = report.WritePageSummary(out, path, page)
	return err
}
