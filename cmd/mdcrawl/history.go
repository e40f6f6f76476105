package main

import (
	"errors"
	"fmt"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/nao1215/mdcrawl/internal/database"
	"github.com/nao1215/mdcrawl/internal/model"
	"github.com/nao1215/mdcrawl/internal/report"
	"github.com/spf13/cobra"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "List recorded site crawls",
		Long: `History lists the site crawls recorded in the history database,
newest first. A URL or host name restricts the list to that site.

Examples:
  # List the last 20 crawls
  mdcrawl history

  # List crawls of one site
  mdcrawl history docs.example.com

  # Show the pages of crawl 12
  mdcrawl history --id 12

  # Remove crawl 12 from the history
  mdcrawl history --delete 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "l", config.DefaultHistoryLimit, "Maximum number of crawls listed")
	cmd.Flags().Int64("id", 0, "Show the pages of the crawl with this ID")
	cmd.Flags().Int64("delete", 0, "Delete the crawl with this ID")
	cmd.MarkFlagsMutuallyExclusive("id", "delete")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	setupLogger(cmd.ErrOrStderr(), cfg)

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return err
	}
	deleteID, err := cmd.Flags().GetInt64("delete")
	if err != nil {
		return err
	}

	w := report.NewHistoryWriter(cmd.OutOrStdout())

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.HistoryDir, opts)
	if errors.Is(err, database.ErrDatabaseNotFound) {
		_, err = w.WriteRecords(nil)
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()

	switch {
	case deleteID > 0:
		if err := db.DeleteSession(ctx, deleteID); err != nil {
			return fmt.Errorf("failed to delete crawl %d: %w", deleteID, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted crawl %d\n", deleteID)
		return nil

	case id > 0:
		rec, err := db.GetSession(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read crawl %d: %w", id, err)
		}
		if rec == nil {
			return fmt.Errorf("crawl %d not found", id)
		}
		records, err := db.Pages(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to read pages of crawl %d: %w", id, err)
		}
		_, err = w.WriteDetail(*rec, toPageResults(records))
		return err

	default:
		var filter string
		if len(args) > 0 {
			filter = args[0]
		}
		records, err := db.ListSessions(ctx, filter, limit)
		if err != nil {
			return fmt.Errorf("failed to list crawls: %w", err)
		}
		_, err = w.WriteRecords(records)
		return err
	}
}

func toPageResults(records []database.PageRecord) []model.PageResult {
	pages := make([]model.PageResult, 0, len(records))
	for _, r := range records {
		p := model.PageResult{
			URL:         r.URL,
			Title:       r.Title,
			Depth:       r.Depth,
			Chars:       r.Chars,
			Outcome:     model.ParseOutcome(r.Outcome),
			StatusCode:  r.StatusCode,
			ContentType: r.ContentType,
			FetchedAt:   r.FetchedAt,
			Duration:    r.Duration,
			Ordinal:     -1,
		}
		if r.Error != "" {
			p.Err = errors.New(r.Error)
		}
		pages = append(pages, p)
	}
	return pages
}
