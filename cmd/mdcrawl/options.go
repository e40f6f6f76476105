package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/nao1215/mdcrawl/internal/database"
	"github.com/nao1215/mdcrawl/internal/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// addFetchFlags registers the flags shared by the page and site commands.
func addFetchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each fetch, browser rendering included")
	flags.Bool("render", false, "Fetch pages with a headless browser")
	flags.Bool("auto-render", false, "Use the browser only for pages that look client rendered")
	flags.Bool("readability", false, "Extract the main content with the readability algorithm")
	flags.String("content-selector", "", "CSS selector of the main content (default: main, article, [role=main], body)")
	flags.StringSlice("exclude", nil, "CSS selectors removed before conversion")
	flags.String("user-agent", config.DefaultUserAgent, "User-Agent header sent with requests")
	flags.String("browser-path", "", "Path to the Chrome or Chromium binary")
	flags.Duration("settle", 0, "Extra wait after page load in browser mode")
}

// addCrawlFlags registers the flags of the site command.
func addCrawlFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntP("depth", "d", config.DefaultMaxDepth, "Maximum number of link hops from the seed (1-10)")
	flags.IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of pages per site (1-500)")
	flags.IntP("concurrency", "n", config.DefaultConcurrency, "Number of pages fetched in parallel (1-20)")
	flags.Duration("delay", 0, "Minimum interval between two requests")
	flags.Bool("include-external", false, "Follow links to other hosts")
	flags.Bool("respect-robots", false, "Obey robots.txt rules and crawl delay")
	flags.IntP("batch", "b", config.DefaultBatchSize, "Number of sites crawled concurrently")
}

// buildConfig creates a Config from cobra command flags. Flags that the
// command does not define keep their default.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var noHistory bool
	for _, f := range []func() error{
		stringFlag(flags, "output-dir", &cfg.OutputDir),
		boolFlag(flags, "verbose", &cfg.Verbose),
		boolFlag(flags, "quiet", &cfg.Quiet),
		boolFlag(flags, "log-json", &cfg.LogJSON),
		stringFlag(flags, "config", &cfg.ConfigFilePath),
		stringFlag(flags, "history-dir", &cfg.HistoryDir),
		boolFlag(flags, "no-history", &noHistory),

		durationFlag(flags, "timeout", &cfg.Timeout),
		boolFlag(flags, "render", &cfg.Render),
		boolFlag(flags, "auto-render", &cfg.AutoRender),
		boolFlag(flags, "readability", &cfg.Readability),
		stringFlag(flags, "content-selector", &cfg.ContentSelector),
		stringSliceFlag(flags, "exclude", &cfg.ExcludeSelectors),
		stringFlag(flags, "user-agent", &cfg.UserAgent),
		stringFlag(flags, "browser-path", &cfg.BrowserPath),
		durationFlag(flags, "settle", &cfg.SettleTime),

		intFlag(flags, "depth", &cfg.MaxDepth),
		intFlag(flags, "max-pages", &cfg.MaxPages),
		intFlag(flags, "concurrency", &cfg.Concurrency),
		durationFlag(flags, "delay", &cfg.Delay),
		boolFlag(flags, "include-external", &cfg.IncludeExternal),
		boolFlag(flags, "respect-robots", &cfg.RespectRobots),
		intFlag(flags, "batch", &cfg.BatchSize),
	} {
		if err := f(); err != nil {
			return nil, err
		}
	}
	cfg.SaveHistory = !noHistory

	// An explicitly given config file must exist. Without one, a missing
	// .mdcrawl simply means no per-site settings.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		siteConfigs, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.SiteConfigs = siteConfigs
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{
			Sites: make(map[string]config.SiteConfig),
		}
	}

	cfg.Targets = args

	return cfg, nil
}

func stringFlag(flags *pflag.FlagSet, name string, dst *string) func() error {
	return func() error {
		if flags.Lookup(name) == nil {
			return nil
		}
		v, err := flags.GetString(name)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func stringSliceFlag(flags *pflag.FlagSet, name string, dst *[]string) func() error {
	return func() error {
		if flags.Lookup(name) == nil {
			return nil
		}
		v, err := flags.GetStringSlice(name)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func boolFlag(flags *pflag.FlagSet, name string, dst *bool) func() error {
	return func() error {
		if flags.Lookup(name) == nil {
			return nil
		}
		v, err := flags.GetBool(name)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func intFlag(flags *pflag.FlagSet, name string, dst *int) func() error {
	return func() error {
		if flags.Lookup(name) == nil {
			return nil
		}
		v, err := flags.GetInt(name)
		if err == nil {
			*dst = v
		}
		return err
	}
}

func durationFlag(flags *pflag.FlagSet, name string, dst *time.Duration) func() error {
	return func() error {
		if flags.Lookup(name) == nil {
			return nil
		}
		v, err := flags.GetDuration(name)
		if err == nil {
			*dst = v
		}
		return err
	}
}

// setupLogger creates the structured logger for a command. Sensitive
// values such as cookies and tokens are masked.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	logger := log.NewSecureLogger(w, cfg.Verbose)
	if cfg.LogJSON {
		logger = log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	slog.SetDefault(logger)
	return logger
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
// The returned stop function releases the signal handler.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, finishing in-flight pages...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// openHistory opens the history database when recording is enabled.
// A database that cannot be opened disables recording for this run.
func openHistory(cfg *config.Config, logger *slog.Logger) *database.HistoryDB {
	if !cfg.SaveHistory {
		return nil
	}

	db, err := database.Open(cfg.HistoryDir, database.DefaultOptions())
	if err != nil {
		logger.Warn("crawl history disabled", "dir", cfg.HistoryDir, "error", err)
		return nil
	}
	logger.Debug("history database opened", "path", db.Path())
	return db
}

// lockedWriter serializes writes from concurrently crawled sites.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}
