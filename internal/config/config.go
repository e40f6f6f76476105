package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/mdcrawl/internal/fetcher"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "mdcrawl"

	// DefaultOutputDir is the output root for crawled markdown.
	DefaultOutputDir = ".crawl"

	// DefaultMaxDepth is the number of link hops followed from the seed.
	DefaultMaxDepth = 3

	// DefaultMaxPages bounds the pages processed per site.
	DefaultMaxPages = 50

	// DefaultConcurrency is the number of pages fetched in parallel.
	DefaultConcurrency = 5

	// DefaultTimeout applies to every single fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultBatchSize is the number of sites crawled at the same time.
	DefaultBatchSize = 1

	// DefaultMaxBodySize limits a single response body.
	DefaultMaxBodySize = fetcher.DefaultMaxBodySize

	// DefaultHistoryLimit is the number of crawls listed by the history command.
	DefaultHistoryLimit = 20

	// DefaultUserAgent identifies the crawler in HTTP requests and robots.txt groups.
	DefaultUserAgent = fetcher.DefaultUserAgent

	// RobotsAgent is the product token matched against robots.txt groups.
	RobotsAgent = "mdcrawl"
)

// Bounds enforced by Clamp.
const (
	MinDepth       = 1
	MaxDepth       = 10
	MinPages       = 1
	MaxPages       = 500
	MinConcurrency = 1
	MaxConcurrency = 20
)

// Config holds all configuration options for mdcrawl.
// It is populated from CLI flags and the optional site file and then
// passed explicitly to the commands that need it.
type Config struct {
	// Targets are the seed URLs to crawl.
	Targets []string

	// OutputDir is the root directory for written markdown.
	// Each site is written below <OutputDir>/<host>.
	OutputDir string

	// MaxDepth is the maximum number of link hops from the seed.
	MaxDepth int

	// MaxPages is the maximum number of pages processed per site,
	// counting failed and empty pages.
	MaxPages int

	// Concurrency is the number of simultaneous fetches within one site.
	Concurrency int

	// Delay is the minimum interval between two dispatches.
	// Zero means no delay.
	Delay time.Duration

	// Timeout applies to each fetch, including browser rendering.
	Timeout time.Duration

	// Render fetches every page with a headless browser.
	Render bool

	// AutoRender fetches with HTTP and re-fetches with a browser only when
	// the page looks like a client-rendered application shell.
	AutoRender bool

	// BrowserPath is an optional path to the Chrome or Chromium binary.
	BrowserPath string

	// SettleTime is an extra wait after page load in browser mode.
	SettleTime time.Duration

	// IncludeExternal allows links to other hosts.
	IncludeExternal bool

	// RespectRobots enables robots.txt rules and crawl delay.
	RespectRobots bool

	// Readability extracts the main content with the readability algorithm
	// instead of semantic selectors.
	Readability bool

	// ContentSelector overrides the main content CSS selector.
	ContentSelector string

	// ExcludeSelectors are removed from the document before extraction.
	ExcludeSelectors []string

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// BatchSize is the number of seeds crawled concurrently.
	BatchSize int

	// Verbose enables debug logging.
	Verbose bool

	// Quiet suppresses progress output.
	Quiet bool

	// LogJSON writes log records as JSON lines.
	LogJSON bool

	// ConfigFilePath is the path to the site file.
	// If empty, .mdcrawl is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-host settings loaded from the site file.
	SiteConfigs *File

	// HistoryDir is the directory of the crawl history database.
	// Defaults to the XDG data directory.
	HistoryDir string

	// SaveHistory records each crawl in the history database.
	SaveHistory bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		OutputDir:   DefaultOutputDir,
		MaxDepth:    DefaultMaxDepth,
		MaxPages:    DefaultMaxPages,
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
		UserAgent:   DefaultUserAgent,
		MaxBodySize: DefaultMaxBodySize,
		BatchSize:   DefaultBatchSize,
		HistoryDir:  XDGDataDir(),
		SaveHistory: true,
	}
}

// XDGDataDir returns the XDG data directory for mdcrawl.
// On Linux: ~/.local/share/mdcrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for mdcrawl.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration for values that cannot be clamped.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	seen := make(map[string]string, len(c.Targets))
	for _, t := range c.Targets {
		if err := ValidateTarget(t); err != nil {
			return err
		}
		key := SiteKey(t)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %s and %s", ErrDuplicateSite, prev, t)
		}
		seen[key] = t
	}

	if c.OutputDir == "" {
		return ErrEmptyOutputDir
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Delay < 0 {
		return ErrInvalidDelay
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Render && c.AutoRender {
		return ErrConflictingRenderModes
	}

	if c.Verbose && c.Quiet {
		return ErrConflictingVerbosity
	}

	return nil
}

// Clamp moves the crawl bounds into their allowed ranges and returns a
// description of every value it changed.
func (c *Config) Clamp() []string {
	var changed []string
	c.MaxDepth = clamp("depth", c.MaxDepth, MinDepth, MaxDepth, &changed)
	c.MaxPages = clamp("max-pages", c.MaxPages, MinPages, MaxPages, &changed)
	c.Concurrency = clamp("concurrency", c.Concurrency, MinConcurrency, MaxConcurrency, &changed)
	return changed
}
