package pipeline

import (
	"log/slog"
	"maps"
	"net/http"

	"github.com/nao1215/mdcrawl/internal/config"
	"github.com/nao1215/mdcrawl/internal/crawler"
	"github.com/nao1215/mdcrawl/internal/extractor"
	"github.com/nao1215/mdcrawl/internal/fetcher"
)

// Fetchers bundles the fetchers used for one seed.
type Fetchers struct {
	// Page fetches crawled pages according to the fetch mode.
	Page fetcher.Fetcher

	// Plain is the HTTP fetcher. It fetches robots.txt in every mode and
	// is the first attempt in auto mode.
	Plain *fetcher.HTTPFetcher

	// browser is non-nil in render and auto mode.
	browser *fetcher.BrowserFetcher
}

// NewFetchers builds the fetchers for settings. A nil client means
// http.DefaultClient. The browser is only launched on its first fetch.
func NewFetchers(cfg *config.Config, settings config.CrawlSettings, client *http.Client, logger *slog.Logger) *Fetchers {
	if logger == nil {
		logger = slog.Default()
	}

	plain := fetcher.NewHTTPFetcher(client,
		fetcher.WithTimeout(settings.Timeout),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithHeaders(settings.Headers),
		fetcher.WithCookie(settings.Cookie),
	)
	f := &Fetchers{Page: plain, Plain: plain}

	if settings.Mode == config.FetchHTTP {
		return f
	}

	headers := maps.Clone(settings.Headers)
	if headers == nil {
		headers = make(map[string]string)
	}
	if settings.Cookie != "" {
		headers["Cookie"] = settings.Cookie
	}
	f.browser = fetcher.NewBrowserFetcher(
		fetcher.WithBrowserTimeout(settings.Timeout),
		fetcher.WithSettleTime(cfg.SettleTime),
		fetcher.WithBrowserUserAgent(cfg.UserAgent),
		fetcher.WithExecPath(cfg.BrowserPath),
		fetcher.WithBrowserHeaders(headers),
	)

	if settings.Mode == config.FetchRender {
		f.Page = f.browser
	} else {
		f.Page = fetcher.NewAutoFetcher(plain, f.browser, logger)
	}
	return f
}

// Close shuts the browser down if one was created.
func (f *Fetchers) Close() error {
	if f.browser == nil {
		return nil
	}
	return f.browser.Close()
}

// NewExtractor builds the extractor for settings.
func NewExtractor(settings config.CrawlSettings) *extractor.Extractor {
	return extractor.New(
		extractor.WithReadability(settings.Readability),
		extractor.WithContentSelector(settings.ContentSelector),
		extractor.WithExcludeSelectors(settings.ExcludeSelectors...),
	)
}

// SpiderOptions translates settings into spider options.
func SpiderOptions(settings config.CrawlSettings) []crawler.SpiderOption {
	return []crawler.SpiderOption{
		crawler.WithMaxDepth(settings.MaxDepth),
		crawler.WithMaxPages(settings.MaxPages),
		crawler.WithConcurrency(settings.Concurrency),
		crawler.WithDelay(settings.Delay),
		crawler.WithTaskTimeout(2*settings.Timeout),
		crawler.WithIncludeExternal(settings.IncludeExternal),
		crawler.WithIgnorePatterns(settings.IgnorePatterns),
		crawler.WithFollowPatterns(settings.FollowPatterns),
		crawler.WithExtractor(NewExtractor(settings)),
	}
}
