package config

import (
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"time"
)

// FetchMode selects how pages are fetched.
type FetchMode int

const (
	// FetchHTTP fetches raw HTML over HTTP.
	FetchHTTP FetchMode = iota

	// FetchRender renders every page in a headless browser.
	FetchRender

	// FetchAuto fetches over HTTP and renders only application shells.
	FetchAuto
)

// String returns the flag-style name of the mode.
func (m FetchMode) String() string {
	switch m {
	case FetchRender:
		return "render"
	case FetchAuto:
		return "auto"
	default:
		return "http"
	}
}

// CrawlSettings is the effective configuration for one seed URL after the
// site file has been applied and the bounds clamped.
type CrawlSettings struct {
	URL              string
	MaxDepth         int
	MaxPages         int
	Concurrency      int
	Delay            time.Duration
	Timeout          time.Duration
	Mode             FetchMode
	IncludeExternal  bool
	RespectRobots    bool
	Readability      bool
	ContentSelector  string
	ExcludeSelectors []string
	IgnorePatterns   []string
	FollowPatterns   []string
	Headers          map[string]string
	Cookie           string
}

// SettingsFor returns the settings for crawling rawURL.
// Values from the site file override the global configuration, and the
// result is clamped like Config.Clamp.
func (c *Config) SettingsFor(rawURL string) CrawlSettings {
	s := CrawlSettings{
		URL:              rawURL,
		MaxDepth:         c.MaxDepth,
		MaxPages:         c.MaxPages,
		Concurrency:      c.Concurrency,
		Delay:            c.Delay,
		Timeout:          c.Timeout,
		Mode:             c.FetchMode(),
		IncludeExternal:  c.IncludeExternal,
		RespectRobots:    c.RespectRobots,
		Readability:      c.Readability,
		ContentSelector:  c.ContentSelector,
		ExcludeSelectors: slices.Clone(c.ExcludeSelectors),
	}

	site := c.SiteConfigs.GetSiteConfigForURL(rawURL)
	if site.Depth > 0 {
		s.MaxDepth = site.Depth
	}
	if site.MaxPages > 0 {
		s.MaxPages = site.MaxPages
	}
	if site.Delay > 0 {
		s.Delay = site.Delay
	}
	if site.Render != nil && s.Mode != FetchAuto {
		s.Mode = FetchHTTP
		if *site.Render {
			s.Mode = FetchRender
		}
	}
	if site.IncludeExternal != nil {
		s.IncludeExternal = *site.IncludeExternal
	}
	if site.Readability != nil {
		s.Readability = *site.Readability
	}
	if site.ContentSelector != "" {
		s.ContentSelector = site.ContentSelector
	}
	s.ExcludeSelectors = append(s.ExcludeSelectors, site.ExcludeSelectors...)
	s.IgnorePatterns = slices.Clone(site.IgnorePatterns)
	s.FollowPatterns = slices.Clone(site.FollowPatterns)
	s.Headers = maps.Clone(site.Headers)
	s.Cookie = site.Cookie

	var ignored []string
	s.MaxDepth = clamp("depth", s.MaxDepth, MinDepth, MaxDepth, &ignored)
	s.MaxPages = clamp("max-pages", s.MaxPages, MinPages, MaxPages, &ignored)
	s.Concurrency = clamp("concurrency", s.Concurrency, MinConcurrency, MaxConcurrency, &ignored)

	return s
}

// FetchMode returns the fetch mode selected by the render flags.
func (c *Config) FetchMode() FetchMode {
	switch {
	case c.Render:
		return FetchRender
	case c.AutoRender:
		return FetchAuto
	default:
		return FetchHTTP
	}
}

// ValidateTarget checks that raw is an absolute http or https URL with a host.
func ValidateTarget(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidTarget, raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidTarget, raw)
	}
	return nil
}

func clamp(name string, v, lo, hi int, changed *[]string) int {
	switch {
	case v < lo:
		*changed = append(*changed, fmt.Sprintf("%s %d raised to %d", name, v, lo))
		return lo
	case v > hi:
		*changed = append(*changed, fmt.Sprintf("%s %d lowered to %d", name, v, hi))
		return hi
	default:
		return v
	}
}

// SiteKey returns the lower-cased host of raw and its port unless it is
// the scheme's default. Seeds with the same key share one output directory.
func SiteKey(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return raw
	}
	key := strings.ToLower(u.Hostname())
	port := u.Port()
	scheme := strings.ToLower(u.Scheme)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		key += ":" + port
	}
	return key
}
