package config

import (
	"maps"
	"net/url"
	"time"
)

// SiteConfig holds settings for a single host.
// Zero values mean "not set" and leave the global value in place.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent to this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers sent to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the crawl depth for this site.
	Depth int `yaml:"depth,omitempty"`

	// MaxPages overrides the page limit for this site.
	MaxPages int `yaml:"maxPages,omitempty"`

	// Delay overrides the delay between dispatches, e.g. "500ms".
	Delay time.Duration `yaml:"delay,omitempty"`

	// IgnorePatterns are URL path globs that are never crawled.
	IgnorePatterns []string `yaml:"ignorePatterns,omitempty"`

	// FollowPatterns restrict crawling to matching URL paths.
	FollowPatterns []string `yaml:"followPatterns,omitempty"`

	// Render forces browser rendering on or off.
	Render *bool `yaml:"render,omitempty"`

	// IncludeExternal allows or forbids links to other hosts.
	IncludeExternal *bool `yaml:"includeExternal,omitempty"`

	// Readability switches readability extraction on or off.
	Readability *bool `yaml:"readability,omitempty"`

	// ContentSelector is the CSS selector of the main content.
	ContentSelector string `yaml:"contentSelector,omitempty"`

	// ExcludeSelectors are CSS selectors removed before extraction.
	ExcludeSelectors []string `yaml:"excludeSelectors,omitempty"`
}

// File represents the structure of the .mdcrawl configuration file.
type File struct {
	// Sites maps hosts to their settings.
	// Keys are a host name, optionally with port (e.g., "docs.example.com:8080").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to all sites unless overridden in Sites.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the settings for a host merged over the defaults.
// The host is looked up with its port first and then without.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	if site, ok := cf.Sites[host]; ok {
		return mergeSiteConfig(cf.Defaults, site)
	}

	if u, err := url.Parse("//" + host); err == nil && u.Hostname() != host {
		if site, ok := cf.Sites[u.Hostname()]; ok {
			return mergeSiteConfig(cf.Defaults, site)
		}
	}

	return cf.Defaults
}

// GetSiteConfigForURL returns the settings for the host of rawURL.
func (cf *File) GetSiteConfigForURL(rawURL string) SiteConfig {
	u, err := url.Parse(rawURL)
	if err != nil {
		return cf.GetSiteConfig("")
	}
	return cf.GetSiteConfig(u.Host)
}

// mergeSiteConfig merges default settings with site overrides.
// Headers are merged key by key; every other set field replaces the default.
func mergeSiteConfig(defaults, override SiteConfig) SiteConfig {
	result := defaults

	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if override.Depth > 0 {
		result.Depth = override.Depth
	}
	if override.MaxPages > 0 {
		result.MaxPages = override.MaxPages
	}
	if override.Delay > 0 {
		result.Delay = override.Delay
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(defaults.Headers)+len(override.Headers))
		maps.Copy(headers, defaults.Headers)
		maps.Copy(headers, override.Headers)
		result.Headers = headers
	}
	if len(override.IgnorePatterns) > 0 {
		result.IgnorePatterns = override.IgnorePatterns
	}
	if len(override.FollowPatterns) > 0 {
		result.FollowPatterns = override.FollowPatterns
	}
	if override.Render != nil {
		result.Render = override.Render
	}
	if override.IncludeExternal != nil {
		result.IncludeExternal = override.IncludeExternal
	}
	if override.Readability != nil {
		result.Readability = override.Readability
	}
	if override.ContentSelector != "" {
		result.ContentSelector = override.ContentSelector
	}
	if len(override.ExcludeSelectors) > 0 {
		result.ExcludeSelectors = override.ExcludeSelectors
	}

	return result
}
