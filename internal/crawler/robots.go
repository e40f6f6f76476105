package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/temoto/robotstxt"
)

// Robots holds the robots.txt rules that apply to one user agent.
// A nil *Robots allows everything.
type Robots struct {
	group *robotstxt.Group
}

// ParseRobots parses a robots.txt body for the given HTTP status. Following
// the usual convention, 4xx allows everything and 5xx disallows everything.
func ParseRobots(status int, body []byte, agent string) (*Robots, error) {
	data, err := robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return &Robots{group: data.FindGroup(agent)}, nil
}

// LoadRobots fetches and parses <scheme>://<host>/robots.txt for siteURL.
// A missing file (4xx) allows everything.
func LoadRobots(ctx context.Context, f fetcher.Fetcher, siteURL, agent string) (*Robots, error) {
	u, err := url.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	robotsURL := (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String()

	content, err := f.Fetch(ctx, robotsURL)
	if err != nil {
		var fe *fetcher.FetchError
		if errors.As(err, &fe) && fe.Kind == fetcher.KindHTTP {
			return ParseRobots(fe.StatusCode, nil, agent)
		}
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	return ParseRobots(content.StatusCode, content.Body, agent)
}

// Allowed reports whether the path (with optional query) may be crawled.
func (r *Robots) Allowed(path string) bool {
	if r == nil || r.group == nil {
		return true
	}
	return r.group.Test(path)
}

// CrawlDelay returns the Crawl-delay directive, or zero.
func (r *Robots) CrawlDelay() time.Duration {
	if r == nil || r.group == nil {
		return 0
	}
	return r.group.CrawlDelay
}
