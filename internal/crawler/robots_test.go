package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nao1215/mdcrawl/internal/fetcher"
)

// TestParseRobots tests rule evaluation by status and agent.
func TestParseRobots(t *testing.T) {
	t.Parallel()

	body := []byte("User-agent: mdcrawl\nDisallow: /private\nCrawl-delay: 2\n\nUser-agent: *\nDisallow: /\n")

	t.Run("agent group", func(t *testing.T) {
		t.Parallel()

		r, err := ParseRobots(http.StatusOK, body, "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Allowed("/private/page") {
			t.Error("expected /private to be disallowed")
		}
		if !r.Allowed("/docs/") {
			t.Error("expected /docs to be allowed")
		}
		if r.CrawlDelay() != 2*time.Second {
			t.Errorf("expected 2s crawl delay, got %v", r.CrawlDelay())
		}
	})

	t.Run("wildcard group", func(t *testing.T) {
		t.Parallel()

		r, err := ParseRobots(http.StatusOK, body, "otherbot")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Allowed("/docs/") {
			t.Error("expected everything to be disallowed for other agents")
		}
	})

	t.Run("missing file allows all", func(t *testing.T) {
		t.Parallel()

		r, err := ParseRobots(http.StatusNotFound, nil, "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !r.Allowed("/anything") {
			t.Error("expected 404 robots.txt to allow everything")
		}
	})

	t.Run("nil robots allows all", func(t *testing.T) {
		t.Parallel()

		var r *Robots
		if !r.Allowed("/x") || r.CrawlDelay() != 0 {
			t.Error("nil robots should allow everything without delay")
		}
	})
}

// TestLoadRobots tests fetching robots.txt from a server.
func TestLoadRobots(t *testing.T) {
	t.Parallel()

	t.Run("served file", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /admin\n"))
		}))
		t.Cleanup(server.Close)

		r, err := LoadRobots(context.Background(), fetcher.NewHTTPFetcher(server.Client()), server.URL+"/docs/intro", "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if r.Allowed("/admin/panel") {
			t.Error("expected /admin to be disallowed")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		t.Cleanup(server.Close)

		r, err := LoadRobots(context.Background(), fetcher.NewHTTPFetcher(server.Client()), server.URL, "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !r.Allowed("/admin") {
			t.Error("expected missing robots.txt to allow everything")
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		if _, err := LoadRobots(context.Background(), fetcher.NewHTTPFetcher(nil, fetcher.WithTimeout(time.Second)), url, "mdcrawl"); err == nil {
			t.Error("expected an error for an unreachable host")
		}
	})
}
