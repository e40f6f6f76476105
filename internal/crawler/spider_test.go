package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/nao1215/mdcrawl/internal/model"
)

// testSite serves HTML pages by path and counts requests.
type testSite struct {
	server *httptest.Server
	mu     sync.Mutex
	hits   map[string]int
}

func newTestSite(t *testing.T, pages map[string]string) *testSite {
	t.Helper()

	site := &testSite{hits: make(map[string]int)}
	site.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.hits[r.URL.Path]++
		site.mu.Unlock()

		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(site.server.Close)
	return site
}

func (s *testSite) url(path string) string {
	return s.server.URL + path
}

func (s *testSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *testSite) fetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(s.server.Client(), fetcher.WithTimeout(5*time.Second))
}

// page builds an HTML page with a heading and links.
func page(title string, links ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>%s</title></head><body><main><h1>%s</h1><p>Content of %s.</p>", title, title, title)
	for _, l := range links {
		fmt.Fprintf(&b, `<a href="%s">%s</a> `, l, l)
	}
	b.WriteString("</main></body></html>")
	return b.String()
}

// TestSpiderSeedNotFound tests that a 404 seed is one recorded error.
func TestSpiderSeedNotFound(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{})

	session, err := NewSpider(site.fetcher()).Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("crawl should not fail on page errors: %v", err)
	}
	if len(session.Pages) != 0 {
		t.Errorf("expected 0 pages, got %d", len(session.Pages))
	}
	if session.Errors != 1 {
		t.Errorf("expected 1 error, got %d", session.Errors)
	}
	if session.Status() != model.StatusFailed {
		t.Errorf("expected failed status, got %s", session.Status())
	}

	var fe *fetcher.FetchError
	if !errors.As(session.Failures[0].Err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 fetch error, got %v", session.Failures[0].Err)
	}
	if session.Failures[0].StatusCode != http.StatusNotFound {
		t.Errorf("expected status code recorded, got %d", session.Failures[0].StatusCode)
	}
}

// TestSpiderKeepsSeedAsGiven tests that the session shows the seed as typed
// while pages carry normalized URLs.
func TestSpiderKeepsSeedAsGiven(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/": page("Home"),
	})

	seed := strings.Replace(site.url(""), "http://", "HTTP://", 1) + "#top"
	session, err := NewSpider(site.fetcher()).Crawl(context.Background(), " "+seed+" ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.RootURL != seed {
		t.Errorf("expected root URL %q, got %q", seed, session.RootURL)
	}
	if len(session.Pages) != 1 || session.Pages[0].URL != site.url("/") {
		t.Errorf("expected the normalized root page, got %+v", session.Pages)
	}
}

// TestSpiderThreeChildren tests a seed with three leaf pages.
func TestSpiderThreeChildren(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/c", "/a", "/b"),
		"/a": page("A"),
		"/b": page("B"),
		"/c": page("C"),
	})

	session, err := NewSpider(site.fetcher(), WithMaxDepth(2), WithMaxPages(10)).
		Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(session.Pages) != 4 {
		t.Fatalf("expected 4 pages, got %d", len(session.Pages))
	}
	wantURLs := []string{site.url("/"), site.url("/a"), site.url("/b"), site.url("/c")}
	for i, p := range session.Pages {
		if p.URL != wantURLs[i] {
			t.Errorf("page %d: expected %s, got %s", i, wantURLs[i], p.URL)
		}
		if p.Depth > 1 {
			t.Errorf("page %s has depth %d", p.URL, p.Depth)
		}
		if p.Ordinal != i {
			t.Errorf("page %s has ordinal %d, want %d", p.URL, p.Ordinal, i)
		}
	}
	if session.Pages[0].Title != "Home" || session.Pages[0].Depth != 0 {
		t.Errorf("unexpected root page %+v", session.Pages[0])
	}
	if session.Errors != 0 || session.Status() != model.StatusComplete {
		t.Errorf("expected complete crawl, got %d errors (%s)", session.Errors, session.Status())
	}
}

// TestSpiderPageLimit tests that the page budget stops the crawl without errors.
func TestSpiderPageLimit(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/1", "/2", "/3", "/4", "/5"),
		"/1": page("1"), "/2": page("2"), "/3": page("3"), "/4": page("4"), "/5": page("5"),
	})

	var mu sync.Mutex
	maxEnqueued := 0
	observer := func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		if e.Enqueued > maxEnqueued {
			maxEnqueued = e.Enqueued
		}
	}

	session, err := NewSpider(site.fetcher(), WithMaxPages(2), WithObserver(observer)).
		Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Processed() != 2 {
		t.Errorf("expected 2 processed pages, got %d", session.Processed())
	}
	if session.Errors != 0 {
		t.Errorf("dropped URLs must not count as errors, got %d", session.Errors)
	}
	if maxEnqueued > 2 {
		t.Errorf("enqueued %d URLs with a limit of 2", maxEnqueued)
	}

	fetched := 0
	for _, p := range []string{"/1", "/2", "/3", "/4", "/5"} {
		fetched += site.hitCount(p)
	}
	if fetched != 1 {
		t.Errorf("expected exactly 1 child fetched, got %d", fetched)
	}
}

// TestSpiderDepthLimit tests that no page deeper than max depth is fetched.
func TestSpiderDepthLimit(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/a"),
		"/a": page("A", "/b"),
		"/b": page("B", "/c"),
		"/c": page("C"),
	})

	session, err := NewSpider(site.fetcher(), WithMaxDepth(2)).Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(session.Pages) != 3 {
		t.Errorf("expected 3 pages, got %d", len(session.Pages))
	}
	for _, p := range session.Pages {
		if p.Depth > 2 {
			t.Errorf("page %s exceeds max depth: %d", p.URL, p.Depth)
		}
	}
	if site.hitCount("/c") != 0 {
		t.Error("page beyond max depth was fetched")
	}
}

// TestSpiderDedup tests that every URL is dispatched at most once even when
// many workers discover it concurrently.
func TestSpiderDedup(t *testing.T) {
	t.Parallel()

	paths := []string{"/", "/a", "/b", "/c", "/d", "/e", "/f"}
	pages := make(map[string]string, len(paths))
	for _, p := range paths {
		// Every page links to every other page, with variants that
		// normalize to the same URL.
		links := make([]string, 0, len(paths)*2)
		for _, l := range paths {
			links = append(links, l, l+"#section")
		}
		pages[p] = page("Page "+p, links...)
	}
	site := newTestSite(t, pages)

	var mu sync.Mutex
	dispatched := make(map[string]int)
	observer := func(e Event) {
		if e.Kind != EventDispatch {
			return
		}
		mu.Lock()
		dispatched[e.Target.URL]++
		mu.Unlock()
	}

	session, err := NewSpider(site.fetcher(), WithConcurrency(8), WithMaxPages(100), WithObserver(observer)).
		Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(session.Pages) != len(paths) {
		t.Errorf("expected %d pages, got %d", len(paths), len(session.Pages))
	}
	for u, n := range dispatched {
		if n != 1 {
			t.Errorf("%s dispatched %d times", u, n)
		}
	}
	for _, p := range paths {
		if got := site.hitCount(p); got != 1 {
			t.Errorf("%s fetched %d times", p, got)
		}
	}
}

// TestSpiderBreadthFirst tests that dispatch order never goes back to a
// shallower depth.
func TestSpiderBreadthFirst(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":     page("Home", "/a", "/b"),
		"/a":    page("A", "/a/1", "/a/2"),
		"/b":    page("B", "/b/1"),
		"/a/1":  page("A1", "/deep"),
		"/a/2":  page("A2"),
		"/b/1":  page("B1"),
		"/deep": page("Deep"),
	})

	var mu sync.Mutex
	var order []int
	observer := func(e Event) {
		if e.Kind != EventDispatch {
			return
		}
		mu.Lock()
		order = append(order, e.Target.Depth)
		mu.Unlock()
	}

	session, err := NewSpider(site.fetcher(), WithConcurrency(3), WithObserver(observer)).
		Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(session.Pages) != 7 {
		t.Errorf("expected 7 pages, got %d", len(session.Pages))
	}
	if !sort.IntsAreSorted(order) {
		t.Errorf("dispatch depths not breadth first: %v", order)
	}
}

// TestSpiderLeafPage tests that a page without links yields one result and
// admits nothing else.
func TestSpiderLeafPage(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{"/": page("Only")})

	var mu sync.Mutex
	lastEnqueued := 0
	observer := func(e Event) {
		mu.Lock()
		lastEnqueued = e.Enqueued
		mu.Unlock()
	}

	session, err := NewSpider(site.fetcher(), WithObserver(observer)).Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Processed() != 1 || len(session.Pages) != 1 {
		t.Errorf("expected exactly one result, got %d", session.Processed())
	}
	if lastEnqueued != 1 {
		t.Errorf("expected only the seed to be admitted, got %d", lastEnqueued)
	}
}

// TestSpiderScope tests external links, path patterns and robots rules.
func TestSpiderScope(t *testing.T) {
	t.Parallel()

	external := newTestSite(t, map[string]string{"/ext": page("External")})

	newSite := func(t *testing.T) *testSite {
		return newTestSite(t, map[string]string{
			"/":          page("Home", "/docs/a", "/blog/post", "/private/x", external.url("/ext")),
			"/docs/a":    page("Docs A"),
			"/blog/post": page("Post"),
			"/private/x": page("Private"),
		})
	}

	t.Run("external links are dropped by default", func(t *testing.T) {
		t.Parallel()

		site := newSite(t)
		session, err := NewSpider(site.fetcher()).Crawl(context.Background(), site.url("/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(session.Pages) != 4 {
			t.Errorf("expected 4 internal pages, got %d", len(session.Pages))
		}
		for _, p := range session.Pages {
			if strings.HasPrefix(p.URL, external.server.URL) {
				t.Errorf("external page crawled: %s", p.URL)
			}
		}
	})

	t.Run("external links are followed when enabled", func(t *testing.T) {
		t.Parallel()

		site := newSite(t)
		session, err := NewSpider(site.fetcher(), WithIncludeExternal(true)).Crawl(context.Background(), site.url("/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(session.Pages) != 5 {
			t.Errorf("expected 5 pages, got %d", len(session.Pages))
		}
	})

	t.Run("ignore and follow patterns", func(t *testing.T) {
		t.Parallel()

		site := newSite(t)
		session, err := NewSpider(site.fetcher(),
			WithIgnorePatterns([]string{"/blog/*"}),
			WithFollowPatterns([]string{"/docs/*", "/private/*"}),
		).Crawl(context.Background(), site.url("/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.hitCount("/blog/post") != 0 {
			t.Error("ignored path was fetched")
		}
		if len(session.Pages) != 3 {
			t.Errorf("expected root, docs and private pages, got %d", len(session.Pages))
		}
	})

	t.Run("robots disallow", func(t *testing.T) {
		t.Parallel()

		robots, err := ParseRobots(http.StatusOK, []byte("User-agent: *\nDisallow: /private\n"), "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		site := newSite(t)
		session, err := NewSpider(site.fetcher(), WithRobots(robots)).Crawl(context.Background(), site.url("/"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if site.hitCount("/private/x") != 0 {
			t.Error("disallowed path was fetched")
		}
		if len(session.Pages) != 3 {
			t.Errorf("expected 3 pages, got %d", len(session.Pages))
		}
	})
}

// TestSpiderEmptyAndFailedPages tests the three outcomes.
func TestSpiderEmptyAndFailedPages(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":      page("Home", "/empty", "/missing", "/child"),
		"/empty": `<html><head><title>Blank</title></head><body><p>   </p></body></html>`,
		"/child": page("Child"),
	})

	session, err := NewSpider(site.fetcher()).Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.Empty != 1 {
		t.Errorf("expected 1 empty page, got %d", session.Empty)
	}
	if session.Errors != 1 {
		t.Errorf("expected 1 error, got %d", session.Errors)
	}
	if len(session.Pages) != 2 {
		t.Errorf("expected root and child pages, got %d", len(session.Pages))
	}
	if session.Status() != model.StatusPartial {
		t.Errorf("expected partial status, got %s", session.Status())
	}
}

// TestSpiderCancellation tests that cancellation stops dispatch but lets
// the in-flight page finish.
func TestSpiderCancellation(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/a", "/b"),
		"/a": page("A"),
		"/b": page("B"),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	observer := func(e Event) {
		if e.Kind == EventDispatch && e.Target.Depth == 0 {
			cancel()
		}
	}

	session, err := NewSpider(site.fetcher(), WithObserver(observer)).Crawl(ctx, site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !session.Cancelled {
		t.Error("expected session to be marked cancelled")
	}
	if len(session.Pages) != 1 {
		t.Errorf("expected the in-flight root page to finish, got %d pages", len(session.Pages))
	}
	if site.hitCount("/a")+site.hitCount("/b") != 0 {
		t.Error("no page should be dispatched after cancellation")
	}
}

// TestSpiderDelay tests the politeness delay between dispatches.
func TestSpiderDelay(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{
		"/":  page("Home", "/a", "/b", "/c"),
		"/a": page("A"), "/b": page("B"), "/c": page("C"),
	})

	start := time.Now()
	session, err := NewSpider(site.fetcher(), WithDelay(20*time.Millisecond)).
		Crawl(context.Background(), site.url("/"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(session.Pages) != 4 {
		t.Errorf("expected 4 pages, got %d", len(session.Pages))
	}
	if elapsed := time.Since(start); elapsed < 35*time.Millisecond {
		t.Errorf("expected dispatches to be spaced out, took %v", elapsed)
	}
}

// TestSpiderInvalidRoot tests rejection of a bad seed URL.
func TestSpiderInvalidRoot(t *testing.T) {
	t.Parallel()

	_, err := NewSpider(fetcher.NewHTTPFetcher(nil)).Crawl(context.Background(), "ftp://example.com/")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("expected ErrInvalidURL, got %v", err)
	}
}

// TestSpiderUnsupportedContent tests that extraction errors are counted.
func TestSpiderUnsupportedContent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte{0x01, 0x02})
	}))
	t.Cleanup(server.Close)

	session, err := NewSpider(fetcher.NewHTTPFetcher(server.Client())).Crawl(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.Errors != 1 {
		t.Errorf("expected 1 error, got %d", session.Errors)
	}
	if session.Failures[0].ContentType != "application/octet-stream" {
		t.Errorf("expected content type recorded, got %q", session.Failures[0].ContentType)
	}
}

// TestSpiderPage tests single page processing.
func TestSpiderPage(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, map[string]string{"/docs": page("Docs", "/other")})

	t.Run("success does not follow links", func(t *testing.T) {
		t.Parallel()

		result, err := NewSpider(site.fetcher()).Page(context.Background(), site.url("/docs"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Title != "Docs" || result.Outcome != model.OutcomeSuccess {
			t.Errorf("unexpected result %+v", result)
		}
		if !strings.Contains(result.Content, "Content of Docs.") {
			t.Errorf("unexpected content %q", result.Content)
		}
		if site.hitCount("/other") != 0 {
			t.Error("links must not be followed")
		}
	})

	t.Run("404 is an error", func(t *testing.T) {
		t.Parallel()

		result, err := NewSpider(site.fetcher()).Page(context.Background(), site.url("/missing"))
		if err == nil {
			t.Fatal("expected error")
		}
		if kind, ok := fetcher.KindOf(err); !ok || kind != fetcher.KindHTTP {
			t.Errorf("expected http error, got %v", err)
		}
		if result.StatusCode != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", result.StatusCode)
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		t.Parallel()

		if _, err := NewSpider(site.fetcher()).Page(context.Background(), "ftp://example.com/"); err == nil {
			t.Error("expected error for unsupported scheme")
		}
	})
}
