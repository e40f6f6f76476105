package crawler

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
)

// TestNormalize tests URL canonicalization.
func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"removes fragment", "http://example.com/page#section", "http://example.com/page", false},
		{"lowercases scheme", "HTTP://example.com/page", "http://example.com/page", false},
		{"lowercases host", "http://EXAMPLE.COM/page", "http://example.com/page", false},
		{"empty path becomes root", "http://example.com", "http://example.com/", false},
		{"keeps query", "http://example.com/p?a=1", "http://example.com/p?a=1", false},
		{"drops default http port", "http://example.com:80/a", "http://example.com/a", false},
		{"drops default https port", "https://example.com:443/a", "https://example.com/a", false},
		{"keeps other port", "http://example.com:8080/a", "http://example.com:8080/a", false},
		{"keeps trailing slash", "http://example.com/docs/", "http://example.com/docs/", false},
		{"trims spaces", "  http://example.com/a  ", "http://example.com/a", false},
		{"rejects ftp", "ftp://example.com/", "", true},
		{"rejects relative", "/docs", "", true},
		{"rejects garbage", "http://[::1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Normalize(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidURL) {
					t.Errorf("expected ErrInvalidURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestFrontierOffer tests admission rules.
func TestFrontierOffer(t *testing.T) {
	t.Parallel()

	newFrontier := func(t *testing.T, opts ...FrontierOption) *Frontier {
		t.Helper()
		f, err := NewFrontier("http://example.com/docs/", 2, 5, opts...)
		if err != nil {
			t.Fatalf("failed to create frontier: %v", err)
		}
		return f
	}

	t.Run("admits and dedups", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(t)
		target, err := f.Offer("http://EXAMPLE.com/docs/a#x", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if target.URL != "http://example.com/docs/a" || target.Depth != 1 {
			t.Errorf("unexpected target %+v", target)
		}

		if _, err := f.Offer("http://example.com/docs/a", 2); !errors.Is(err, ErrDuplicate) {
			t.Errorf("expected ErrDuplicate, got %v", err)
		}
		if f.Enqueued() != 1 {
			t.Errorf("expected 1 enqueued, got %d", f.Enqueued())
		}
		if state, ok := f.State("http://example.com/docs/a"); !ok || state != StateQueued {
			t.Errorf("expected queued state, got %s %v", state, ok)
		}
	})

	t.Run("rejects too deep", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(t)
		if _, err := f.Offer("http://example.com/deep", 3); !errors.Is(err, ErrTooDeep) {
			t.Errorf("expected ErrTooDeep, got %v", err)
		}
	})

	t.Run("rejects external unless included", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(t)
		if _, err := f.Offer("http://other.com/", 1); !errors.Is(err, ErrExternal) {
			t.Errorf("expected ErrExternal, got %v", err)
		}
		if _, err := f.Offer("http://example.com:8080/", 1); !errors.Is(err, ErrExternal) {
			t.Errorf("different port should be external, got %v", err)
		}

		f = newFrontier(t, WithExternal(true))
		if _, err := f.Offer("http://other.com/", 1); err != nil {
			t.Errorf("expected external link to be admitted, got %v", err)
		}
	})

	t.Run("applies path filter to links only", func(t *testing.T) {
		t.Parallel()

		f, err := NewFrontier("http://example.com/blog/", 2, 5,
			WithPathFilter(PathFilter{Ignore: []string{"/blog/*"}}))
		if err != nil {
			t.Fatalf("failed to create frontier: %v", err)
		}
		if _, err := f.Offer("http://example.com/blog/", 0); err != nil {
			t.Errorf("seed should bypass path filter, got %v", err)
		}
		if _, err := f.Offer("http://example.com/blog/post", 1); !errors.Is(err, ErrFiltered) {
			t.Errorf("expected ErrFiltered, got %v", err)
		}
	})

	t.Run("applies robots rules", func(t *testing.T) {
		t.Parallel()

		robots, err := ParseRobots(http.StatusOK, []byte("User-agent: *\nDisallow: /docs/secret\n"), "mdcrawl")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f := newFrontier(t, WithRobotsRules(robots))
		if _, err := f.Offer("http://example.com/docs/secret/page", 1); !errors.Is(err, ErrDisallowed) {
			t.Errorf("expected ErrDisallowed, got %v", err)
		}
	})

	t.Run("stops at page limit", func(t *testing.T) {
		t.Parallel()

		f := newFrontier(t)
		for i := 0; i < 5; i++ {
			if _, err := f.Offer(fmt.Sprintf("http://example.com/p%d", i), 1); err != nil {
				t.Fatalf("offer %d: unexpected error: %v", i, err)
			}
		}
		if _, err := f.Offer("http://example.com/p5", 1); !errors.Is(err, ErrLimitExceeded) {
			t.Errorf("expected ErrLimitExceeded, got %v", err)
		}
		if state, ok := f.State("http://example.com/p5"); !ok || state != StateDiscovered {
			t.Errorf("expected rejected URL to stay discovered, got %s %v", state, ok)
		}
		if f.Enqueued() != 5 {
			t.Errorf("expected 5 enqueued, got %d", f.Enqueued())
		}
	})
}

// TestFrontierConcurrentOffer tests that concurrent offers of the same URL
// admit it exactly once.
func TestFrontierConcurrentOffer(t *testing.T) {
	t.Parallel()

	f, err := NewFrontier("http://example.com/", 3, 1000)
	if err != nil {
		t.Fatalf("failed to create frontier: %v", err)
	}

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				if _, err := f.Offer(fmt.Sprintf("http://example.com/page%d", j), 1); err == nil {
					mu.Lock()
					admitted++
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if admitted != 10 {
		t.Errorf("expected 10 admissions, got %d", admitted)
	}
	if f.Enqueued() != 10 {
		t.Errorf("expected 10 enqueued, got %d", f.Enqueued())
	}
}

// TestFrontierLifecycle tests Take, Start and Finish.
func TestFrontierLifecycle(t *testing.T) {
	t.Parallel()

	f, err := NewFrontier("http://example.com/", 2, 10)
	if err != nil {
		t.Fatalf("failed to create frontier: %v", err)
	}
	if _, err := f.Offer(f.Root(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.Offer("http://example.com/a", 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.Pending() != 2 {
		t.Errorf("expected 2 pending, got %d", f.Pending())
	}

	level := f.Take(0)
	if len(level) != 1 || level[0].URL != "http://example.com/" {
		t.Fatalf("unexpected level 0: %v", level)
	}
	if len(f.Take(0)) != 0 {
		t.Error("Take should remove the level")
	}

	f.Start(level[0])
	if s, _ := f.State(level[0].URL); s != StateInFlight {
		t.Errorf("expected in-flight, got %s", s)
	}
	f.Finish(level[0], true)
	if s, _ := f.State(level[0].URL); s != StateCompleted {
		t.Errorf("expected completed, got %s", s)
	}

	next := f.Take(1)
	f.Finish(next[0], false)
	if s, _ := f.State(next[0].URL); s != StateFailed {
		t.Errorf("expected failed, got %s", s)
	}
	if _, err := f.Offer("http://example.com/a", 1); !errors.Is(err, ErrDuplicate) {
		t.Errorf("finished URL must stay deduplicated, got %v", err)
	}
}
