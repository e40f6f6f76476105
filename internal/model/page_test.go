package model

import (
	"errors"
	"testing"
	"time"
)

// TestMarkdownResolve tests the primary/fallback selection.
func TestMarkdownResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		md   Markdown
		want string
	}{
		{"primary wins", Markdown{Primary: "main", Fallback: "body"}, "main"},
		{"blank primary falls back", Markdown{Primary: "  \n", Fallback: "body"}, "body"},
		{"both blank is empty", Markdown{Primary: " ", Fallback: "\t"}, ""},
		{"zero value is empty", Markdown{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.md.Resolve(); got != tt.want {
				t.Errorf("Resolve() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestNewPageResult tests result construction and outcome classification.
func TestNewPageResult(t *testing.T) {
	t.Parallel()

	t.Run("non-empty content is success", func(t *testing.T) {
		t.Parallel()

		r := NewPageResult(CrawlTarget{URL: "http://example.com/", Depth: 2}, "Title", "héllo")
		if r.Outcome != OutcomeSuccess {
			t.Errorf("expected success, got %s", r.Outcome)
		}
		if r.Depth != 2 {
			t.Errorf("expected depth 2, got %d", r.Depth)
		}
		if r.Size != 6 {
			t.Errorf("expected size 6 bytes, got %d", r.Size)
		}
		if r.Chars != 5 {
			t.Errorf("expected 5 chars, got %d", r.Chars)
		}
		if r.Ordinal != -1 {
			t.Errorf("expected unassigned ordinal, got %d", r.Ordinal)
		}
	})

	t.Run("whitespace content is empty", func(t *testing.T) {
		t.Parallel()

		r := NewPageResult(CrawlTarget{URL: "http://example.com/"}, "", " \n\t ")
		if r.Outcome != OutcomeEmpty {
			t.Errorf("expected empty outcome, got %s", r.Outcome)
		}
	})

	t.Run("failed result keeps error", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("boom")
		r := NewFailedResult(CrawlTarget{URL: "http://example.com/x", Depth: 1}, cause)
		if r.Outcome != OutcomeFailed {
			t.Errorf("expected failed outcome, got %s", r.Outcome)
		}
		if !errors.Is(r.Err, cause) {
			t.Errorf("expected wrapped cause, got %v", r.Err)
		}
		if r.ErrorMessage() != "boom" {
			t.Errorf("unexpected message %q", r.ErrorMessage())
		}
	})
}

// TestDisplayTitle tests title fallback to URL.
func TestDisplayTitle(t *testing.T) {
	t.Parallel()

	r := PageResult{URL: "http://example.com/a", Title: "  "}
	if r.DisplayTitle() != "http://example.com/a" {
		t.Errorf("expected URL fallback, got %q", r.DisplayTitle())
	}

	r.Title = "Docs"
	if r.DisplayTitle() != "Docs" {
		t.Errorf("expected title, got %q", r.DisplayTitle())
	}
}

// TestSessionStatus tests aggregate status reporting.
func TestSessionStatus(t *testing.T) {
	t.Parallel()

	s := NewSession("http://example.com", 3, 50)
	if s.Status() != StatusFailed {
		t.Errorf("expected failed for zero pages, got %s", s.Status())
	}

	s.Pages = append(s.Pages, PageResult{URL: "http://example.com/", Chars: 10})
	if s.Status() != StatusComplete {
		t.Errorf("expected complete, got %s", s.Status())
	}

	s.Errors = 1
	s.Empty = 2
	if s.Status() != StatusPartial {
		t.Errorf("expected partial, got %s", s.Status())
	}
	if s.Processed() != 4 {
		t.Errorf("expected 4 processed, got %d", s.Processed())
	}
	if s.TotalChars() != 10 {
		t.Errorf("expected 10 chars, got %d", s.TotalChars())
	}

	if s.Elapsed() != 0 {
		t.Errorf("expected zero elapsed before finish, got %v", s.Elapsed())
	}
	s.FinishedAt = s.StartedAt.Add(2 * time.Second)
	if s.Elapsed() != 2*time.Second {
		t.Errorf("expected 2s elapsed, got %v", s.Elapsed())
	}
}
