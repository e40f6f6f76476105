package report

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/mdcrawl/internal/model"
)

// SummaryWriter outputs the plain text crawl summary shown on the terminal
// after a site crawl.
type SummaryWriter struct {
	baseWriter

	// verbose lists every failed URL with its error message.
	verbose bool
}

// SummaryOption configures a SummaryWriter.
type SummaryOption func(*SummaryWriter)

// WithVerbose enables the list of failures.
func WithVerbose(verbose bool) SummaryOption {
	return func(w *SummaryWriter) {
		w.verbose = verbose
	}
}

// NewSummaryWriter creates a SummaryWriter that outputs to the given writer.
func NewSummaryWriter(output io.Writer, opts ...SummaryOption) *SummaryWriter {
	w := &SummaryWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary of a written session.
func (w *SummaryWriter) Write(session *model.Session) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	switch {
	case session.Cancelled:
		sb.WriteString("Crawl cancelled.\n")
	case session.Status() == model.StatusFailed:
		sb.WriteString("Crawl finished without any pages.\n")
	default:
		sb.WriteString("Crawl complete!\n")
	}

	fmt.Fprintf(&sb, "Pages: %d crawled, %d errors\n", len(session.Pages), session.Errors)
	if session.Empty > 0 {
		fmt.Fprintf(&sb, "Empty: %d skipped\n", session.Empty)
	}
	if session.IndexPath != "" {
		fmt.Fprintf(&sb, "Index: %s\n", session.IndexPath)
	}
	if session.OutputDir != "" {
		fmt.Fprintf(&sb, "Pages dir: %s\n", filepath.Join(session.OutputDir, pagesDirName))
	}
	fmt.Fprintf(&sb, "Total content: %s chars\n", formatCount(session.TotalChars()))

	if w.verbose {
		if elapsed := session.Elapsed(); elapsed > 0 {
			fmt.Fprintf(&sb, "Elapsed: %s\n", elapsed.Round(time.Millisecond))
		}
		w.writeFailures(&sb, session)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *SummaryWriter) writeFailures(sb *strings.Builder, session *model.Session) {
	if len(session.Failures) == 0 {
		return
	}

	sb.WriteString("\nFailed pages:\n")
	for _, p := range session.Failures {
		fmt.Fprintf(sb, "  - %s (%s)\n", p.URL, errorKind(p.Err))
		if msg := p.ErrorMessage(); msg != "" {
			fmt.Fprintf(sb, "    %s\n", msg)
		}
	}
}

// WritePageSummary outputs the result line of a single page download.
func WritePageSummary(output io.Writer, path string, page model.PageResult) (int, error) {
	return fmt.Fprintf(output, "Saved: %s\nSize: %s chars\n", path, formatCount(page.Chars))
}
