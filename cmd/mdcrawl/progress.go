package main

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"github.com/nao1215/mdcrawl/internal/crawler"
	"github.com/nao1215/mdcrawl/internal/model"
	"github.com/nao1215/mdcrawl/internal/report"
)

// progress shows a spinner with the running page counts of one site crawl.
// A disabled progress does nothing.
type progress struct {
	spinner *spinner.Spinner
}

// newProgress creates a spinner on w. With quiet set the progress is disabled.
func newProgress(w io.Writer, quiet bool) *progress {
	if quiet {
		return &progress{}
	}
	s := spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " starting"
	return &progress{spinner: s}
}

// Start shows the spinner.
func (p *progress) Start() {
	if p.spinner != nil {
		p.spinner.Start()
	}
}

// Stop hides the spinner. It is safe to call more than once.
func (p *progress) Stop() {
	if p.spinner != nil {
		p.spinner.Stop()
	}
}

// Observe updates the spinner text from a crawl event.
func (p *progress) Observe(e crawler.Event) {
	if p.spinner == nil {
		return
	}
	p.spinner.Lock()
	p.spinner.Suffix = suffix(e)
	p.spinner.Unlock()
}

func suffix(e crawler.Event) string {
	if e.Kind == crawler.EventDispatch {
		return fmt.Sprintf(" %d pages, %d errors, %d queued | fetching %s",
			e.Pages, e.Errors, e.Enqueued, e.Target.URL)
	}
	return fmt.Sprintf(" %d pages, %d errors, %d queued | done %s",
		e.Pages, e.Errors, e.Enqueued, e.Target.URL)
}

// Wrap returns a Writer that hides the spinner before writing, so the
// summary is not interleaved with spinner frames.
func (p *progress) Wrap(w report.Writer) report.Writer {
	return stopWriter{progress: p, next: w}
}

type stopWriter struct {
	progress *progress
	next     report.Writer
}

func (s stopWriter) Write(session *model.Session) (int, error) {
	s.progress.Stop()
	return s.next.Write(session)
}
