package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/nao1215/mdcrawl/internal/extractor"
	"github.com/nao1215/mdcrawl/internal/fetcher"
	"github.com/nao1215/mdcrawl/internal/model"
)

// pagesDirName is the sub directory of the site directory holding page files.
const pagesDirName = "pages"

// formatCount formats n with English thousands separators, e.g. 12,345.
func formatCount(n int) string {
	return message.NewPrinter(language.English).Sprintf("%d", n)
}

// PageFilename returns the file name of a site page: the three digit
// ordinal followed by the sanitized URL path.
func PageFilename(page model.PageResult) string {
	return fmt.Sprintf("%03d_%s.md", page.Ordinal, SanitizeFilename(page.URL))
}

// PageWriter renders one page file.
type PageWriter struct {
	baseWriter

	// withDepth adds the "Depth:" line used by site crawls.
	withDepth bool
}

// NewPageWriter creates a PageWriter. Site pages carry their depth,
// single page downloads do not.
func NewPageWriter(output io.Writer, withDepth bool) *PageWriter {
	return &PageWriter{
		baseWriter: newBaseWriter(output),
		withDepth:  withDepth,
	}
}

// WritePage outputs the page as "# title", the source URL, an optional
// depth line and the markdown body.
func (w *PageWriter) WritePage(page model.PageResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(page.DisplayTitle())
	md.PlainText("")
	md.PlainTextf("URL: %s", page.URL)
	if w.withDepth {
		md.PlainTextf("Depth: %d", page.Depth)
	}
	md.PlainText("")
	md.PlainText(page.Content)

	return len(md.String()), md.Build()
}

// IndexWriter renders the index of a site crawl.
type IndexWriter struct {
	baseWriter
}

// NewIndexWriter creates an IndexWriter that outputs to the given writer.
func NewIndexWriter(output io.Writer) *IndexWriter {
	return &IndexWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the index. Pages are listed in session order, which is
// (depth, URL) once the session is finalized.
func (w *IndexWriter) Write(session *model.Session) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, session)
	w.writePages(md, session)
	w.writeErrors(md, session)
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *IndexWriter) writeHeader(md *markdown.Markdown, session *model.Session) {
	md.H1("Crawl Index: " + session.RootURL)
	md.PlainText("")
	md.PlainTextf("Pages: %d crawled, %d errors", len(session.Pages), session.Errors)
	md.PlainTextf("Depth: %d", session.MaxDepth)
	if session.Empty > 0 {
		md.PlainTextf("Empty: %d skipped", session.Empty)
	}
	if session.Cancelled {
		md.PlainText("Cancelled: crawl stopped early")
	}
	md.PlainText("")
}

func (w *IndexWriter) writePages(md *markdown.Markdown, session *model.Session) {
	md.H2("Pages")
	md.PlainText("")

	for _, p := range session.Pages {
		md.BulletList(fmt.Sprintf("[%s](%s/%s) — depth %d, %s chars",
			linkText(p.DisplayTitle()), pagesDirName, PageFilename(p), p.Depth, formatCount(p.Chars)))
		md.PlainText("  " + p.URL)
	}
}

// linkTextEscaper escapes the characters that end or nest a link label.
var linkTextEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// linkText returns s safe for use inside [...] of a markdown link.
func linkText(s string) string {
	return linkTextEscaper.Replace(s)
}

func (w *IndexWriter) writeErrors(md *markdown.Markdown, session *model.Session) {
	if len(session.Failures) == 0 {
		return
	}

	md.PlainText("")
	md.H2("Errors")
	md.PlainText("")
	for _, p := range session.Failures {
		md.BulletList(fmt.Sprintf("%s (%s)", p.URL, errorKind(p.Err)))
	}
}

// errorKind returns a short label for a page failure.
func errorKind(err error) string {
	if kind, ok := fetcher.KindOf(err); ok {
		var fe *fetcher.FetchError
		if kind == fetcher.KindHTTP && errors.As(err, &fe) && fe.StatusCode != 0 {
			return kind.String() + " " + strconv.Itoa(fe.StatusCode)
		}
		return kind.String()
	}

	var ee *extractor.ExtractionError
	if errors.As(err, &ee) {
		return "extraction error"
	}

	var fse *FilesystemError
	if errors.As(err, &fse) {
		return "write error"
	}
	return "error"
}

// HistoryWriter renders recorded crawls as a markdown table.
type HistoryWriter struct {
	baseWriter
}

// NewHistoryWriter creates a HistoryWriter that outputs to the given writer.
func NewHistoryWriter(output io.Writer) *HistoryWriter {
	return &HistoryWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteRecords outputs one table row per record, newest first as given.
func (w *HistoryWriter) WriteRecords(records []model.CrawlRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2("Crawl History")
	md.PlainText("")

	if len(records) == 0 {
		md.PlainText("No crawls recorded.")
		md.PlainText("")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.RootURL,
			r.Status.String(),
			strconv.Itoa(r.Pages),
			strconv.Itoa(r.Errors),
			formatCount(r.TotalChars),
			r.IndexPath,
		})
	}

	md.Table(markdown.TableSet{
		Header: []string{"ID", "Started", "URL", "Status", "Pages", "Errors", "Chars", "Index"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

// WriteDetail outputs one recorded crawl and its pages.
func (w *HistoryWriter) WriteDetail(rec model.CrawlRecord, pages []model.PageResult) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H2(fmt.Sprintf("Crawl %d: %s", rec.ID, rec.RootURL))
	md.PlainText("")
	md.PlainTextf("Started: %s", rec.StartedAt.Local().Format("2006-01-02 15:04:05"))
	md.PlainTextf("Status: %s", rec.Status)
	md.PlainTextf("Pages: %d crawled, %d errors", rec.Pages, rec.Errors)
	if rec.Empty > 0 {
		md.PlainTextf("Empty: %d skipped", rec.Empty)
	}
	if rec.IndexPath != "" {
		md.PlainTextf("Index: %s", rec.IndexPath)
	}
	md.PlainText("")

	if len(pages) > 0 {
		rows := make([][]string, 0, len(pages))
		for _, p := range pages {
			status := ""
			if p.StatusCode != 0 {
				status = strconv.Itoa(p.StatusCode)
			}
			rows = append(rows, []string{
				p.URL,
				strconv.Itoa(p.Depth),
				p.Outcome.String(),
				status,
				formatCount(p.Chars),
				p.ErrorMessage(),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"URL", "Depth", "Outcome", "Status", "Chars", "Error"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}
