package report

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/nao1215/mdcrawl/internal/model"
)

const (
	dirPerm  os.FileMode = 0750
	filePerm os.FileMode = 0600

	indexFileName = "index.md"
)

// pageFilePattern matches the names produced by PageFilename.
var pageFilePattern = regexp.MustCompile(`^[0-9]{3,}_.+\.md$`)

// SiteWriter persists crawl results under an output root.
// Each site gets its own directory named after the URL authority.
type SiteWriter struct {
	// root is the output root, e.g. ".crawl".
	root string

	// logger receives warnings about pages that could not be written.
	logger *slog.Logger
}

// SiteOption configures a SiteWriter.
type SiteOption func(*SiteWriter)

// WithLogger sets the logger for write warnings.
func WithLogger(logger *slog.Logger) SiteOption {
	return func(w *SiteWriter) {
		w.logger = logger
	}
}

// NewSiteWriter creates a SiteWriter rooted at dir.
func NewSiteWriter(dir string, opts ...SiteOption) *SiteWriter {
	w := &SiteWriter{
		root:   dir,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// SiteDir returns the per-site directory for rawURL.
func (w *SiteWriter) SiteDir(rawURL string) (string, error) {
	authority, err := AuthorityDir(rawURL)
	if err != nil {
		return "", err
	}
	return within(w.root, authority)
}

// WritePage saves a single page download as <root>/<authority>/<name>.md
// and returns the file path.
func (w *SiteWriter) WritePage(page model.PageResult) (string, error) {
	authority, err := AuthorityDir(page.URL)
	if err != nil {
		return "", err
	}
	dir, err := within(w.root, authority)
	if err != nil {
		return "", err
	}
	path, err := within(w.root, authority, SanitizeFilename(page.URL)+".md")
	if err != nil {
		return "", err
	}

	if err := mkdir(dir); err != nil {
		return "", err
	}
	if err := writeFile(path, func(f io.Writer) error {
		_, err := NewPageWriter(f, false).WritePage(page)
		return err
	}); err != nil {
		return "", err
	}
	return path, nil
}

// Write saves every page of a finalized session and then the index.
// It sets session.OutputDir and session.IndexPath. Page files left in the
// site directory by an earlier crawl are removed first, so the pages
// directory holds exactly the pages of the new index.
//
// A page that cannot be written is moved to the failures and counted as an
// error, so the index never links to a missing file. Failing to write the
// index is returned as an error.
func (w *SiteWriter) Write(session *model.Session) (int, error) {
	authority, err := AuthorityDir(session.RootURL)
	if err != nil {
		return 0, err
	}
	siteDir, err := within(w.root, authority)
	if err != nil {
		return 0, err
	}
	pagesDir, err := within(w.root, authority, pagesDirName)
	if err != nil {
		return 0, err
	}
	indexPath, err := within(w.root, authority, indexFileName)
	if err != nil {
		return 0, err
	}

	if err := mkdir(pagesDir); err != nil {
		return 0, err
	}
	if err := prunePages(pagesDir); err != nil {
		return 0, err
	}

	written := make([]model.PageResult, 0, len(session.Pages))
	for _, p := range session.Pages {
		if err := w.writeSitePage(authority, p); err != nil {
			w.logger.Warn("failed to write page",
				slog.String("url", p.URL),
				slog.String("error", err.Error()))
			p.Outcome = model.OutcomeFailed
			p.Err = err
			session.Failures = append(session.Failures, p)
			session.Errors++
			continue
		}
		written = append(written, p)
	}
	if len(written) != len(session.Pages) {
		session.Pages = written
		sort.SliceStable(session.Failures, func(i, j int) bool {
			a, b := session.Failures[i], session.Failures[j]
			if a.Depth != b.Depth {
				return a.Depth < b.Depth
			}
			return a.URL < b.URL
		})
	}

	session.OutputDir = siteDir
	var n int
	if err := writeFile(indexPath, func(f io.Writer) error {
		var werr error
		n, werr = NewIndexWriter(f).Write(session)
		return werr
	}); err != nil {
		return n, err
	}
	session.IndexPath = indexPath

	return n, nil
}

func (w *SiteWriter) writeSitePage(authority string, page model.PageResult) error {
	path, err := within(w.root, authority, pagesDirName, PageFilename(page))
	if err != nil {
		return err
	}
	return writeFile(path, func(f io.Writer) error {
		_, err := NewPageWriter(f, true).WritePage(page)
		return err
	})
}

// prunePages removes the page files of a previous crawl from dir.
// Files with other names are left alone.
func prunePages(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &FilesystemError{Op: "readdir", Path: dir, Err: err}
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || !pageFilePattern.MatchString(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			return &FilesystemError{Op: "remove", Path: path, Err: err}
		}
	}
	return nil
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
	}
	return nil
}

// writeFile creates or truncates path and passes it to render.
func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return &FilesystemError{Op: "create", Path: path, Err: err}
	}

	if err := render(f); err != nil {
		_ = f.Close()
		return &FilesystemError{Op: "write", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &FilesystemError{Op: "close", Path: path, Err: err}
	}
	return nil
}
