package crawler

import (
	"path/filepath"
	"strings"
)

// PathFilter decides which URL paths are crawled.
// Ignore patterns win over follow patterns. With no follow patterns every
// path that is not ignored is allowed.
type PathFilter struct {
	// Ignore lists glob patterns for paths to skip, e.g. "/blog/*" or "*.zip".
	Ignore []string

	// Follow lists glob patterns for paths to crawl. Empty allows all.
	Follow []string
}

// Allow reports whether path passes the filter.
func (f PathFilter) Allow(path string) bool {
	if path == "" {
		path = "/"
	}

	for _, pattern := range f.Ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}

	if len(f.Follow) == 0 {
		return true
	}
	for _, pattern := range f.Follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern checks a path against a glob pattern.
//   - "/docs/*" matches "/docs" and everything below it
//   - "*.pdf" matches the extension at any depth
//   - other patterns use filepath.Match, and patterns without a slash are
//     also tried against the last path segment
func matchPattern(pattern, path string) bool {
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}

	if strings.HasPrefix(pattern, "*.") {
		if strings.HasSuffix(path, strings.TrimPrefix(pattern, "*")) {
			return true
		}
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}

	return false
}
