package report

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxFilenameLen is the byte limit of a sanitized name, before the
// ordinal prefix and the ".md" suffix are added.
const maxFilenameLen = 100

// SanitizeFilename converts the path of rawURL into a safe file name
// without extension. The query and fragment are ignored.
//
// The path is trimmed of slashes, inner slashes become underscores, and an
// empty path becomes "index". The result is NFKC normalized, then every
// byte outside [A-Za-z0-9_.-] is replaced by one underscore per rune.
// Leading dots are dropped so the file is never hidden and never "..".
func SanitizeFilename(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}

	path = strings.ReplaceAll(strings.Trim(path, "/"), "/", "_")
	path = norm.NFKC.String(path)

	var sb strings.Builder
	for _, r := range path {
		if isSafeRune(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}

	name := strings.TrimLeft(sb.String(), ".")
	if name == "" {
		name = "index"
	}
	if len(name) > maxFilenameLen {
		name = name[:maxFilenameLen]
	}
	return name
}

func isSafeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_', r == '-', r == '.':
		return true
	default:
		return false
	}
}

// AuthorityDir returns the directory name for the host of rawURL, with
// ":" replaced by "_" so ports are kept on every platform. The host is
// lower-cased and the scheme's default port dropped, so every spelling of
// a seed maps to the directory of its crawled pages.
func AuthorityDir(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%s has no host: %w", rawURL, ErrPathEscape)
	}

	host := strings.ToLower(u.Host)
	scheme := strings.ToLower(u.Scheme)
	switch {
	case scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	return strings.ReplaceAll(host, ":", "_"), nil
}

// within joins root and the given elements and verifies that the result
// is still inside root.
func within(root string, elem ...string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &FilesystemError{Op: "resolve", Path: root, Err: err}
	}

	target := filepath.Join(append([]string{absRoot}, elem...)...)
	rel, err := filepath.Rel(absRoot, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", filepath.Join(elem...), ErrPathEscape)
	}
	return filepath.Join(append([]string{root}, elem...)...), nil
}
