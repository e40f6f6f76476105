package fetcher

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"strings"
)

// Fetcher retrieves the content of a single URL.
// Implementations must apply a per-request timeout and perform at most one
// attempt per call.
type Fetcher interface {
	// Fetch returns the page content or a *FetchError.
	Fetch(ctx context.Context, url string) (*Content, error)
}

// Content is the raw result of a successful fetch.
type Content struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP status code of the response.
	StatusCode int

	// ContentType is the media type of the response, e.g. "text/html; charset=utf-8".
	ContentType string

	// Body is the response body decoded to UTF-8 for text content.
	Body []byte

	// Title is the document title when the fetcher can read it directly
	// (the browser fetcher does). Empty otherwise.
	Title string
}

// IsHTML reports whether the content type is HTML or XHTML.
// An empty content type is treated as HTML.
func (c *Content) IsHTML() bool {
	mediaType := c.MediaType()
	return mediaType == "" || mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// MediaType returns the lower-case media type without parameters.
func (c *Content) MediaType() string {
	if c.ContentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(c.ContentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(strings.Split(c.ContentType, ";")[0]))
	}
	return mediaType
}

// Kind classifies a fetch failure.
type Kind int

const (
	// KindNetwork is a connection, DNS, or transport failure.
	KindNetwork Kind = iota

	// KindTimeout means the per-request timeout elapsed.
	KindTimeout

	// KindHTTP means the server answered with a status code >= 400.
	KindHTTP

	// KindRender means the headless browser could not render the page.
	KindRender
)

// String returns the kind name used in logs and the index file.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network error"
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http error"
	case KindRender:
		return "render error"
	default:
		return "unknown"
	}
}

// FetchError describes a failed fetch.
type FetchError struct {
	// Kind is the failure class.
	Kind Kind

	// URL is the URL that was requested.
	URL string

	// StatusCode is set for KindHTTP.
	StatusCode int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindHTTP:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
	default:
		return fmt.Sprintf("fetch %s: %s", e.URL, e.Kind)
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a *FetchError in err's chain.
// The second result is false if err is not a fetch error.
func KindOf(err error) (Kind, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

// classify maps a transport error to a FetchError.
func classify(url string, err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: KindTimeout, URL: url, Err: err}
	}
	return &FetchError{Kind: KindNetwork, URL: url, Err: err}
}
