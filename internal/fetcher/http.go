package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

const (
	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the maximum number of body bytes read (10 MiB).
	DefaultMaxBodySize int64 = 10 << 20

	// DefaultUserAgent is sent when no other User-Agent is configured.
	DefaultUserAgent = "mdcrawl/1.0 (+https://github.com/nao1215/mdcrawl)"
)

// HTTPFetcher fetches pages with a plain HTTP GET.
type HTTPFetcher struct {
	// client performs the requests.
	client *http.Client

	// timeout bounds each request, including reading the body.
	timeout time.Duration

	// maxBodySize caps how many bytes are read from a response.
	maxBodySize int64

	// userAgent is the User-Agent header value.
	userAgent string

	// headers are added to every request.
	headers map[string]string

	// cookie is sent as the Cookie header when non-empty.
	cookie string
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithMaxBodySize sets the body size limit in bytes.
func WithMaxBodySize(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBodySize = n
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithHeaders adds custom request headers.
func WithHeaders(headers map[string]string) HTTPOption {
	return func(f *HTTPFetcher) {
		for k, v := range headers {
			f.headers[k] = v
		}
	}
}

// WithCookie sets the Cookie header.
func WithCookie(cookie string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.cookie = cookie
	}
}

// NewHTTPFetcher creates an HTTP fetcher. A nil client means http.DefaultClient.
func NewHTTPFetcher(client *http.Client, opts ...HTTPOption) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	f := &HTTPFetcher{
		client:      client,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		userAgent:   DefaultUserAgent,
		headers:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch performs a single GET request for rawURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindNetwork, URL: rawURL, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	f.setHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classify(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// Drain a bounded amount so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &FetchError{Kind: KindHTTP, URL: rawURL, StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, classify(rawURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	content := &Content{
		URL:         finalURL,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
	}
	content.Body = decode(raw, content)
	return content, nil
}

// setHeaders applies the configured headers to req.
func (f *HTTPFetcher) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
}

// decode converts text bodies to UTF-8 using the declared or sniffed charset.
// Non-text bodies and bodies that fail to decode are returned unchanged.
func decode(raw []byte, content *Content) []byte {
	mediaType := content.MediaType()
	if !content.IsHTML() && !strings.HasPrefix(mediaType, "text/") {
		return raw
	}
	r, err := charset.NewReader(bytes.NewReader(raw), content.ContentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return decoded
}
