package fetcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher renders pages in a shared headless Chromium instance.
// Each Fetch opens its own tab, so it is safe for concurrent use.
// Call Close to shut the browser down.
type BrowserFetcher struct {
	// timeout bounds navigation and content capture for one page.
	timeout time.Duration

	// settle is an extra wait after the body is ready, for client-side rendering.
	settle time.Duration

	// userAgent overrides the browser User-Agent when set.
	userAgent string

	// execPath points at a specific Chrome binary when set.
	execPath string

	// headers are sent with every navigation.
	headers map[string]string

	mu            sync.Mutex
	started       bool
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

// BrowserOption configures a BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithBrowserTimeout sets the per-page timeout.
func WithBrowserTimeout(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithSettleTime waits the given duration after the body is ready.
func WithSettleTime(d time.Duration) BrowserOption {
	return func(b *BrowserFetcher) {
		b.settle = d
	}
}

// WithBrowserUserAgent sets the browser User-Agent.
func WithBrowserUserAgent(ua string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.userAgent = ua
	}
}

// WithExecPath sets the Chrome executable path.
func WithExecPath(path string) BrowserOption {
	return func(b *BrowserFetcher) {
		b.execPath = path
	}
}

// WithBrowserHeaders adds extra HTTP headers to every navigation.
// A "Cookie" entry is sent like any other header.
func WithBrowserHeaders(headers map[string]string) BrowserOption {
	return func(b *BrowserFetcher) {
		for k, v := range headers {
			b.headers[k] = v
		}
	}
}

// NewBrowserFetcher creates a browser fetcher. The browser is launched
// lazily on the first Fetch.
func NewBrowserFetcher(opts ...BrowserOption) *BrowserFetcher {
	b := &BrowserFetcher{
		timeout: DefaultTimeout,
		headers: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// start launches the browser once.
func (b *BrowserFetcher) start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if b.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.userAgent))
	}
	if b.execPath != "" {
		opts = append(opts, chromedp.ExecPath(b.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running with no actions starts the browser process.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return fmt.Errorf("failed to start browser: %w", err)
	}

	b.allocCancel = allocCancel
	b.browserCtx = browserCtx
	b.browserCancel = browserCancel
	b.started = true
	return nil
}

// Fetch navigates to rawURL in a new tab and returns the rendered HTML.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*Content, error) {
	if err := b.start(); err != nil {
		return nil, &FetchError{Kind: KindRender, URL: rawURL, Err: err}
	}

	tabCtx, cancel := chromedp.NewContext(b.browserCtx)
	defer cancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(tabCtx, b.timeout)
	defer timeoutCancel()

	// The tab derives from the browser context, so tie it to the caller too.
	stop := context.AfterFunc(ctx, timeoutCancel)
	defer stop()

	if len(b.headers) > 0 {
		h := make(network.Headers, len(b.headers))
		for k, v := range b.headers {
			h[k] = v
		}
		if err := chromedp.Run(timeoutCtx, network.Enable(), network.SetExtraHTTPHeaders(h)); err != nil {
			return nil, b.renderError(rawURL, err)
		}
	}

	resp, err := chromedp.RunResponse(timeoutCtx, chromedp.Navigate(rawURL))
	if err != nil {
		return nil, b.renderError(rawURL, err)
	}

	status := 200
	contentType := "text/html"
	if resp != nil {
		status = int(resp.Status)
		if resp.MimeType != "" {
			contentType = resp.MimeType
		}
	}
	if status >= 400 {
		return nil, &FetchError{Kind: KindHTTP, URL: rawURL, StatusCode: status}
	}

	tasks := []chromedp.Action{chromedp.WaitReady("body", chromedp.ByQuery)}
	if b.settle > 0 {
		tasks = append(tasks, chromedp.Sleep(b.settle))
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, b.renderError(rawURL, err)
	}

	var (
		title    string
		html     string
		location string
	)
	if err := chromedp.Run(timeoutCtx,
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	); err != nil {
		return nil, b.renderError(rawURL, err)
	}
	if location == "" {
		location = rawURL
	}

	return &Content{
		URL:         location,
		StatusCode:  status,
		ContentType: contentType,
		Body:        []byte(html),
		Title:       strings.TrimSpace(title),
	}, nil
}

// renderError classifies a chromedp failure.
func (b *BrowserFetcher) renderError(rawURL string, err error) *FetchError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Kind: KindTimeout, URL: rawURL, Err: err}
	case strings.Contains(err.Error(), "net::ERR_"):
		return &FetchError{Kind: KindNetwork, URL: rawURL, Err: err}
	default:
		return &FetchError{Kind: KindRender, URL: rawURL, Err: err}
	}
}

// Close shuts down the browser. It is safe to call more than once.
func (b *BrowserFetcher) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}
	b.browserCancel()
	b.allocCancel()
	b.started = false
	return nil
}
