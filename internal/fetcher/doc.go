// Package fetcher retrieves raw page content for the crawler.
//
// # Implementations
//
//   - HTTPFetcher: plain net/http GET with charset decoding
//   - BrowserFetcher: headless Chromium via chromedp for pages that need
//     JavaScript to render
//
// Both satisfy the Fetcher interface, so the crawler and the commands can
// switch between them without knowing which one is in use.
//
// # Errors
//
// Every failure is a *FetchError with one of four kinds: KindTimeout,
// KindNetwork, KindHTTP (status >= 400), or KindRender. A fetcher makes at
// most one attempt per call; retrying is left to the caller.
//
// # Usage
//
//	f := fetcher.NewHTTPFetcher(http.DefaultClient, fetcher.WithTimeout(30*time.Second))
//	content, err := f.Fetch(ctx, "https://example.com/docs/")
package fetcher
