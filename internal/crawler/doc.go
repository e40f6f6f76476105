// Package crawler implements breadth-first site crawling.
//
// # Components
//
//   - Frontier: the visited set, per-depth queues and the admission counter.
//     Offer is one atomic check-and-insert, so a URL discovered by several
//     workers at once is admitted exactly once.
//   - Spider: dispatches targets level by level to a bounded worker pool
//     (errgroup with SetLimit), applying the politeness delay between
//     dispatches.
//   - Assembler: collects results from the workers and orders them by
//     (depth, URL) at the end of the crawl.
//   - PathFilter and Robots: path glob patterns and robots.txt rules used by
//     the frontier to reject links.
//
// # Bounds
//
// No page deeper than the max depth is dispatched, and no more than max
// pages URLs are ever admitted. Running into the page limit is how a large
// crawl normally ends and is not an error.
//
// # Cancellation
//
// Cancelling the context stops new dispatches immediately. Pages already in
// flight finish under their own timeout and are included in the session.
//
// # Usage
//
//	spider := crawler.NewSpider(fetcher.NewHTTPFetcher(nil),
//		crawler.WithMaxDepth(2),
//		crawler.WithMaxPages(100),
//	)
//	session, err := spider.Crawl(ctx, "https://example.com/docs/")
package crawler
