// Package pipeline runs one site crawl as a sequence of steps.
//
// A site crawl is crawl → write → record:
//   - CrawlStep selects the fetcher for the seed (HTTP, browser or auto),
//     applies robots.txt when asked, and runs the crawler.Spider
//   - WriteStep writes the pages and index; its failure is fatal
//   - RecordStep stores the session in the crawl history; its failure is
//     only logged
//
// The write and record steps are Finalizers: after cancellation the crawl
// stops dispatching, and whatever was crawled is still written.
//
// BatchProcessor runs one pipeline per seed URL with errgroup, crawling a
// bounded number of sites at the same time.
package pipeline
