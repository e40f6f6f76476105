// Package model defines the core data structures shared by mdcrawl packages.
//
// This package contains the following main types:
//   - CrawlTarget: A URL scheduled for crawling at a given depth
//   - PageResult: The outcome of fetching and extracting one page
//   - Markdown: The extracted markdown with its fallback rendering
//   - Session: The aggregate state of one crawl from seed to index
//
// The crawler, report, pipeline, and database packages all depend on these
// types, so they live in their own package to avoid import cycles.
package model
