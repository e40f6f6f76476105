// Package main provides the entry point for the mdcrawl CLI.
//
// mdcrawl crawls documentation sites and saves every page as a markdown
// file, together with an index of the crawl.
//
// Usage:
//
//	mdcrawl page <url>
//	mdcrawl site <url>... --depth 3 --max-pages 50
//
// See --help for all available options.
package main

// main is the entry point for mdcrawl.
func main() {
	Execute()
}
