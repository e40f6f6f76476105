// Package database keeps the crawl history in a local SQLite file.
//
// Every finished site crawl is stored as a session row with its counters
// and output paths, plus one row per processed page (successful, failed or
// empty). The history command lists sessions newest first.
//
// The database lives in the XDG data directory by default and uses
// modernc.org/sqlite, so no cgo toolchain is needed.
package database
