// Package report writes crawl results.
//
// SiteWriter persists a finalized session as one markdown file per page
// plus an index.md under a per-site directory. IndexWriter, PageWriter and
// SummaryWriter render the individual documents and the terminal summary;
// HistoryWriter renders recorded crawls as a table.
//
// Writers that render a whole session implement the Writer interface and
// can be composed with MultiWriter.
package report
