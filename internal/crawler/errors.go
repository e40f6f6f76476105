package crawler

import "errors"

// Reasons a URL is not admitted to the frontier. None of them count as a
// page failure.
var (
	// ErrDuplicate means the URL was already admitted.
	ErrDuplicate = errors.New("url already seen")

	// ErrTooDeep means the link depth exceeds the configured maximum.
	ErrTooDeep = errors.New("depth exceeds limit")

	// ErrLimitExceeded means the page budget is used up. This is the normal
	// way a large crawl stops.
	ErrLimitExceeded = errors.New("page limit reached")

	// ErrExternal means the URL belongs to another host and external links
	// are not followed.
	ErrExternal = errors.New("url outside crawl scope")

	// ErrFiltered means the URL path matched an ignore pattern or none of
	// the follow patterns.
	ErrFiltered = errors.New("url excluded by path patterns")

	// ErrDisallowed means robots.txt disallows the URL.
	ErrDisallowed = errors.New("url disallowed by robots.txt")

	// ErrInvalidURL means the URL could not be parsed or is not http(s).
	ErrInvalidURL = errors.New("invalid url")
)
