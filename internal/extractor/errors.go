package extractor

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedContent is returned for content types that cannot be
	// converted to markdown.
	ErrUnsupportedContent = errors.New("unsupported content type")

	// ErrParse is returned when the document cannot be parsed.
	ErrParse = errors.New("failed to parse document")

	// ErrNilContent is returned when Extract is called without content.
	ErrNilContent = errors.New("content is nil")
)

// ExtractionError describes a failed extraction.
type ExtractionError struct {
	// URL is the page URL.
	URL string

	// ContentType is the declared content type.
	ContentType string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	if e.ContentType != "" {
		return fmt.Sprintf("extract %s (%s): %v", e.URL, e.ContentType, e.Err)
	}
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying error.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}
