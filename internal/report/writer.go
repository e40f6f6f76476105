package report

import (
	"io"

	"github.com/nao1215/mdcrawl/internal/model"
)

// Writer renders a finished crawl session to some destination.
type Writer interface {
	// Write outputs the session and returns the number of bytes written.
	Write(session *model.Session) (int, error)
}

// MultiWriter writes a session to several Writers in order.
// A summary on the terminal and an index in a file is the usual pair.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the session to all configured Writers.
// Stops on the first error encountered.
func (m *MultiWriter) Write(session *model.Session) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(session)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
