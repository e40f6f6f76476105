package report

import (
	"errors"
	"fmt"
)

// ErrPathEscape is returned when a computed output path would land outside
// the output root.
var ErrPathEscape = errors.New("path escapes output directory")

// FilesystemError is a failure to create a directory or write a file.
type FilesystemError struct {
	// Op is the operation that failed, such as "mkdir" or "write".
	Op string

	// Path is the file or directory involved.
	Path string

	// Err is the underlying error.
	Err error
}

// Error returns the error message.
func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FilesystemError) Unwrap() error {
	return e.Err
}
