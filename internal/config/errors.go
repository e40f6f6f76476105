package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrNoTarget is returned when no seed URL is given.
	ErrNoTarget = errors.New("no target specified: provide at least one URL")

	// ErrInvalidTarget is returned when a seed is not an absolute http or https URL.
	ErrInvalidTarget = errors.New("invalid target: must be an absolute http or https URL")

	// ErrDuplicateSite is returned when two seeds would be written to the
	// same site directory.
	ErrDuplicateSite = errors.New("duplicate site: seeds share a host and would overwrite each other's output")

	// ErrEmptyOutputDir is returned when the output directory is empty.
	ErrEmptyOutputDir = errors.New("invalid output directory: must not be empty")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrConflictingRenderModes is returned when --render and --auto-render
	// are both given.
	ErrConflictingRenderModes = errors.New("conflicting render modes: --render and --auto-render cannot be used together")

	// ErrConflictingVerbosity is returned when --verbose and --quiet are both given.
	ErrConflictingVerbosity = errors.New("conflicting output modes: --verbose and --quiet cannot be used together")
)
