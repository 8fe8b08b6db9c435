package config

import "errors"

// Configuration validation errors returned by Config.Validate.
//
// Design decision: package-level sentinel errors rather than errors
// created inside Validate, so callers can use errors.Is for
// programmatic handling while the messages stay human-readable.
var (
	// ErrNoIndexURL is returned when the index endpoint URL is empty.
	ErrNoIndexURL = errors.New("no index endpoint: provide --index-url or set it in the config file")

	// ErrNoDetailURL is returned when detail lookup is requested but no
	// detail endpoint URL is configured.
	ErrNoDetailURL = errors.New("no detail endpoint: --details requires --detail-url or a config file value")

	// ErrInvalidPageSize is returned when the page size is not positive.
	ErrInvalidPageSize = errors.New("invalid page size: must be positive")

	// ErrInvalidMaxRetries is returned when the retry ceiling is negative.
	// Zero is valid and means a single attempt per page.
	ErrInvalidMaxRetries = errors.New("invalid max retries: must be non-negative")

	// ErrInvalidBackoff is returned when the backoff base is not positive.
	ErrInvalidBackoff = errors.New("invalid backoff base: must be positive")

	// ErrInvalidTimeout is returned when the request timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidRateLimit is returned when the request rate cap is negative.
	// Zero is valid and disables the politeness limiter.
	ErrInvalidRateLimit = errors.New("invalid request rate: must be non-negative")

	// ErrInvalidConcurrency is returned when the detail lookup
	// concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
