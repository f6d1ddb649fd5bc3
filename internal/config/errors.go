package config

import "errors"

// Configuration validation errors.
//
// Design decision: We use package-level sentinel errors rather than creating
// new error instances in Validate(). Callers can use errors.Is() for
// programmatic handling while the messages stay human-readable.
var (
	// ErrNoRootURL is returned when no root listing URL is provided.
	ErrNoRootURL = errors.New("no root URL specified: provide one or more fastdl listing URLs")

	// ErrInvalidTimeout is returned when a timeout is out of range.
	// The listing timeout must be positive; the download timeout may be
	// zero (no timeout) but never negative.
	ErrInvalidTimeout = errors.New("invalid timeout: listing timeout must be positive, download timeout non-negative")

	// ErrInvalidConcurrency is returned when the worker-pool size is not
	// positive. A pool of zero workers would never make progress.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidRetryAttempts is returned when the retry budget is
	// negative. Use 0 to retry forever.
	ErrInvalidRetryAttempts = errors.New("invalid retry attempts: must be non-negative (0 retries forever)")

	// ErrInvalidRetryInterval is returned when the retry backoff bounds
	// are inconsistent.
	ErrInvalidRetryInterval = errors.New("invalid retry interval: initial must be positive and not exceed the maximum")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidSidecarSuffix is returned when the sidecar suffix is empty.
	// An empty suffix would match every file in the tree.
	ErrInvalidSidecarSuffix = errors.New("invalid sidecar suffix: must not be empty")
)
