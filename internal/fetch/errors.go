package fetch

import (
	"errors"
	"net/http"
)

// Transport errors. Sentinels let callers use errors.Is to separate
// retryable conditions from permanent ones.
var (
	// ErrServerError is returned for 5xx responses. Retryable: fastdl
	// hosts routinely throw 502/503 under load.
	ErrServerError = errors.New("fetch: server error")

	// ErrTooManyRequests is returned for 429 responses. Retryable after
	// backing off.
	ErrTooManyRequests = errors.New("fetch: rate limited")

	// ErrNotFound is returned for 404 responses. Not retryable: the file
	// is gone and no amount of waiting brings it back.
	ErrNotFound = errors.New("fetch: resource not found")

	// ErrForbidden is returned for 403 responses. Not retryable.
	ErrForbidden = errors.New("fetch: access forbidden")

	// ErrUnexpectedStatus is returned for any other non-2xx response.
	ErrUnexpectedStatus = errors.New("fetch: unexpected status code")
)

// Retryable reports whether the error is worth retrying. Connection errors
// and timeouts (anything that is not one of our permanent sentinels) are
// treated as transient, matching the original tool's assumption that the
// host is flaky rather than hostile.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnexpectedStatus):
		return false
	}
	return true
}

// checkStatusCode maps a non-success status code to a sentinel error.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusTooManyRequests:
		return ErrTooManyRequests
	case code >= 500:
		return ErrServerError
	default:
		return ErrUnexpectedStatus
	}
}
