// Package log provides structured logging helpers for the fastdl mirror tool.
//
// It wraps log/slog with a RedactHandler that masks credentials before they
// reach the output: attribute values under sensitive keys (authorization,
// cookie, token, ...) and the userinfo component of URL-shaped values.
// Mirror operators routinely paste listing URLs into terminals and bug
// reports, so the logging layer is the right place to enforce this.
package log
