// Package fetch provides the HTTP client used by the crawler and downloader.
//
// It wraps net/http with the three request shapes a mirror run needs:
// GetListing for directory-index pages, Probe (HEAD) for canonicalizing
// links before classification, and Get for streaming file bodies. Status
// codes are mapped to sentinel errors so callers can distinguish transient
// host trouble (retry) from permanent failures (give up) with errors.Is.
package fetch
