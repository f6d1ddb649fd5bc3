// Package download mirrors the crawl's discovered URLs to local storage,
// one bounded-pool worker per URL, retrying transient failures with
// exponential backoff. Remote path hierarchies are reproduced verbatim
// under the local root.
package download
