// Package pipeline sequences the mirror stages for one root URL: crawl the
// listing tree, download what the crawl found, then decode the compressed
// sidecars. Each stage mutates the shared report; the pipeline stops on the
// first fatal error unless configured to continue.
package pipeline
