// Package model defines the data structures shared across the mirror
// pipeline: the per-root MirrorReport accumulated by the crawl, download,
// and decode stages, and the run-wide CorruptSet of files that failed
// decoding.
//
// The model package has no dependencies on other internal packages, which
// keeps the dependency graph acyclic: engines produce model values, and
// report writers and the history database consume them.
package model
