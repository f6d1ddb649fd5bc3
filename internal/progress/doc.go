// Package progress exposes machine-readable counters for the crawl,
// download, and decode stages. Engines increment the shared Tracker; the
// presentation layer decides what to do with snapshots. The engines never
// render anything themselves.
package progress
