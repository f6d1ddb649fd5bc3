// Package database persists mirror run history in a local SQLite file:
// per-root run summaries with their full JSON reports, and the accumulated
// corrupt-file listing that re-runs consult.
package database
