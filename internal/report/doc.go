// Package report renders mirror run results as terminal text, JSON, or
// Markdown. All writers implement the same Writer interface, so the command
// layer can combine destinations with MultiWriter.
package report
