package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/ovY9jkhTEUpllGPJRrKU/CSS-GFL-ZE-Downloader/internal/model"
)

// MirrorDB provides SQLite-based storage for mirror run history.
// It manages connection pooling and provides methods for saving and
// querying past runs.
//
// Design decision: We use a single database file for all roots rather than
// one file per mirror host. This keeps the history command simple and makes
// backup/restore a single-file operation.
type MirrorDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures MirrorDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a MirrorDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*MirrorDB, error) {
	dbPath := filepath.Join(dbDir, "fastdl.db")

	// Check if we should create the database or require it to exist
	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Build connection string
	// modernc.org/sqlite uses mode=rw to prevent creating new files and
	// mode=rwc to allow creation.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; a single pooled connection avoids
	// writer contention entirely.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	mdb := &MirrorDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := mdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return mdb, nil
}

// Close closes the database connection.
func (mdb *MirrorDB) Close() error {
	return mdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (mdb *MirrorDB) createTables() error {
	schema := `
	-- Runs store one row per mirrored root per invocation
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		pages_visited INTEGER DEFAULT 0,
		links_found INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		decoded INTEGER DEFAULT 0,
		corrupt_count INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_root ON runs(root_url);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Corrupt files persist across runs so re-runs can skip known-bad archives
	CREATE TABLE IF NOT EXISTS corrupt_files (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL,
		path TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(run_id) REFERENCES runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_corrupt_run ON corrupt_files(run_id);
	CREATE INDEX IF NOT EXISTS idx_corrupt_path ON corrupt_files(path);
	`

	_, err := mdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRunReport saves a completed run, including its corrupt-file listing.
func (mdb *MirrorDB) SaveRunReport(ctx context.Context, report *model.MirrorReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	query := `
	INSERT INTO runs (root_url, pages_visited, links_found, downloaded, decoded, corrupt_count, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := mdb.db.ExecContext(ctx, query,
		report.RootURL,
		report.PagesVisited,
		len(report.DownloadLinks),
		report.Downloaded,
		report.Decoded,
		len(report.CorruptFiles),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run report: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, p := range report.CorruptFiles {
		if _, err := mdb.db.ExecContext(ctx,
			"INSERT INTO corrupt_files (run_id, path) VALUES (?, ?)",
			runID, p,
		); err != nil {
			return runID, fmt.Errorf("failed to save corrupt file %s: %w", p, err)
		}
	}

	return runID, nil
}

// GetLatestRunReport retrieves the most recent run report for a root URL.
// Returns nil without error when no run exists.
func (mdb *MirrorDB) GetLatestRunReport(ctx context.Context, rootURL string) (*model.MirrorReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE root_url = ?
	ORDER BY timestamp DESC
	LIMIT 1
	`

	var reportJSON string
	err := mdb.db.QueryRowContext(ctx, query, rootURL).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// RunMetadata contains summary information about one stored run.
// This is used for displaying run history without loading the full report.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// RootURL is the mirrored directory-listing root.
	RootURL string

	// Timestamp is when the run was recorded.
	Timestamp time.Time

	// PagesVisited, LinksFound, Downloaded, Decoded and CorruptCount are
	// the per-stage counters of the run.
	PagesVisited int
	LinksFound   int
	Downloaded   int
	Decoded      int
	CorruptCount int
}

// ListRuns retrieves run metadata, newest first. An empty rootURL lists
// runs for every root.
func (mdb *MirrorDB) ListRuns(ctx context.Context, rootURL string) ([]RunMetadata, error) {
	query := `
	SELECT id, root_url, timestamp, pages_visited, links_found, downloaded, decoded, corrupt_count
	FROM runs
	WHERE 1=1
	`
	args := make([]interface{}, 0)

	if rootURL != "" {
		query += " AND root_url = ?"
		args = append(args, rootURL)
	}

	query += " ORDER BY timestamp DESC"

	rows, err := mdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp string

		if err := rows.Scan(
			&meta.ID,
			&meta.RootURL,
			&timestamp,
			&meta.PagesVisited,
			&meta.LinksFound,
			&meta.Downloaded,
			&meta.Decoded,
			&meta.CorruptCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		results = append(results, meta)
	}

	return results, rows.Err()
}

// GetRunReportByID retrieves a run report by its database ID.
// Returns nil without error when the ID does not exist.
func (mdb *MirrorDB) GetRunReportByID(ctx context.Context, id int64) (*model.MirrorReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE id = ?
	`

	var reportJSON string
	err := mdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run report: %w", err)
	}

	var report model.MirrorReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// KnownCorruptPaths returns every corrupt file path ever recorded, sorted.
// Re-runs use this to avoid re-decoding archives already known to be bad.
func (mdb *MirrorDB) KnownCorruptPaths(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT path FROM corrupt_files
	ORDER BY path
	`

	rows, err := mdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list corrupt files: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan corrupt file: %w", err)
		}
		paths = append(paths, p)
	}

	return paths, rows.Err()
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// SQLite may return timestamps in different formats depending on configuration.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
