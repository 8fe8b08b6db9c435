package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/guildwatch/guildwatch/internal/model"
)

// HistoryDB stores completed check runs in a SQLite database so past
// results can be listed and compared without re-fetching the remote
// index.
type HistoryDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in the specified directory.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, "guildwatch.db")

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// modernc.org/sqlite connection string: mode=rw prevents creating
	// new files, mode=rwc allows creation.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite supports only one writer; a single connection avoids
	// SQLITE_BUSY on concurrent saves.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (hdb *HistoryDB) createTables() error {
	schema := `
	-- Check runs store one row per completed check
	CREATE TABLE IF NOT EXISTS check_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		export_path TEXT NOT NULL,
		date_checked DATETIME NOT NULL,
		membership_count INTEGER NOT NULL,
		skipped_records INTEGER NOT NULL DEFAULT 0,
		remote_index_size INTEGER NOT NULL,
		pages_fetched INTEGER NOT NULL,
		match_count INTEGER NOT NULL,
		matches_json TEXT NOT NULL,
		elapsed_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_export ON check_runs(export_path);
	CREATE INDEX IF NOT EXISTS idx_runs_date ON check_runs(date_checked);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// CheckRun is one stored check run.
type CheckRun struct {
	// ID is the database row identifier.
	ID int64

	// ExportPath is the membership export that was checked.
	ExportPath string

	// DateChecked is when the check ran.
	DateChecked time.Time

	// MembershipCount is the number of communities in the export.
	MembershipCount int

	// SkippedRecords counts malformed export records.
	SkippedRecords int

	// RemoteIndexSize is the remote dataset size at fetch time.
	RemoteIndexSize int

	// PagesFetched is the number of index pages retrieved.
	PagesFetched int

	// Matches are the matched communities.
	Matches []model.Match

	// Elapsed is the check's wall-clock duration.
	Elapsed time.Duration
}

// SaveCheckReport stores a completed check report and returns its row ID.
func (hdb *HistoryDB) SaveCheckReport(ctx context.Context, report *model.CheckReport) (int64, error) {
	matchesJSON, err := json.Marshal(report.Matches)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize matches: %w", err)
	}

	query := `
	INSERT INTO check_runs (
		export_path, date_checked, membership_count, skipped_records,
		remote_index_size, pages_fetched, match_count, matches_json, elapsed_ns
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := hdb.db.ExecContext(ctx, query,
		report.ExportPath,
		report.DateChecked.UTC().Format(time.RFC3339Nano),
		report.MembershipCount,
		report.SkippedRecords,
		report.RemoteIndexSize,
		report.PagesFetched,
		report.MatchCount(),
		string(matchesJSON),
		int64(report.Elapsed),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert check run: %w", err)
	}

	return result.LastInsertId()
}

// ListCheckRuns returns the most recent check runs, newest first.
// When exportPath is non-empty, only runs for that export are listed.
// A limit of 0 means no limit.
func (hdb *HistoryDB) ListCheckRuns(ctx context.Context, exportPath string, limit int) ([]CheckRun, error) {
	query := `
	SELECT id, export_path, date_checked, membership_count, skipped_records,
	       remote_index_size, pages_fetched, matches_json, elapsed_ns
	FROM check_runs
	`
	args := []any{}
	if exportPath != "" {
		query += " WHERE export_path = ?"
		args = append(args, exportPath)
	}
	query += " ORDER BY date_checked DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list check runs: %w", err)
	}
	defer rows.Close()

	var runs []CheckRun
	for rows.Next() {
		run, err := scanCheckRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate check runs: %w", err)
	}
	return runs, nil
}

// LatestCheckRun returns the most recent run for the given export, or
// nil when none exists.
func (hdb *HistoryDB) LatestCheckRun(ctx context.Context, exportPath string) (*CheckRun, error) {
	runs, err := hdb.ListCheckRuns(ctx, exportPath, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// scanCheckRun reads one row into a CheckRun.
func scanCheckRun(rows *sql.Rows) (CheckRun, error) {
	var (
		run         CheckRun
		dateRaw     string
		matchesJSON string
		elapsedNS   int64
	)

	err := rows.Scan(
		&run.ID,
		&run.ExportPath,
		&dateRaw,
		&run.MembershipCount,
		&run.SkippedRecords,
		&run.RemoteIndexSize,
		&run.PagesFetched,
		&matchesJSON,
		&elapsedNS,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return run, err
	}
	if err != nil {
		return run, fmt.Errorf("failed to scan check run: %w", err)
	}

	run.DateChecked = parseTimestamp(dateRaw)
	run.Elapsed = time.Duration(elapsedNS)

	if err := json.Unmarshal([]byte(matchesJSON), &run.Matches); err != nil {
		return run, fmt.Errorf("failed to decode matches: %w", err)
	}
	return run, nil
}

// parseTimestamp parses a stored timestamp. SQLite may return different
// formats depending on version and configuration.
func parseTimestamp(raw string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}
