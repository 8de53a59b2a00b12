// Package storage provides data persistence functionality for the crawler.
// It implements a SQLite journal of crawl runs: the pages each run
// processed, the pages it skipped and how it ended.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masahif/sitedigest/internal/crawler"
	// SQLite database driver (CGO-free)
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned when a run or domain has no archived run.
var ErrRunNotFound = errors.New("run not found")

// ErrSchemaVersion is returned when the database was written by an
// incompatible version.
var ErrSchemaVersion = errors.New("unsupported archive schema version")

// Run is an archived crawl run.
type Run struct {
	ID         int64
	Domain     string
	SeedURL    string
	PageBudget int
	StartedAt  time.Time

	// Set once the run has finished.
	Finished       bool
	FinishedAt     time.Time
	Completion     string
	PagesProcessed int
	Failures       int
	Discovered     int
	ReportPath     string
}

// SQLiteStorage implements crawler.Archive using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

var _ crawler.Archive = (*SQLiteStorage)(nil)

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool - single connection prevents lock conflicts
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	storage := &SQLiteStorage{db: db}

	if err := storage.InitSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return storage, nil
}

// InitSchema creates the database schema and checks its version
func (s *SQLiteStorage) InitSchema() error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 30000", // 30 second timeout for locks
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	version, err := s.GetMeta("schema_version")
	if err != nil {
		return err
	}
	switch version {
	case "":
		return s.SetMeta("schema_version", schemaVersion)
	case schemaVersion:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrSchemaVersion, version)
	}
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// StartRun records the start of a crawl and returns its run ID
func (s *SQLiteStorage) StartRun(domain, seedURL string, pageBudget int) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO runs (domain, seed_url, page_budget, started_at)
		VALUES (?, ?, ?, ?)
	`, domain, seedURL, pageBudget, formatTime(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to start run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run ID: %w", err)
	}
	return id, nil
}

// SavePage stores the seq-th processed page of a run
func (s *SQLiteStorage) SavePage(runID int64, seq int, record crawler.PageRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO pages (run_id, seq, url, title, text, status_code, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, seq, record.URL, record.Title, record.Text, record.StatusCode, formatTime(record.FetchedAt))
	if err != nil {
		return fmt.Errorf("failed to save page %s: %w", record.URL, err)
	}
	return nil
}

// SaveFailure saves crawl error details
func (s *SQLiteStorage) SaveFailure(runID int64, failure *crawler.Failure) error {
	_, err := s.db.Exec(`
		INSERT INTO crawl_errors (
			run_id, url, error_type, error_message, status_code, occurred_at
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		runID,
		failure.URL,
		failure.Kind,
		failure.Message,
		failure.StatusCode,
		formatTime(failure.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save error: %w", err)
	}
	return nil
}

// FinishRun stores the run summary
func (s *SQLiteStorage) FinishRun(runID int64, result *crawler.Result) error {
	res, err := s.db.Exec(`
		UPDATE runs SET
			finished_at = ?,
			completion = ?,
			pages_processed = ?,
			failures = ?,
			discovered = ?,
			report_path = ?
		WHERE id = ?
	`,
		formatTime(result.StartedAt.Add(result.Duration)),
		result.Completion.String(),
		result.PagesProcessed,
		result.Failures,
		result.Discovered,
		result.ReportPath,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	return nil
}

// LatestRunID returns the most recent run for domain
func (s *SQLiteStorage) LatestRunID(domain string) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		SELECT id FROM runs WHERE domain = ? ORDER BY id DESC LIMIT 1
	`, domain).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: no runs for %s", ErrRunNotFound, domain)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query latest run: %w", err)
	}
	return id, nil
}

// LoadRun returns the run with the given ID
func (s *SQLiteStorage) LoadRun(runID int64) (*Run, error) {
	var (
		run        Run
		startedAt  string
		finishedAt sql.NullString
		completion sql.NullString
		pages      sql.NullInt64
		failures   sql.NullInt64
		discovered sql.NullInt64
		reportPath sql.NullString
	)

	err := s.db.QueryRow(`
		SELECT id, domain, seed_url, page_budget, started_at,
			finished_at, completion, pages_processed, failures, discovered, report_path
		FROM runs WHERE id = ?
	`, runID).Scan(
		&run.ID, &run.Domain, &run.SeedURL, &run.PageBudget, &startedAt,
		&finishedAt, &completion, &pages, &failures, &discovered, &reportPath,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run: %w", err)
	}

	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		run.Finished = true
		if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
			return nil, err
		}
		run.Completion = completion.String
		run.PagesProcessed = int(pages.Int64)
		run.Failures = int(failures.Int64)
		run.Discovered = int(discovered.Int64)
		run.ReportPath = reportPath.String
	}

	return &run, nil
}

// LoadPages returns the pages of a run in crawl order
func (s *SQLiteStorage) LoadPages(runID int64) ([]crawler.PageRecord, error) {
	rows, err := s.db.Query(`
		SELECT url, title, text, status_code, fetched_at
		FROM pages WHERE run_id = ? ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []crawler.PageRecord{}
	for rows.Next() {
		var (
			record    crawler.PageRecord
			fetchedAt string
		)
		if err := rows.Scan(&record.URL, &record.Title, &record.Text, &record.StatusCode, &fetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		if record.FetchedAt, err = parseTime(fetchedAt); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pages: %w", err)
	}

	return records, nil
}

// LoadFailures returns the failures of a run in the order they occurred
func (s *SQLiteStorage) LoadFailures(runID int64) ([]crawler.Failure, error) {
	rows, err := s.db.Query(`
		SELECT url, error_type, error_message, status_code, occurred_at
		FROM crawl_errors WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var failures []crawler.Failure
	for rows.Next() {
		var (
			f          crawler.Failure
			message    sql.NullString
			occurredAt string
		)
		if err := rows.Scan(&f.URL, &f.Kind, &message, &f.StatusCode, &occurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}
		f.Message = message.String
		if f.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read errors: %w", err)
	}

	return failures, nil
}

// GetMeta retrieves a metadata value
func (s *SQLiteStorage) GetMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM crawl_meta WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get meta: %w", err)
	}
	return value, nil
}

// SetMeta stores a metadata value
func (s *SQLiteStorage) SetMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO crawl_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set meta: %w", err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
	}
	return t, nil
}
