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

	"github.com/crawlscope/crawlscope/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl run history.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all seeds rather
// than separate files per site. This simplifies cross-run queries and
// backup/restore operations.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
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

// Open opens or creates a CrawlDB at the specified path.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "crawlscope.db")

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

	// SQLite only supports one writer, so a single connection avoids
	// lock contention between goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- Runs store one row per completed or interrupted crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		authority TEXT NOT NULL,
		max_depth INTEGER NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		interrupted INTEGER DEFAULT 0,
		urls_found INTEGER DEFAULT 0,
		pages_crawled INTEGER DEFAULT 0,
		fetch_errors INTEGER DEFAULT 0,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	-- Pages store individual fetch results per run
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		title TEXT,
		content_hash TEXT,
		links INTEGER DEFAULT 0,
		error TEXT,
		fetched_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawlReport persists a complete crawl run and its page results.
// The full report is stored as JSON alongside queryable summary columns.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	result, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, authority, max_depth, started_at, finished_at, interrupted, urls_found, pages_crawled, fetch_errors, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Seed,
		report.Authority,
		report.MaxDepth,
		report.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		report.FinishedAt.UTC().Format("2006-01-02 15:04:05"),
		boolToInt(report.Interrupted),
		len(report.Found),
		report.PagesCrawled,
		report.FetchErrors,
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	for _, page := range report.Pages {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO pages (run_id, url, depth, status_code, content_type, title, content_hash, links, error, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			runID,
			page.URL,
			page.Depth,
			page.StatusCode,
			page.ContentType,
			page.Title,
			page.Hash,
			page.Links,
			page.Error,
			page.FetchedAt.UTC().Format("2006-01-02 15:04:05"),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert page record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}

	return runID, nil
}

// GetLatestRun retrieves the most recent crawl report for a seed.
// Returns nil without error when no run exists.
func (cdb *CrawlDB) GetLatestRun(ctx context.Context, seed string) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, seed).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// GetRunHistory retrieves all crawl reports for a seed, most recent first.
func (cdb *CrawlDB) GetRunHistory(ctx context.Context, seed string) ([]*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get run history: %w", err)
	}
	defer rows.Close()

	var reports []*model.CrawlReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}

		var report model.CrawlReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}

	return reports, rows.Err()
}

// GetRunByID retrieves a crawl report by its database ID.
// Returns nil without error when the run does not exist.
func (cdb *CrawlDB) GetRunByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	query := `
	SELECT report_json FROM runs
	WHERE id = ?
	`

	var reportJSON string
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(&reportJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var report model.CrawlReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	return &report, nil
}

// ListSeeds returns all distinct seed URLs that have stored runs.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT seed FROM runs
	ORDER BY seed
	`

	rows, err := cdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// RunMetadata contains summary information about a stored crawl run.
// This is used for displaying history without loading full reports.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Seed is the normalized seed URL the run started from.
	Seed string

	// StartedAt is when the crawl started.
	StartedAt time.Time

	// Interrupted reports whether the run was cancelled before completion.
	Interrupted bool

	// URLsFound is the number of URLs discovered by the run.
	URLsFound int

	// PagesCrawled is the number of fetch attempts made by the run.
	PagesCrawled int

	// FetchErrors is the number of failed fetch attempts.
	FetchErrors int
}

// ListRunMetadata retrieves run summaries for a seed, most recent first.
// This is more efficient than GetRunHistory when only metadata is needed.
func (cdb *CrawlDB) ListRunMetadata(ctx context.Context, seed string) ([]RunMetadata, error) {
	query := `
	SELECT id, seed, started_at, interrupted, urls_found, pages_crawled, fetch_errors
	FROM runs
	WHERE seed = ?
	ORDER BY started_at DESC, id DESC
	`

	rows, err := cdb.db.QueryContext(ctx, query, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var started string
		var interrupted int

		if err := rows.Scan(&meta.ID, &meta.Seed, &started, &interrupted, &meta.URLsFound, &meta.PagesCrawled, &meta.FetchErrors); err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.StartedAt = parseTimestamp(started)
		meta.Interrupted = interrupted != 0

		results = append(results, meta)
	}

	return results, rows.Err()
}

// boolToInt converts a bool to the 0/1 representation SQLite stores.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
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
