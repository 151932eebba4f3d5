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

	"github.com/nao1215/webrecon/internal/model"
)

// CrawlDB provides SQLite-based storage for crawl runs.
// It manages connection pooling and provides methods for CRUD operations.
//
// Design decision: We use a single database file for all runs rather than
// one file per seed. This keeps cross-run comparison queries in SQL and
// simplifies backup/restore.
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

	// EnableWAL enables Write-Ahead Logging for better concurrent
	// performance. Recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB at the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is
// returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, "webrecon.db")

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

	// modernc.org/sqlite uses mode=rw to refuse creating new files and
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

	// SQLite only supports one writer; a second connection buys nothing
	// for this write-heavy workload.
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
	-- Runs store one row per completed crawl plus the full result as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		termination TEXT NOT NULL,
		incomplete INTEGER DEFAULT 0,
		fetched INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		elapsed_ms INTEGER DEFAULT 0,
		result_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON runs(timestamp);

	-- Pages store per-URL outcomes for cross-run queries
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		depth INTEGER NOT NULL,
		state TEXT NOT NULL,
		status_code INTEGER,
		error_kind TEXT,
		page_type TEXT,
		title TEXT,
		inbound INTEGER DEFAULT 0,
		outbound INTEGER DEFAULT 0,
		score REAL DEFAULT 0,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON pages(run_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);

	-- Edges store the link graph per run
	CREATE TABLE IF NOT EXISTS edges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		target TEXT NOT NULL,
		internal INTEGER NOT NULL,
		UNIQUE(run_id, source, target)
	);

	CREATE INDEX IF NOT EXISTS idx_edges_run ON edges(run_id);
	CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(run_id, target);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveResult persists a finished crawl: the run row, its pages, and its
// edges, all in one transaction. It returns the new run's database ID.
func (cdb *CrawlDB) SaveResult(ctx context.Context, result *model.CrawlResult) (int64, error) {
	if result == nil {
		return 0, errors.New("nil crawl result")
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize result: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	incomplete := 0
	if result.Incomplete {
		incomplete = 1
	}
	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (seed, termination, incomplete, fetched, failed, skipped, elapsed_ms, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.Seed,
		string(result.Termination),
		incomplete,
		result.Fetched,
		result.Failed,
		result.Skipped,
		result.Elapsed.Milliseconds(),
		string(resultJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (run_id, url, depth, state, status_code, error_kind, page_type, title, inbound, outbound, score)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer func() { _ = pageStmt.Close() }()

	for _, node := range result.Ranked() {
		_, err := pageStmt.ExecContext(ctx,
			runID,
			node.URL,
			node.Depth,
			string(node.State),
			node.StatusCode,
			string(node.ErrorKind),
			string(node.Type),
			node.Title,
			node.Inbound,
			len(node.Outbound),
			node.Score,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", node.URL, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO edges (run_id, source, target, internal)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id, source, target) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare edge insert: %w", err)
	}
	defer func() { _ = edgeStmt.Close() }()

	for _, edge := range result.Edges {
		internal := 0
		if edge.Internal {
			internal = 1
		}
		if _, err := edgeStmt.ExecContext(ctx, runID, edge.Source, edge.Target, internal); err != nil {
			return 0, fmt.Errorf("failed to insert edge %s -> %s: %w", edge.Source, edge.Target, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

// GetResult retrieves a stored crawl result by its run ID.
// Returns nil without error when the run does not exist.
func (cdb *CrawlDB) GetResult(ctx context.Context, runID int64) (*model.CrawlResult, error) {
	var resultJSON string
	err := cdb.db.QueryRowContext(ctx,
		`SELECT result_json FROM runs WHERE id = ?`, runID,
	).Scan(&resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	var result model.CrawlResult
	if err := json.Unmarshal([]byte(resultJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to parse stored result: %w", err)
	}
	return &result, nil
}

// RunMetadata contains summary information about a stored crawl.
// This is used for displaying run history without loading the full result.
type RunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Seed is the normalized seed URL of the crawl.
	Seed string

	// Timestamp is when the crawl finished.
	Timestamp time.Time

	// Termination records how the crawl stopped.
	Termination model.Termination

	// Incomplete is true when the crawl was cancelled mid-run.
	Incomplete bool

	// Fetched, Failed, and Skipped mirror the crawl counters.
	Fetched int
	Failed  int
	Skipped int

	// Elapsed is the total crawl duration.
	Elapsed time.Duration
}

// RecentRuns retrieves metadata for the most recent runs, newest first.
// When seed is non-empty, only runs for that seed are returned. A limit of
// 0 or less means no limit.
func (cdb *CrawlDB) RecentRuns(ctx context.Context, seed string, limit int) ([]RunMetadata, error) {
	query := `
	SELECT id, seed, timestamp, termination, incomplete, fetched, failed, skipped, elapsed_ms
	FROM runs
	`
	args := make([]any, 0, 2)
	if seed != "" {
		query += " WHERE seed = ?"
		args = append(args, seed)
	}
	query += " ORDER BY timestamp DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []RunMetadata
	for rows.Next() {
		var meta RunMetadata
		var timestamp, termination string
		var incomplete int
		var elapsedMs int64

		err := rows.Scan(
			&meta.ID,
			&meta.Seed,
			&timestamp,
			&termination,
			&incomplete,
			&meta.Fetched,
			&meta.Failed,
			&meta.Skipped,
			&elapsedMs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		meta.Termination = model.Termination(termination)
		meta.Incomplete = incomplete != 0
		meta.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListSeeds returns the distinct seed URLs with stored runs.
func (cdb *CrawlDB) ListSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx,
		`SELECT DISTINCT seed FROM runs ORDER BY seed`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

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

// PageHistory is one page's outcome in one stored run.
type PageHistory struct {
	// RunID identifies the run this outcome belongs to.
	RunID int64

	// Timestamp is when that run finished.
	Timestamp time.Time

	// State is the page's final state in that run.
	State model.PageState

	// StatusCode is the last HTTP status observed, 0 if never fetched.
	StatusCode int

	// Score is the importance score assigned in that run.
	Score float64

	// Inbound is the distinct inbound link count in that run.
	Inbound int
}

// GetPageHistory returns a URL's outcomes across stored runs, newest first.
// Useful for spotting pages that changed state or rank between crawls.
func (cdb *CrawlDB) GetPageHistory(ctx context.Context, url string) ([]PageHistory, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.run_id, r.timestamp, p.state, p.status_code, p.score, p.inbound
	FROM pages p
	JOIN runs r ON r.id = p.run_id
	WHERE p.url = ?
	ORDER BY r.timestamp DESC, p.run_id DESC
	`, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get page history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []PageHistory
	for rows.Next() {
		var h PageHistory
		var timestamp, state string
		if err := rows.Scan(&h.RunID, &timestamp, &state, &h.StatusCode, &h.Score, &h.Inbound); err != nil {
			return nil, fmt.Errorf("failed to scan page history: %w", err)
		}
		h.Timestamp = parseTimestamp(timestamp)
		h.State = model.PageState(state)
		results = append(results, h)
	}

	return results, rows.Err()
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

// parseTimestamp attempts to parse a timestamp string using multiple
// formats. SQLite may return timestamps in different formats depending on
// configuration. If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
