package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/docketrocket/internal/model"
)

// FileName is the database file created inside the history directory.
const FileName = "docketrocket.db"

// ErrNotFound is returned when the database does not exist and
// CreateIfNotExists is false.
var ErrNotFound = errors.New("history database not found")

// DB is the run and download history store.
type DB struct {
	db     *sql.DB
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
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

// Open opens or creates the history database in dir.
func Open(dir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	h := &DB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := h.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return h, nil
}

// Path returns the database file path.
func (h *DB) Path() string {
	return h.dbPath
}

// Close closes the database connection.
func (h *DB) Close() error {
	return h.db.Close()
}

func (h *DB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		start_url TEXT NOT NULL,
		pages INTEGER DEFAULT 0,
		new_records INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		stop_reason TEXT DEFAULT '',
		error TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

	CREATE TABLE IF NOT EXISTS downloads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id),
		url TEXT NOT NULL,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		pages INTEGER DEFAULT 0,
		captcha INTEGER DEFAULT 0,
		error TEXT DEFAULT '',
		attempted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_downloads_run ON downloads(run_id);
	CREATE INDEX IF NOT EXISTS idx_downloads_url ON downloads(url);
	`
	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// Run is one stored crawl run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	FinishedAt time.Time
	StartURL   string
	Pages      int
	NewRecords int
	Succeeded  int
	Failed     int
	StopReason string
	Error      string
}

// Download is one stored download attempt.
type Download struct {
	ID          int64
	RunID       int64
	URL         string
	Filename    string
	Status      model.DownloadStatus
	Pages       int
	Captcha     bool
	Error       string
	AttemptedAt time.Time
}

// BeginRun inserts a run row and returns its ID.
func (h *DB) BeginRun(ctx context.Context, startURL string, startedAt time.Time) (int64, error) {
	res, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (started_at, start_url) VALUES (?, ?)`,
		formatTime(startedAt), startURL,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	return res.LastInsertId()
}

// FinishRun stores the outcome of a run started with BeginRun. runErr may be nil.
func (h *DB) FinishRun(ctx context.Context, id int64, report *model.RunReport, runErr error) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	finished := report.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := h.db.ExecContext(ctx, `
	UPDATE runs SET
		finished_at = ?,
		pages = ?,
		new_records = ?,
		succeeded = ?,
		failed = ?,
		stop_reason = ?,
		error = ?
	WHERE id = ?`,
		formatTime(finished),
		report.PagesVisited,
		report.NewRecords,
		report.Succeeded,
		report.Failed,
		report.StopReason,
		errText,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to update run: no run with id %d", id)
	}
	return nil
}

// RecordDownload stores one download attempt for run id.
func (h *DB) RecordDownload(ctx context.Context, runID int64, result model.DownloadResult) error {
	attempted := result.AttemptedAt
	if attempted.IsZero() {
		attempted = time.Now()
	}
	captcha := 0
	if result.CaptchaDetected {
		captcha = 1
	}

	_, err := h.db.ExecContext(ctx, `
	INSERT INTO downloads (run_id, url, filename, status, pages, captcha, error, attempted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		result.URL,
		result.Filename,
		string(result.Status),
		result.Pages,
		captcha,
		result.Error,
		formatTime(attempted),
	)
	if err != nil {
		return fmt.Errorf("failed to insert download: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (h *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx, `
	SELECT id, started_at, COALESCE(finished_at, ''), start_url, pages, new_records,
		succeeded, failed, stop_reason, error
	FROM runs
	ORDER BY id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started, finished string
		if err := rows.Scan(&r.ID, &started, &finished, &r.StartURL, &r.Pages, &r.NewRecords,
			&r.Succeeded, &r.Failed, &r.StopReason, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = parseTimestamp(started)
		r.FinishedAt = parseTimestamp(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecentDownloads returns up to limit download attempts, newest first.
// When failedOnly is set only failed attempts are returned.
func (h *DB) RecentDownloads(ctx context.Context, limit int, failedOnly bool) ([]Download, error) {
	query := `
	SELECT id, run_id, url, filename, status, pages, captcha, error, attempted_at
	FROM downloads`
	args := make([]any, 0, 2)
	if failedOnly {
		query += " WHERE status = ?"
		args = append(args, string(model.DownloadFailed))
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query downloads: %w", err)
	}
	defer rows.Close()

	var downloads []Download
	for rows.Next() {
		var d Download
		var status, attempted string
		var captcha int
		if err := rows.Scan(&d.ID, &d.RunID, &d.URL, &d.Filename, &status, &d.Pages,
			&captcha, &d.Error, &attempted); err != nil {
			return nil, fmt.Errorf("failed to scan download: %w", err)
		}
		d.Status = model.DownloadStatus(status)
		d.Captcha = captcha != 0
		d.AttemptedAt = parseTimestamp(attempted)
		downloads = append(downloads, d)
	}
	return downloads, rows.Err()
}

// Recorder binds a DB to one run so it can be handed to the downloader.
type Recorder struct {
	db    *DB
	runID int64
}

// ForRun returns a Recorder that stores downloads under run id.
func (h *DB) ForRun(runID int64) *Recorder {
	return &Recorder{db: h, runID: runID}
}

// RunID returns the bound run ID.
func (r *Recorder) RunID() int64 {
	return r.runID
}

// RecordDownload stores result under the bound run.
func (r *Recorder) RecordDownload(ctx context.Context, result model.DownloadResult) error {
	return r.db.RecordDownload(ctx, r.runID, result)
}

const storedTimeFormat = time.RFC3339Nano

func formatTime(t time.Time) string {
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the formats SQLite may hand back.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
