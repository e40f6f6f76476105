package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/mdcrawl/internal/model"
)

// dbFileName is the name of the history database inside its directory.
const dbFileName = "history.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("history database not found")

// HistoryDB stores a record of every crawl: one row per session and one
// row per processed page.
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

// PageRecord is a stored page of a crawl session.
type PageRecord struct {
	ID          int64
	SessionID   int64
	URL         string
	Title       string
	Depth       int
	Chars       int
	Outcome     string
	StatusCode  int
	ContentType string
	Error       string
	FetchedAt   time.Time
	Duration    time.Duration
}

// Open opens or creates the history database in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, dbFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
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

// Path returns the database file path.
func (hdb *HistoryDB) Path() string {
	return hdb.dbPath
}

// Close closes the database connection.
func (hdb *HistoryDB) Close() error {
	return hdb.db.Close()
}

func (hdb *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		root_url TEXT NOT NULL,
		host TEXT NOT NULL,
		status TEXT NOT NULL,
		pages INTEGER NOT NULL DEFAULT 0,
		errors INTEGER NOT NULL DEFAULT 0,
		empty INTEGER NOT NULL DEFAULT 0,
		total_chars INTEGER NOT NULL DEFAULT 0,
		max_depth INTEGER NOT NULL,
		max_pages INTEGER NOT NULL,
		cancelled INTEGER NOT NULL DEFAULT 0,
		output_dir TEXT,
		index_path TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_root ON sessions(root_url);
	CREATE INDEX IF NOT EXISTS idx_sessions_host ON sessions(host);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		title TEXT,
		depth INTEGER NOT NULL,
		chars INTEGER NOT NULL DEFAULT 0,
		outcome TEXT NOT NULL,
		status_code INTEGER,
		content_type TEXT,
		error TEXT,
		fetched_at TEXT,
		duration_ms INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_pages_session ON pages(session_id);
	CREATE INDEX IF NOT EXISTS idx_pages_url ON pages(url);
	`

	_, err := hdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSession stores a finished session and all of its successful and
// failed pages in one transaction. It returns the new session ID.
func (hdb *HistoryDB) SaveSession(ctx context.Context, s *model.Session) (int64, error) {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec := model.NewCrawlRecord(s)
	result, err := tx.ExecContext(ctx, `
	INSERT INTO sessions (root_url, host, status, pages, errors, empty, total_chars,
		max_depth, max_pages, cancelled, output_dir, index_path, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.RootURL,
		hostOf(rec.RootURL),
		rec.Status.String(),
		rec.Pages,
		rec.Errors,
		rec.Empty,
		rec.TotalChars,
		rec.MaxDepth,
		rec.MaxPages,
		rec.Cancelled,
		rec.OutputDir,
		rec.IndexPath,
		formatTimestamp(rec.StartedAt),
		formatTimestamp(rec.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read session id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO pages (session_id, url, title, depth, chars, outcome, status_code,
		content_type, error, fetched_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer stmt.Close()

	for _, pages := range [][]model.PageResult{s.Pages, s.Failures} {
		for _, p := range pages {
			if _, err := stmt.ExecContext(ctx,
				id,
				p.URL,
				p.Title,
				p.Depth,
				p.Chars,
				p.Outcome.String(),
				p.StatusCode,
				p.ContentType,
				p.ErrorMessage(),
				formatTimestamp(p.FetchedAt),
				p.Duration.Milliseconds(),
			); err != nil {
				return 0, fmt.Errorf("failed to insert page %s: %w", p.URL, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit session: %w", err)
	}
	return id, nil
}

const sessionColumns = `id, root_url, status, pages, errors, empty, total_chars,
	max_depth, max_pages, cancelled, output_dir, index_path, started_at, finished_at`

// ListSessions returns recorded crawls, newest first.
// A non-empty filter matches either the exact root URL or the host.
// A limit of zero or less returns all sessions.
func (hdb *HistoryDB) ListSessions(ctx context.Context, filter string, limit int) ([]model.CrawlRecord, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	args := make([]any, 0, 3)

	if filter != "" {
		query += " AND (root_url = ? OR host = ?)"
		host := hostOf(filter)
		if host == "" {
			host = filter
		}
		args = append(args, filter, host)
	}

	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := hdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var records []model.CrawlRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetSession returns the session with the given ID, or nil if there is none.
func (hdb *HistoryDB) GetSession(ctx context.Context, id int64) (*model.CrawlRecord, error) {
	row := hdb.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// LatestSession returns the most recent crawl of rootURL, or nil.
func (hdb *HistoryDB) LatestSession(ctx context.Context, rootURL string) (*model.CrawlRecord, error) {
	row := hdb.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions
	WHERE root_url = ? ORDER BY started_at DESC, id DESC LIMIT 1`, rootURL)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Pages returns the pages of a session ordered by depth and URL.
func (hdb *HistoryDB) Pages(ctx context.Context, sessionID int64) ([]PageRecord, error) {
	rows, err := hdb.db.QueryContext(ctx, `
	SELECT id, session_id, url, title, depth, chars, outcome, status_code,
		content_type, error, fetched_at, duration_ms
	FROM pages
	WHERE session_id = ?
	ORDER BY depth, url
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []PageRecord
	for rows.Next() {
		var p PageRecord
		var title, contentType, errMsg, fetchedAt sql.NullString
		var durationMS sql.NullInt64
		var statusCode sql.NullInt64

		if err := rows.Scan(
			&p.ID,
			&p.SessionID,
			&p.URL,
			&title,
			&p.Depth,
			&p.Chars,
			&p.Outcome,
			&statusCode,
			&contentType,
			&errMsg,
			&fetchedAt,
			&durationMS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}

		p.Title = title.String
		p.ContentType = contentType.String
		p.Error = errMsg.String
		p.StatusCode = int(statusCode.Int64)
		p.FetchedAt = parseTimestamp(fetchedAt.String)
		p.Duration = time.Duration(durationMS.Int64) * time.Millisecond
		pages = append(pages, p)
	}

	return pages, rows.Err()
}

// DeleteSession removes a session and its pages.
func (hdb *HistoryDB) DeleteSession(ctx context.Context, id int64) error {
	tx, err := hdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return tx.Commit()
}

// rowScanner is implemented by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (model.CrawlRecord, error) {
	var rec model.CrawlRecord
	var status, startedAt string
	var outputDir, indexPath, finishedAt sql.NullString

	err := row.Scan(
		&rec.ID,
		&rec.RootURL,
		&status,
		&rec.Pages,
		&rec.Errors,
		&rec.Empty,
		&rec.TotalChars,
		&rec.MaxDepth,
		&rec.MaxPages,
		&rec.Cancelled,
		&outputDir,
		&indexPath,
		&startedAt,
		&finishedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan session: %w", err)
	}

	rec.Status = model.ParseStatus(status)
	rec.OutputDir = outputDir.String
	rec.IndexPath = indexPath.String
	rec.StartedAt = parseTimestamp(startedAt)
	rec.FinishedAt = parseTimestamp(finishedAt.String)
	return rec, nil
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// timestampLayout is RFC 3339 with a fixed-width fraction, so stored
// strings sort in time order.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores t in UTC. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
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
