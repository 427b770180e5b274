package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/amishk599/jobtrail/internal/model"
)

// SQLiteStore keeps postings in a local SQLite database. The url column is
// UNIQUE, so the store itself rejects duplicates even if Exists was skipped.
type SQLiteStore struct {
	db *sql.DB
}

var _ model.PostingStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// job_applications table exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer; concurrent source workers queue here instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS job_applications (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		company    TEXT NOT NULL,
		location   TEXT NOT NULL DEFAULT '',
		salary     TEXT,
		job_type   TEXT,
		url        TEXT NOT NULL UNIQUE,
		status     TEXT NOT NULL DEFAULT 'Not Applied',
		date_added DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating job_applications table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Exists reports whether a posting with this URL is already stored.
func (s *SQLiteStore) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM job_applications WHERE url = ?", url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking existence of %s: %w", url, err)
	}
	return true, nil
}

// Persist inserts p. An existing URL yields model.Duplicate and no error.
func (s *SQLiteStore) Persist(ctx context.Context, p model.JobPosting) (model.PersistResult, error) {
	if p.Status == "" {
		p.Status = model.StatusNotApplied
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO job_applications (title, company, location, salary, job_type, url, status, date_added)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		p.Title, p.Company, p.Location, nullable(p.Salary), nullable(p.JobType), p.URL, string(p.Status), p.DateAdded.UTC(),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return model.Duplicate, nil
		}
		return 0, &model.PersistError{Cause: classifySQLite(err), Err: fmt.Errorf("inserting %s: %w", p.URL, err)}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("inserting %s: rows affected: %w", p.URL, err)
	}
	if n == 0 {
		return model.Duplicate, nil
	}
	return model.Inserted, nil
}

// List returns every stored posting, newest first.
func (s *SQLiteStore) List(ctx context.Context) ([]model.JobPosting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, company, location, salary, job_type, url, status, date_added
		 FROM job_applications ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	defer rows.Close()

	var out []model.JobPosting
	for rows.Next() {
		var (
			p               model.JobPosting
			salary, jobType sql.NullString
			status          string
		)
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &salary, &jobType, &p.URL, &status, &p.DateAdded); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		p.Salary = salary.String
		p.JobType = jobType.String
		p.Status, _ = model.ParseStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateStatus sets the application status for url.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, url string, status model.Status) error {
	res, err := s.db.ExecContext(ctx, "UPDATE job_applications SET status = ? WHERE url = ?", string(status), url)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", url, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("updating status for %s: %w", url, ErrNotFound)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteUnique(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func classifySQLite(err error) model.PersistCause {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY, sqlite3.SQLITE_AUTH:
			return model.CausePermission
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_MISMATCH, sqlite3.SQLITE_TOOBIG:
			return model.CauseMalformed
		}
	}
	return model.CauseUnknown
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
