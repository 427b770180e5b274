package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobtrail/internal/model"
)

// PostgresStore keeps postings in a Postgres table through a pgx pool.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
}

var _ model.PostingStore = (*PostgresStore)(nil)

// NewPostgresStore connects to dsn and ensures the table exists.
func NewPostgresStore(ctx context.Context, dsn, table string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing postgres dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour
	// Transaction-mode poolers (Supabase, PgBouncer) reject cached prepared statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	if table == "" {
		table = "job_applications"
	}
	s := &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize()}

	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		id         BIGSERIAL PRIMARY KEY,
		title      TEXT NOT NULL,
		company    TEXT NOT NULL,
		location   TEXT NOT NULL DEFAULT '',
		salary     TEXT,
		job_type   TEXT,
		url        TEXT NOT NULL UNIQUE,
		status     TEXT NOT NULL DEFAULT 'Not Applied',
		date_added TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating %s: %w", s.table, err)
	}
	return s, nil
}

func (s *PostgresStore) Exists(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+s.table+` WHERE url = $1)`, url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking existence of %s: %w", url, err)
	}
	return exists, nil
}

func (s *PostgresStore) Persist(ctx context.Context, p model.JobPosting) (model.PersistResult, error) {
	if p.Status == "" {
		p.Status = model.StatusNotApplied
	}
	if p.DateAdded.IsZero() {
		p.DateAdded = time.Now()
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO `+s.table+` (title, company, location, salary, job_type, url, status, date_added)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (url) DO NOTHING`,
		p.Title, p.Company, p.Location, nullable(p.Salary), nullable(p.JobType), p.URL, string(p.Status), p.DateAdded,
	)
	if err != nil {
		cause, dup := classifyPg(err)
		if dup {
			return model.Duplicate, nil
		}
		return 0, &model.PersistError{Cause: cause, Err: fmt.Errorf("inserting %s: %w", p.URL, err)}
	}
	if tag.RowsAffected() == 0 {
		return model.Duplicate, nil
	}
	return model.Inserted, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]model.JobPosting, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT title, company, location, COALESCE(salary, ''), COALESCE(job_type, ''), url, status, date_added
		 FROM `+s.table+` ORDER BY date_added DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing postings: %w", err)
	}
	defer rows.Close()

	var out []model.JobPosting
	for rows.Next() {
		var (
			p      model.JobPosting
			status string
		)
		if err := rows.Scan(&p.Title, &p.Company, &p.Location, &p.Salary, &p.JobType, &p.URL, &status, &p.DateAdded); err != nil {
			return nil, fmt.Errorf("scanning posting: %w", err)
		}
		p.Status, _ = model.ParseStatus(status)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, url string, status model.Status) error {
	tag, err := s.pool.Exec(ctx, `UPDATE `+s.table+` SET status = $1 WHERE url = $2`, string(status), url)
	if err != nil {
		return fmt.Errorf("updating status for %s: %w", url, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating status for %s: %w", url, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// classifyPg maps a Postgres error to a PersistCause. dup is true for a
// unique violation.
func classifyPg(err error) (cause model.PersistCause, dup bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return model.CauseUnknown, false
	}
	switch {
	case pgErr.Code == "23505":
		return "", true
	case pgErr.Code == "42501" || pgErr.Code == "28000" || pgErr.Code == "28P01":
		return model.CausePermission, false
	case strings.HasPrefix(pgErr.Code, "22"), pgErr.Code == "23502", pgErr.Code == "23514":
		return model.CauseMalformed, false
	}
	return model.CauseUnknown, false
}
