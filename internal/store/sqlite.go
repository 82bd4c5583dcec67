package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"jobagent/internal/domain"
)

type SQLite struct {
	Pool *sql.DB
	now  func() time.Time
}

func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	// modernc sqlite uses DSN like: file:foo.db?_pragma=busy_timeout(5000)
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	pool, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	pool.SetMaxOpenConns(1)
	pool.SetConnMaxLifetime(5 * time.Minute)

	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.PingContext(pctx); err != nil {
		_ = pool.Close()
		return nil, err
	}
	if err := migrateSQLite(ctx, pool); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{Pool: pool, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.Pool == nil {
		return nil
	}
	return s.Pool.Close()
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	// ---- Schema v1 ----

	if _, err := tx.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  reasoning TEXT NOT NULL DEFAULT '',
  match_score REAL NOT NULL DEFAULT 0,
  url TEXT NOT NULL DEFAULT '',
  application_draft TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'OPEN',
  created_at TEXT NOT NULL,
  generation_error TEXT NOT NULL DEFAULT ''
);
`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `PRAGMA user_version = 1;`); err != nil {
		return err
	}
	return tx.Commit()
}

const sqliteColumns = `id, title, company, description, reasoning, match_score, url,
  application_draft, status, created_at, generation_error`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (domain.Job, error) {
	var j domain.Job
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.Reasoning, &j.MatchScore,
		&j.URL, &j.ApplicationDraft, &j.Status, &j.CreatedAt, &j.GenerationError)
	return j, err
}

func (s *SQLite) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := s.Pool.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM jobs ORDER BY match_score DESC, created_at DESC;`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("list jobs: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *SQLite) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return getSQLite(ctx, s.Pool, id)
}

func getSQLite(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, id string) (domain.Job, error) {
	j, err := scanJob(q.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM jobs WHERE id = ?;`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

const sqliteUpsert = `
INSERT INTO jobs(` + sqliteColumns + `)
VALUES(?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  title = excluded.title,
  company = excluded.company,
  description = excluded.description,
  reasoning = excluded.reasoning,
  match_score = excluded.match_score,
  url = excluded.url,
  application_draft = excluded.application_draft,
  status = excluded.status,
  created_at = excluded.created_at,
  generation_error = excluded.generation_error;`

func (s *SQLite) UpsertJob(ctx context.Context, j domain.Job) (domain.Job, error) {
	if j.ID == "" {
		return domain.Job{}, errors.New("upsert job: empty id")
	}
	j = normalize(j, s.now())
	if _, err := s.Pool.ExecContext(ctx, sqliteUpsert, j.ID, j.Title, j.Company, j.Description, j.Reasoning,
		j.MatchScore, j.URL, j.ApplicationDraft, j.Status, j.CreatedAt, j.GenerationError); err != nil {
		return domain.Job{}, fmt.Errorf("upsert job %s: %w", j.ID, err)
	}
	return j, nil
}

func (s *SQLite) PatchJob(ctx context.Context, id string, p domain.JobPatch) (domain.Job, error) {
	tx, err := s.Pool.BeginTx(ctx, nil)
	if err != nil {
		return domain.Job{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := getSQLite(ctx, tx, id)
	if err != nil {
		return domain.Job{}, err
	}
	j := normalize(p.Apply(cur), s.now())
	if _, err := tx.ExecContext(ctx, sqliteUpsert, j.ID, j.Title, j.Company, j.Description, j.Reasoning,
		j.MatchScore, j.URL, j.ApplicationDraft, j.Status, j.CreatedAt, j.GenerationError); err != nil {
		return domain.Job{}, fmt.Errorf("patch job %s: %w", id, err)
	}
	return j, tx.Commit()
}

func (s *SQLite) Reset(ctx context.Context) (int64, error) {
	res, err := s.Pool.ExecContext(ctx, `DELETE FROM jobs;`)
	if err != nil {
		return 0, fmt.Errorf("reset jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *SQLite) CleanupOldJobs(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.Pool.ExecContext(ctx, `DELETE FROM jobs WHERE created_at < ?;`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
