package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobagent/internal/domain"
)

type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS jobs (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL DEFAULT '',
  company TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  reasoning TEXT NOT NULL DEFAULT '',
  match_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  url TEXT NOT NULL DEFAULT '',
  application_draft TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'OPEN',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  generation_error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

const pgColumns = `id, title, company, description, reasoning, match_score, url,
  application_draft, status, created_at, generation_error`

func scanPG(row pgx.Row) (domain.Job, error) {
	var (
		j       domain.Job
		created time.Time
	)
	err := row.Scan(&j.ID, &j.Title, &j.Company, &j.Description, &j.Reasoning, &j.MatchScore,
		&j.URL, &j.ApplicationDraft, &j.Status, &created, &j.GenerationError)
	j.CreatedAt = created.UTC().Format(timeLayout)
	return j, err
}

func (p *Postgres) ListJobs(ctx context.Context) ([]domain.Job, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+pgColumns+` FROM jobs ORDER BY match_score DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []domain.Job{}
	for rows.Next() {
		j, err := scanPG(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (p *Postgres) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return getPG(ctx, p.pool, id)
}

func getPG(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, id string) (domain.Job, error) {
	j, err := scanPG(q.QueryRow(ctx, `SELECT `+pgColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, ErrNotFound
	}
	if err != nil {
		return domain.Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

const pgUpsert = `
INSERT INTO jobs (` + pgColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  company = EXCLUDED.company,
  description = EXCLUDED.description,
  reasoning = EXCLUDED.reasoning,
  match_score = EXCLUDED.match_score,
  url = EXCLUDED.url,
  application_draft = EXCLUDED.application_draft,
  status = EXCLUDED.status,
  created_at = EXCLUDED.created_at,
  generation_error = EXCLUDED.generation_error`

func pgArgs(j domain.Job) []any {
	created, _ := j.CreatedTime()
	return []any{j.ID, j.Title, j.Company, j.Description, j.Reasoning, j.MatchScore, j.URL,
		j.ApplicationDraft, j.Status, created, j.GenerationError}
}

func (p *Postgres) UpsertJob(ctx context.Context, j domain.Job) (domain.Job, error) {
	if j.ID == "" {
		return domain.Job{}, errors.New("upsert job: empty id")
	}
	j = normalize(j, p.now())
	if _, err := p.pool.Exec(ctx, pgUpsert, pgArgs(j)...); err != nil {
		return domain.Job{}, fmt.Errorf("upsert job %s: %w", j.ID, err)
	}
	return j, nil
}

func (p *Postgres) PatchJob(ctx context.Context, id string, patch domain.JobPatch) (domain.Job, error) {
	var out domain.Job
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		cur, err := getPG(ctx, tx, id)
		if err != nil {
			return err
		}
		out = normalize(patch.Apply(cur), p.now())
		_, err = tx.Exec(ctx, pgUpsert, pgArgs(out)...)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return domain.Job{}, err
		}
		return domain.Job{}, fmt.Errorf("patch job %s: %w", id, err)
	}
	return out, nil
}

func (p *Postgres) Reset(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("reset jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) CleanupOldJobs(ctx context.Context, before time.Time) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM jobs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("cleanup old jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
