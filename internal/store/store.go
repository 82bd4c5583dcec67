// Package store persists the relay's projection of the job_updates stream.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"jobagent/internal/domain"
)

var ErrNotFound = errors.New("store: job not found")

// Store is implemented by the sqlite and postgres backends.
type Store interface {
	// ListJobs returns every job, best match first.
	ListJobs(ctx context.Context) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (domain.Job, error)
	UpsertJob(ctx context.Context, j domain.Job) (domain.Job, error)
	// PatchJob merges p into the stored job and returns the result, or ErrNotFound.
	PatchJob(ctx context.Context, id string, p domain.JobPatch) (domain.Job, error)
	Reset(ctx context.Context) (int64, error)
	CleanupOldJobs(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// Open picks postgres for a postgres:// url and sqlite at sqlitePath otherwise.
func Open(ctx context.Context, databaseURL, sqlitePath string) (Store, error) {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return OpenPostgres(ctx, databaseURL)
	}
	return OpenSQLite(ctx, sqlitePath)
}

// timeLayout is fixed width so TEXT timestamps compare in time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// normalize fills created_at and status the way the analysing worker does for
// new rows.
func normalize(j domain.Job, now time.Time) domain.Job {
	t, ok := j.CreatedTime()
	if !ok {
		t = now
	}
	j.CreatedAt = t.UTC().Format(timeLayout)
	if j.Status == "" {
		j.Status = domain.StatusOpen
	}
	return j
}
