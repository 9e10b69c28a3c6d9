package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jobwatch-engine/internal/domain"
)

var ErrNotFound = errors.New("not found")

// Store is the persisted side of the incremental engine: namespaced job and
// run tables with bulk writes and set-based lifecycle updates. Both backends
// commit per call; no transaction spans multiple calls.
type Store interface {
	InitSchema(ctx context.Context) error

	// ActiveJobIDs returns the ids marked OPEN for a company.
	ActiveJobIDs(ctx context.Context, company string) (map[string]struct{}, error)
	JobByID(ctx context.Context, id string) (*domain.JobRecord, error)
	JobsByCompany(ctx context.Context, company string) ([]domain.JobRecord, error)

	// Bulk writes: one transaction for the whole slice. Upsert reactivates a
	// reappearing job (status OPEN, closed_on cleared, misses reset) while
	// preserving created_at/first_seen_at; Insert skips on conflict.
	UpsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error)
	InsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error)

	// Single-row fallbacks used when a bulk write fails.
	UpsertJob(ctx context.Context, job domain.JobRecord) error
	InsertJob(ctx context.Context, job domain.JobRecord) error

	UpdateLastSeen(ctx context.Context, ids []string, ts time.Time) error
	IncrementMisses(ctx context.Context, ids []string) error
	IDsPastMissThreshold(ctx context.Context, ids []string, threshold int) ([]string, error)
	MarkClosed(ctx context.Context, ids []string, ts time.Time) error

	RecordRun(ctx context.Context, run domain.ScrapeRun) error

	Close() error
}

// Open picks a backend from the target: postgres:// URLs go to pgx, anything
// else is treated as a sqlite file path.
func Open(ctx context.Context, target, env string) (Store, error) {
	if err := checkEnv(env); err != nil {
		return nil, err
	}
	if strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://") {
		return OpenPostgres(ctx, target, env)
	}
	return OpenSQLite(target, env)
}

// Env names end up in table names, so keep them boring.
func checkEnv(env string) error {
	if env == "" {
		return errors.New("env is empty")
	}
	for _, r := range env {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
			return fmt.Errorf("env %q: only [a-z0-9_] allowed", env)
		}
	}
	return nil
}

func jobsTable(env string) string { return "job_listings_" + env }
func runsTable(env string) string { return "scrape_runs_" + env }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
