package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobwatch-engine/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
	jobs string
	runs string
}

// OpenPostgres creates and verifies a pgxpool connection pool.
func OpenPostgres(ctx context.Context, databaseURL, env string) (Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &postgresStore{pool: pool, jobs: jobsTable(env), runs: runsTable(env)}, nil
}

func (s *postgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *postgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT,
  url TEXT NOT NULL,
  source_id TEXT NOT NULL,
  details JSONB DEFAULT '{}'::jsonb,
  posted_on TEXT,
  created_at TEXT NOT NULL,
  closed_on TEXT,
  status TEXT NOT NULL DEFAULT 'OPEN',
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  consecutive_misses INTEGER DEFAULT 0,
  details_scraped BOOLEAN DEFAULT FALSE
)`, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status)`, s.jobs, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_company ON %s(company)`, s.jobs, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_last_seen ON %s(last_seen_at)`, s.jobs, s.jobs),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  run_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  mode TEXT NOT NULL,
  jobs_seen INTEGER DEFAULT 0,
  new_jobs INTEGER DEFAULT 0,
  closed_jobs INTEGER DEFAULT 0,
  details_fetched INTEGER DEFAULT 0,
  error_count INTEGER DEFAULT 0
)`, s.runs),
	}
	for _, q := range stmts {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *postgresStore) ActiveJobIDs(ctx context.Context, company string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE company = $1 AND status = $2`, s.jobs),
		company, domain.StatusOpen,
	)
	if err != nil {
		return nil, fmt.Errorf("active job ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func scanJobPostgres(row pgx.Row) (domain.JobRecord, error) {
	var (
		j         domain.JobRecord
		location  *string
		detailsB  []byte
		postedOn  *string
		createdAt string
		closedOn  *string
		firstSeen string
		lastSeen  string
	)
	err := row.Scan(&j.ID, &j.Title, &j.Company, &location, &j.URL, &j.SourceID,
		&detailsB, &postedOn, &createdAt, &closedOn, &j.Status,
		&firstSeen, &lastSeen, &j.ConsecutiveMisses, &j.DetailsScraped)
	if err != nil {
		return j, err
	}

	if location != nil {
		j.Location = *location
	}
	if postedOn != nil {
		j.PostedOn = *postedOn
	}
	j.CreatedAt = parseTime(createdAt)
	j.FirstSeenAt = parseTime(firstSeen)
	j.LastSeenAt = parseTime(lastSeen)
	if closedOn != nil {
		t := parseTime(*closedOn)
		j.ClosedOn = &t
	}
	_ = json.Unmarshal(detailsB, &j.Details)
	return j, nil
}

func (s *postgresStore) JobByID(ctx context.Context, id string) (*domain.JobRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
SELECT %s FROM %s WHERE id = $1`, jobColumns, s.jobs), id)

	j, err := scanJobPostgres(row)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *postgresStore) JobsByCompany(ctx context.Context, company string) ([]domain.JobRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
SELECT %s FROM %s WHERE company = $1 ORDER BY first_seen_at, id`, jobColumns, s.jobs), company)
	if err != nil {
		return nil, fmt.Errorf("jobs by company: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		j, err := scanJobPostgres(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func jobArgsPostgres(j domain.JobRecord) []any {
	details := j.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsB, _ := json.Marshal(details)

	var closedOn, location, postedOn *string
	if j.ClosedOn != nil {
		c := formatTime(*j.ClosedOn)
		closedOn = &c
	}
	if j.Location != "" {
		location = &j.Location
	}
	if j.PostedOn != "" {
		postedOn = &j.PostedOn
	}

	return []any{
		j.ID, j.Title, j.Company, location, j.URL, j.SourceID,
		detailsB, postedOn, formatTime(j.CreatedAt), closedOn, j.Status,
		formatTime(j.FirstSeenAt), formatTime(j.LastSeenAt),
		j.ConsecutiveMisses, j.DetailsScraped,
	}
}

func (s *postgresStore) upsertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  title = EXCLUDED.title,
  location = EXCLUDED.location,
  url = EXCLUDED.url,
  details = EXCLUDED.details,
  posted_on = EXCLUDED.posted_on,
  status = 'OPEN',
  closed_on = NULL,
  last_seen_at = EXCLUDED.last_seen_at,
  consecutive_misses = 0,
  details_scraped = EXCLUDED.details_scraped`, s.jobs, jobColumns)
}

func (s *postgresStore) insertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO NOTHING`, s.jobs, jobColumns)
}

func (s *postgresStore) writeJobs(ctx context.Context, jobs []domain.JobRecord, query string) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, j := range jobs {
		if _, err := tx.Exec(ctx, query, jobArgsPostgres(j)...); err != nil {
			return 0, fmt.Errorf("write job %s: %w", j.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

func (s *postgresStore) UpsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	return s.writeJobs(ctx, jobs, s.upsertSQL())
}

func (s *postgresStore) InsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	return s.writeJobs(ctx, jobs, s.insertSQL())
}

func (s *postgresStore) UpsertJob(ctx context.Context, job domain.JobRecord) error {
	if _, err := s.pool.Exec(ctx, s.upsertSQL(), jobArgsPostgres(job)...); err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *postgresStore) InsertJob(ctx context.Context, job domain.JobRecord) error {
	if _, err := s.pool.Exec(ctx, s.insertSQL(), jobArgsPostgres(job)...); err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func pgPlaceholders(n, offset int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", i+offset+1)
	}
	return strings.Join(parts, ",")
}

func (s *postgresStore) UpdateLastSeen(ctx context.Context, ids []string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{formatTime(ts)}, idArgs(ids)...)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
UPDATE %s SET last_seen_at = $1, consecutive_misses = 0
WHERE id IN (%s)`, s.jobs, pgPlaceholders(len(ids), 1)), args...)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

func (s *postgresStore) IncrementMisses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
UPDATE %s SET consecutive_misses = consecutive_misses + 1
WHERE id IN (%s)`, s.jobs, pgPlaceholders(len(ids), 0)), idArgs(ids)...)
	if err != nil {
		return fmt.Errorf("increment misses: %w", err)
	}
	return nil
}

func (s *postgresStore) IDsPastMissThreshold(ctx context.Context, ids []string, threshold int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := append([]any{threshold}, idArgs(ids)...)
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
SELECT id FROM %s
WHERE consecutive_misses >= $1 AND id IN (%s)`, s.jobs, pgPlaceholders(len(ids), 1)), args...)
	if err != nil {
		return nil, fmt.Errorf("miss threshold query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *postgresStore) MarkClosed(ctx context.Context, ids []string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{formatTime(ts)}, idArgs(ids)...)
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
UPDATE %s SET status = 'CLOSED', closed_on = $1
WHERE id IN (%s)`, s.jobs, pgPlaceholders(len(ids), 1)), args...)
	if err != nil {
		return fmt.Errorf("mark closed: %w", err)
	}
	return nil
}

func (s *postgresStore) RecordRun(ctx context.Context, run domain.ScrapeRun) error {
	var completed *string
	if run.CompletedAt != nil {
		c := formatTime(*run.CompletedAt)
		completed = &c
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
INSERT INTO %s (run_id, company, started_at, completed_at, mode,
                jobs_seen, new_jobs, closed_jobs, details_fetched, error_count)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`, s.runs),
		run.RunID, run.Company, formatTime(run.StartedAt), completed, run.Mode,
		run.JobsSeen, run.NewJobs, run.ClosedJobs, run.DetailsFetched, run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
