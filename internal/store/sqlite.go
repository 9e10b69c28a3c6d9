package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"jobwatch-engine/internal/domain"

	_ "modernc.org/sqlite"
)

type sqliteStore struct {
	db   *sql.DB
	jobs string
	runs string
}

// OpenSQLite opens (or creates) a sqlite database file. Single writer, busy
// timeout on the DSN the way modernc wants it.
func OpenSQLite(path, env string) (Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1) // sqlite typically wants 1 writer
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}

	return &sqliteStore{db: db, jobs: jobsTable(env), runs: runsTable(env)}, nil
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) InitSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  company TEXT NOT NULL,
  location TEXT,
  url TEXT NOT NULL,
  source_id TEXT NOT NULL,
  details TEXT NOT NULL DEFAULT '{}',
  posted_on TEXT,
  created_at TEXT NOT NULL,
  closed_on TEXT,
  status TEXT NOT NULL DEFAULT 'OPEN',
  first_seen_at TEXT NOT NULL,
  last_seen_at TEXT NOT NULL,
  consecutive_misses INTEGER NOT NULL DEFAULT 0,
  details_scraped INTEGER NOT NULL DEFAULT 0
);`, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_status ON %s(status);`, s.jobs, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_company ON %s(company);`, s.jobs, s.jobs),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_last_seen ON %s(last_seen_at);`, s.jobs, s.jobs),
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  run_id TEXT PRIMARY KEY,
  company TEXT NOT NULL,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  mode TEXT NOT NULL,
  jobs_seen INTEGER NOT NULL DEFAULT 0,
  new_jobs INTEGER NOT NULL DEFAULT 0,
  closed_jobs INTEGER NOT NULL DEFAULT 0,
  details_fetched INTEGER NOT NULL DEFAULT 0,
  error_count INTEGER NOT NULL DEFAULT 0
);`, s.runs),
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) ActiveJobIDs(ctx context.Context, company string) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT id FROM %s WHERE company = ? AND status = ?;`, s.jobs),
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

func scanJobSQLite(row interface{ Scan(...any) error }) (domain.JobRecord, error) {
	var (
		j         domain.JobRecord
		location  sql.NullString
		details   string
		postedOn  sql.NullString
		createdAt string
		closedOn  sql.NullString
		firstSeen string
		lastSeen  string
	)
	err := row.Scan(&j.ID, &j.Title, &j.Company, &location, &j.URL, &j.SourceID,
		&details, &postedOn, &createdAt, &closedOn, &j.Status,
		&firstSeen, &lastSeen, &j.ConsecutiveMisses, &j.DetailsScraped)
	if err != nil {
		return j, err
	}

	j.Location = location.String
	j.PostedOn = postedOn.String
	j.CreatedAt = parseTime(createdAt)
	j.FirstSeenAt = parseTime(firstSeen)
	j.LastSeenAt = parseTime(lastSeen)
	if closedOn.Valid {
		t := parseTime(closedOn.String)
		j.ClosedOn = &t
	}
	_ = json.Unmarshal([]byte(details), &j.Details)
	return j, nil
}

func (s *sqliteStore) JobByID(ctx context.Context, id string) (*domain.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`
SELECT %s FROM %s WHERE id = ?;`, jobColumns, s.jobs), id)

	j, err := scanJobSQLite(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *sqliteStore) JobsByCompany(ctx context.Context, company string) ([]domain.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT %s FROM %s WHERE company = ? ORDER BY first_seen_at, id;`, jobColumns, s.jobs), company)
	if err != nil {
		return nil, fmt.Errorf("jobs by company: %w", err)
	}
	defer rows.Close()

	var out []domain.JobRecord
	for rows.Next() {
		j, err := scanJobSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func jobArgsSQLite(j domain.JobRecord) []any {
	details := j.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsB, _ := json.Marshal(details)

	var closedOn any
	if j.ClosedOn != nil {
		closedOn = formatTime(*j.ClosedOn)
	}
	var location any
	if j.Location != "" {
		location = j.Location
	}
	var postedOn any
	if j.PostedOn != "" {
		postedOn = j.PostedOn
	}

	return []any{
		j.ID, j.Title, j.Company, location, j.URL, j.SourceID,
		string(detailsB), postedOn, formatTime(j.CreatedAt), closedOn, j.Status,
		formatTime(j.FirstSeenAt), formatTime(j.LastSeenAt),
		j.ConsecutiveMisses, j.DetailsScraped,
	}
}

const jobColumns = `id, title, company, location, url, source_id, details, posted_on,
created_at, closed_on, status, first_seen_at, last_seen_at, consecutive_misses, details_scraped`

// Reactivation path: a reappearing id flips back to OPEN with misses reset,
// but created_at/first_seen_at keep the original discovery.
func (s *sqliteStore) upsertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET
  title = excluded.title,
  location = excluded.location,
  url = excluded.url,
  details = excluded.details,
  posted_on = excluded.posted_on,
  status = 'OPEN',
  closed_on = NULL,
  last_seen_at = excluded.last_seen_at,
  consecutive_misses = 0,
  details_scraped = excluded.details_scraped;`, s.jobs, jobColumns)
}

func (s *sqliteStore) insertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s (%s)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO NOTHING;`, s.jobs, jobColumns)
}

func (s *sqliteStore) writeJobs(ctx context.Context, jobs []domain.JobRecord, query string) (int, error) {
	if len(jobs) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, j := range jobs {
		if _, err := stmt.ExecContext(ctx, jobArgsSQLite(j)...); err != nil {
			return 0, fmt.Errorf("write job %s: %w", j.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(jobs), nil
}

func (s *sqliteStore) UpsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	return s.writeJobs(ctx, jobs, s.upsertSQL())
}

func (s *sqliteStore) InsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	return s.writeJobs(ctx, jobs, s.insertSQL())
}

func (s *sqliteStore) UpsertJob(ctx context.Context, job domain.JobRecord) error {
	_, err := s.db.ExecContext(ctx, s.upsertSQL(), jobArgsSQLite(job)...)
	if err != nil {
		return fmt.Errorf("upsert job %s: %w", job.ID, err)
	}
	return nil
}

func (s *sqliteStore) InsertJob(ctx context.Context, job domain.JobRecord) error {
	_, err := s.db.ExecContext(ctx, s.insertSQL(), jobArgsSQLite(job)...)
	if err != nil {
		return fmt.Errorf("insert job %s: %w", job.ID, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func idArgs(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func (s *sqliteStore) UpdateLastSeen(ctx context.Context, ids []string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{formatTime(ts)}, idArgs(ids)...)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s SET last_seen_at = ?, consecutive_misses = 0
WHERE id IN (%s);`, s.jobs, placeholders(len(ids))), args...)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

func (s *sqliteStore) IncrementMisses(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s SET consecutive_misses = consecutive_misses + 1
WHERE id IN (%s);`, s.jobs, placeholders(len(ids))), idArgs(ids)...)
	if err != nil {
		return fmt.Errorf("increment misses: %w", err)
	}
	return nil
}

func (s *sqliteStore) IDsPastMissThreshold(ctx context.Context, ids []string, threshold int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := append(idArgs(ids), threshold)
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
SELECT id FROM %s
WHERE id IN (%s) AND consecutive_misses >= ?;`, s.jobs, placeholders(len(ids))), args...)
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

func (s *sqliteStore) MarkClosed(ctx context.Context, ids []string, ts time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	args := append([]any{formatTime(ts)}, idArgs(ids)...)
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
UPDATE %s SET status = 'CLOSED', closed_on = ?
WHERE id IN (%s);`, s.jobs, placeholders(len(ids))), args...)
	if err != nil {
		return fmt.Errorf("mark closed: %w", err)
	}
	return nil
}

func (s *sqliteStore) RecordRun(ctx context.Context, run domain.ScrapeRun) error {
	var completed any
	if run.CompletedAt != nil {
		completed = formatTime(*run.CompletedAt)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
INSERT INTO %s (run_id, company, started_at, completed_at, mode,
                jobs_seen, new_jobs, closed_jobs, details_fetched, error_count)
VALUES (?,?,?,?,?,?,?,?,?,?);`, s.runs),
		run.RunID, run.Company, formatTime(run.StartedAt), completed, run.Mode,
		run.JobsSeen, run.NewJobs, run.ClosedJobs, run.DetailsFetched, run.ErrorCount,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
