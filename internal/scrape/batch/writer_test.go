package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/scrape/types"

	"github.com/stretchr/testify/require"
)

// fakeStore records writes and lets tests inject failures for the bulk path
// or for individual ids on the single-row path.
type fakeStore struct {
	bulkErr    error
	failRowIDs map[string]bool

	bulkCalls   int
	upsertCalls int
	insertCalls int
	written     []domain.JobRecord
}

func (f *fakeStore) InitSchema(ctx context.Context) error { return nil }

func (f *fakeStore) ActiveJobIDs(ctx context.Context, company string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (f *fakeStore) JobByID(ctx context.Context, id string) (*domain.JobRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) JobsByCompany(ctx context.Context, company string) ([]domain.JobRecord, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeStore) UpsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	f.bulkCalls++
	if f.bulkErr != nil {
		return 0, f.bulkErr
	}
	f.written = append(f.written, jobs...)
	return len(jobs), nil
}

func (f *fakeStore) InsertJobs(ctx context.Context, jobs []domain.JobRecord) (int, error) {
	return f.UpsertJobs(ctx, jobs)
}

func (f *fakeStore) UpsertJob(ctx context.Context, job domain.JobRecord) error {
	f.upsertCalls++
	if f.failRowIDs[job.ID] {
		return errors.New("row rejected")
	}
	f.written = append(f.written, job)
	return nil
}

func (f *fakeStore) InsertJob(ctx context.Context, job domain.JobRecord) error {
	f.insertCalls++
	return f.UpsertJob(ctx, job)
}

func (f *fakeStore) UpdateLastSeen(ctx context.Context, ids []string, ts time.Time) error {
	return nil
}
func (f *fakeStore) IncrementMisses(ctx context.Context, ids []string) error { return nil }
func (f *fakeStore) IDsPastMissThreshold(ctx context.Context, ids []string, threshold int) ([]string, error) {
	return nil, nil
}
func (f *fakeStore) MarkClosed(ctx context.Context, ids []string, ts time.Time) error { return nil }
func (f *fakeStore) RecordRun(ctx context.Context, run domain.ScrapeRun) error        { return nil }
func (f *fakeStore) Close() error                                                     { return nil }

func passthrough(raw types.RawJob) (domain.JobRecord, error) {
	return types.BaseTransform(raw, "acme", "test_scraper")
}

func rawJob(id string) types.RawJob {
	return types.RawJob{
		"id":    id,
		"title": "Engineer " + id,
		"url":   "https://example.com/jobs/" + id,
	}
}

func TestNewWriterRejectsBadConfig(t *testing.T) {
	st := &fakeStore{}

	_, err := NewWriter(st, passthrough, Config{BatchSize: 0})
	require.Error(t, err)

	_, err = NewWriter(st, passthrough, Config{BatchSize: -5})
	require.Error(t, err)

	_, err = NewWriter(st, nil, Config{BatchSize: 10})
	require.Error(t, err)
}

func TestWriterAutoFlushAtBatchSize(t *testing.T) {
	st := &fakeStore{}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 3, UseUpsert: true})
	require.NoError(t, err)

	ts := time.Now().UTC()
	w.Add(context.Background(), rawJob("a"), ts)
	w.Add(context.Background(), rawJob("b"), ts)
	require.Equal(t, 0, st.bulkCalls)
	require.Equal(t, 2, w.BufferLen())

	w.Add(context.Background(), rawJob("c"), ts)
	require.Equal(t, 1, st.bulkCalls)
	require.Equal(t, 0, w.BufferLen())

	w.Add(context.Background(), rawJob("d"), ts)
	n := w.Flush(context.Background())
	require.Equal(t, 1, n)

	s := w.Stats()
	require.Equal(t, 4, s.Processed)
	require.Equal(t, 4, s.Written)
	require.Equal(t, 2, s.Batches)
	require.Equal(t, 0, s.Errors)
}

func TestWriterStampsRecords(t *testing.T) {
	st := &fakeStore{}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 10, DetailsScraped: true, UseUpsert: true})
	require.NoError(t, err)

	ts := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	w.Add(context.Background(), rawJob("a"), ts)
	w.Flush(context.Background())

	require.Len(t, st.written, 1)
	got := st.written[0]
	require.Equal(t, ts, got.CreatedAt)
	require.Equal(t, ts, got.FirstSeenAt)
	require.Equal(t, ts, got.LastSeenAt)
	require.True(t, got.DetailsScraped)
	require.Equal(t, domain.StatusOpen, got.Status)
}

func TestWriterTransformErrorIsIsolated(t *testing.T) {
	st := &fakeStore{}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 10, UseUpsert: true})
	require.NoError(t, err)

	ts := time.Now().UTC()
	w.Add(context.Background(), rawJob("a"), ts)
	w.Add(context.Background(), types.RawJob{"id": "bad"}, ts) // no title/url
	w.Add(context.Background(), rawJob("c"), ts)
	w.Flush(context.Background())

	s := w.Stats()
	require.Equal(t, 2, s.Processed)
	require.Equal(t, 2, s.Written)
	require.Equal(t, 1, s.Errors)
}

func TestWriterBulkFailureFallsBackRowByRow(t *testing.T) {
	st := &fakeStore{
		bulkErr:    errors.New("deadlock"),
		failRowIDs: map[string]bool{"b": true},
	}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 10, UseUpsert: true})
	require.NoError(t, err)

	ts := time.Now().UTC()
	w.Add(context.Background(), rawJob("a"), ts)
	w.Add(context.Background(), rawJob("b"), ts)
	w.Add(context.Background(), rawJob("c"), ts)
	n := w.Flush(context.Background())

	require.Equal(t, 2, n)
	require.Equal(t, 3, st.upsertCalls)
	require.Equal(t, 0, w.BufferLen()) // buffer cleared even after failures

	s := w.Stats()
	require.Equal(t, 2, s.Written)
	require.Equal(t, 0, s.Batches)
	require.Equal(t, 2, s.Errors) // one bulk failure, one rejected row
}

func TestWriterInsertModeUsesInsertPath(t *testing.T) {
	st := &fakeStore{bulkErr: errors.New("boom")}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 10, UseUpsert: false})
	require.NoError(t, err)

	w.Add(context.Background(), rawJob("a"), time.Now().UTC())
	w.Flush(context.Background())

	require.Equal(t, 1, st.insertCalls)
	require.Equal(t, 0, w.Stats().Batches)
}

func TestWriterFlushEmptyBuffer(t *testing.T) {
	st := &fakeStore{}
	w, err := NewWriter(st, passthrough, Config{BatchSize: 5, UseUpsert: true})
	require.NoError(t, err)

	require.Equal(t, 0, w.Flush(context.Background()))
	require.Equal(t, 0, st.bulkCalls)
}
