package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/scrape/types"
	"jobwatch-engine/internal/store"
)

// Stats are the writer's running counters. Errors covers transform failures
// and fallback row failures; neither aborts the batch.
type Stats struct {
	Processed int // records accepted into the buffer
	Written   int // records durably written
	Batches   int // bulk flushes that succeeded as one transaction
	Errors    int
}

type Config struct {
	BatchSize      int
	DetailsScraped bool // stamped onto every record
	UseUpsert      bool // upsert (reactivates closed jobs) vs insert (skip on conflict)
}

// Writer buffers transformed job records and writes them in bounded-size
// transactional batches. When a bulk write fails it falls back to single-row
// writes so one bad record never poisons the rest of the batch.
type Writer struct {
	st        store.Store
	transform types.TransformFunc
	cfg       Config

	buf   []domain.JobRecord
	stats Stats
}

func NewWriter(st store.Store, transform types.TransformFunc, cfg Config) (*Writer, error) {
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}
	if transform == nil {
		return nil, errors.New("transform func is nil")
	}
	return &Writer{
		st:        st,
		transform: transform,
		cfg:       cfg,
		buf:       make([]domain.JobRecord, 0, cfg.BatchSize),
	}, nil
}

// Add transforms raw adapter data, stamps the observation timestamp, and
// buffers the record, flushing when the batch size is reached. A transform
// failure is counted and the item dropped; the batch continues.
func (w *Writer) Add(ctx context.Context, raw types.RawJob, ts time.Time) {
	job, err := w.transform(raw)
	if err != nil {
		log.Printf("[batch] transform error id=%v: %v", raw["id"], err)
		w.stats.Errors++
		return
	}

	job.CreatedAt = ts
	job.FirstSeenAt = ts
	job.LastSeenAt = ts
	job.DetailsScraped = w.cfg.DetailsScraped
	if job.Status == "" {
		job.Status = domain.StatusOpen
	}

	w.buf = append(w.buf, job)
	w.stats.Processed++

	if len(w.buf) >= w.cfg.BatchSize {
		w.Flush(ctx)
	}
}

// Flush writes the buffer in one transaction, falling back to row-by-row
// writes on failure. The buffer is cleared either way. Returns the number of
// records written in this flush.
func (w *Writer) Flush(ctx context.Context) int {
	if len(w.buf) == 0 {
		return 0
	}

	bulk := w.st.InsertJobs
	if w.cfg.UseUpsert {
		bulk = w.st.UpsertJobs
	}

	count, err := bulk(ctx, w.buf)
	if err != nil {
		log.Printf("[batch] bulk write failed, falling back to single rows: %v", err)
		w.stats.Errors++
		count = w.fallback(ctx)
	} else {
		w.stats.Batches++
	}

	w.stats.Written += count
	log.Printf("[batch] flushed %d jobs (total written: %d)", count, w.stats.Written)
	w.buf = w.buf[:0]
	return count
}

func (w *Writer) fallback(ctx context.Context) int {
	write := w.st.InsertJob
	if w.cfg.UseUpsert {
		write = w.st.UpsertJob
	}

	count := 0
	for _, job := range w.buf {
		if err := write(ctx, job); err != nil {
			log.Printf("[batch] fallback write failed for %s: %v", job.ID, err)
			w.stats.Errors++
			continue
		}
		count++
	}
	return count
}

func (w *Writer) Stats() Stats { return w.stats }

func (w *Writer) BufferLen() int { return len(w.buf) }
