package incremental

import (
	"context"
	"fmt"
	"log"
	"time"

	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/scrape/batch"
	"jobwatch-engine/internal/scrape/types"
	"jobwatch-engine/internal/store"

	"github.com/google/uuid"
)

const (
	ModeIncremental = "incremental"
	ModeFull        = "full"
)

type Options struct {
	Company       string
	Mode          string // ModeIncremental (default) or ModeFull
	DetailScrape  bool
	BatchSize     int
	MissThreshold int

	// KeepTitle filters summaries before the diff; nil keeps everything.
	KeepTitle func(title string) bool

	// Pause runs between consecutive detail fetches (randomized delay as
	// upstream backpressure); nil means no delay.
	Pause func(ctx context.Context) error
}

type Result struct {
	RunID          string
	JobsSeen       int
	NewJobs        int
	ClosedJobs     int
	DetailsFetched int
	ErrorCount     int
}

// Run executes the 5-phase scrape for one company:
//
//  1. snapshot: list summaries across all configured queries
//  2. diff: current ids vs known-open ids in the store
//  3. enrich: detail-fetch NEW ids only, streaming into the batch writer
//  4. lifecycle: reset misses for still-active, increment/close missing
//  5. audit: record the ScrapeRun, always, even when an earlier phase failed
//
// Full mode skips phases 2 and 4 (everything is new, insert skip-on-conflict).
// The original error, if any, is returned after the audit write.
func Run(ctx context.Context, st store.Store, ad types.Adapter, opts Options) (Result, error) {
	if opts.Mode == "" {
		opts.Mode = ModeIncremental
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.MissThreshold <= 0 {
		opts.MissThreshold = MissedRunThreshold
	}

	result := Result{RunID: uuid.NewString()}
	started := time.Now().UTC()

	log.Printf("[incremental] starting %s scrape company=%s source=%s", opts.Mode, opts.Company, ad.Name())

	runErr := runPhases(ctx, st, ad, opts, started, &result)
	if runErr != nil {
		log.Printf("[incremental] scrape failed for %s: %v", opts.Company, runErr)
		result.ErrorCount++
	}

	// Phase 5: the audit record is the only durable signal a run was
	// attempted, so it is written even on failure.
	completed := time.Now().UTC()
	run := domain.ScrapeRun{
		RunID:          result.RunID,
		Company:        opts.Company,
		StartedAt:      started,
		CompletedAt:    &completed,
		Mode:           opts.Mode,
		JobsSeen:       result.JobsSeen,
		NewJobs:        result.NewJobs,
		ClosedJobs:     result.ClosedJobs,
		DetailsFetched: result.DetailsFetched,
		ErrorCount:     result.ErrorCount,
	}
	if err := st.RecordRun(ctx, run); err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("record run: %w", err)
		} else {
			log.Printf("[incremental] record run failed after scrape error: %v", err)
		}
	}

	if runErr == nil {
		log.Printf("[incremental] complete company=%s seen=%d new=%d closed=%d details=%d errors=%d",
			opts.Company, result.JobsSeen, result.NewJobs, result.ClosedJobs,
			result.DetailsFetched, result.ErrorCount)
	}
	return result, runErr
}

func runPhases(ctx context.Context, st store.Store, ad types.Adapter, opts Options, ts time.Time, result *Result) error {
	// Phase 1: snapshot
	summaries, err := ad.ListSummaries(ctx)
	if err != nil {
		return fmt.Errorf("list summaries: %w", err)
	}
	if opts.KeepTitle != nil {
		kept := summaries[:0]
		for _, s := range summaries {
			if opts.KeepTitle(s.Title) {
				kept = append(kept, s)
			}
		}
		summaries = kept
	}
	result.JobsSeen = len(summaries)

	current := make(map[string]struct{}, len(summaries))
	for _, s := range summaries {
		current[s.ID] = struct{}{}
	}

	// Phase 2: diff against the store
	knownOpen := map[string]struct{}{}
	if opts.Mode == ModeIncremental {
		knownOpen, err = st.ActiveJobIDs(ctx, opts.Company)
		if err != nil {
			return fmt.Errorf("load known-open ids: %w", err)
		}
	}
	d := CalculateDiff(current, knownOpen)
	result.NewJobs = len(d.New)
	log.Printf("[incremental] diff company=%s new=%d active=%d missing=%d",
		opts.Company, len(d.New), len(d.StillActive), len(d.Missing))

	// Phase 3: enrich and persist new jobs only
	writer, err := batch.NewWriter(st, ad.Transform, batch.Config{
		BatchSize:      opts.BatchSize,
		DetailsScraped: opts.DetailScrape,
		UseUpsert:      opts.Mode == ModeIncremental,
	})
	if err != nil {
		return err
	}

	for _, s := range summaries {
		if _, ok := d.New[s.ID]; !ok {
			continue
		}
		if !opts.DetailScrape {
			writer.Add(ctx, s.Raw(), ts)
			continue
		}

		if opts.Pause != nil {
			if err := opts.Pause(ctx); err != nil {
				return err
			}
		}
		raw, ferr := ad.FetchDetails(ctx, s)
		if ferr != nil {
			// The job is still persisted from its summary, with a marker, so
			// a flaky detail page never loses the posting.
			log.Printf("[incremental] detail fetch failed id=%s: %v", s.ID, ferr)
			result.ErrorCount++
			raw = s.Raw()
			raw["detail_fetch_error"] = ferr.Error()
		} else {
			result.DetailsFetched++
		}
		writer.Add(ctx, raw, ts)
	}
	writer.Flush(ctx)

	ws := writer.Stats()
	result.ErrorCount += ws.Errors
	log.Printf("[incremental] persisted %d jobs in %d batches (%d errors)",
		ws.Written, ws.Batches, ws.Errors)

	// Phase 4: lifecycle updates for everything that was already known
	if opts.Mode == ModeIncremental {
		closed, err := UpdateExisting(ctx, st, d.StillActive, d.Missing, opts.MissThreshold, ts)
		if err != nil {
			return fmt.Errorf("update existing: %w", err)
		}
		result.ClosedJobs = closed
	}
	return nil
}
