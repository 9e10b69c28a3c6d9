package incremental

import (
	"context"
	"log"
	"time"

	"jobwatch-engine/internal/store"
)

// MissedRunThreshold is the default number of consecutive misses before a job
// is marked CLOSED. With the default of 2, a job missing from its second
// consecutive scrape closes (the increment happens before the check).
const MissedRunThreshold = 2

// UpdateExisting applies the lifecycle transitions for one run: still-active
// ids get a fresh last_seen and a miss reset, missing ids get their miss
// counter bumped, and anything at or past the threshold is closed. Both sides
// are set-based updates, not per-id loops. Returns the number of jobs closed.
func UpdateExisting(ctx context.Context, st store.Store, stillActive, missing map[string]struct{}, threshold int, ts time.Time) (int, error) {
	if len(stillActive) > 0 {
		if err := st.UpdateLastSeen(ctx, setToSlice(stillActive), ts); err != nil {
			return 0, err
		}
	}

	if len(missing) == 0 {
		return 0, nil
	}

	missingIDs := setToSlice(missing)
	if err := st.IncrementMisses(ctx, missingIDs); err != nil {
		return 0, err
	}

	// Misses were just incremented, so the check is >= threshold.
	toClose, err := st.IDsPastMissThreshold(ctx, missingIDs, threshold)
	if err != nil {
		return 0, err
	}
	if len(toClose) == 0 {
		return 0, nil
	}

	if err := st.MarkClosed(ctx, toClose, ts); err != nil {
		return 0, err
	}
	log.Printf("[incremental] closed %d jobs past miss threshold", len(toClose))
	return len(toClose), nil
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
