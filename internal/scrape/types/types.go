package types

import (
	"context"

	"jobwatch-engine/internal/domain"
)

// Summary is the cheap listing-page view of one posting: enough to diff
// against the store without touching the detail page.
type Summary struct {
	ID       string
	Title    string
	URL      string
	Location string
	PostedOn string
}

// RawJob is adapter-native job data. The engine moves it around but never
// reads its keys; only the adapter's Transform interprets it.
type RawJob map[string]any

// Raw lifts a summary into the RawJob shape adapters enrich in place.
func (s Summary) Raw() RawJob {
	return RawJob{
		"id":        s.ID,
		"title":     s.Title,
		"url":       s.URL,
		"location":  s.Location,
		"posted_on": s.PostedOn,
	}
}

// TransformFunc maps adapter-native data to the canonical record.
type TransformFunc func(raw RawJob) (domain.JobRecord, error)

// Adapter is one source's listing logic. ListSummaries is the only call that
// sweeps the whole site; FetchDetails is one posting at a time and may fail
// per job without sinking the run.
type Adapter interface {
	Name() string
	ListSummaries(ctx context.Context) ([]Summary, error)
	FetchDetails(ctx context.Context, s Summary) (RawJob, error)
	Transform(raw RawJob) (domain.JobRecord, error)
}
