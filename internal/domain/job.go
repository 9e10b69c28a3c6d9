package domain

import "time"

const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// JobRecord is one observed posting. IDs are source-assigned and unique within
// a source+company scope; some sources embed a location suffix (e.g.
// "200640732-0836") so the same req in two offices stays two records.
type JobRecord struct {
	ID       string
	Title    string
	Company  string
	Location string
	URL      string
	SourceID string // which adapter produced it, e.g. "greenhouse_scraper"

	// Opaque adapter payload (qualifications, description, raw upstream data).
	// The engine never reads its keys.
	Details map[string]any

	PostedOn  string // upstream posting date when the source exposes one
	CreatedAt time.Time
	ClosedOn  *time.Time // non-nil iff Status == CLOSED

	Status string

	FirstSeenAt       time.Time
	LastSeenAt        time.Time
	ConsecutiveMisses int
	DetailsScraped    bool
}

// ScrapeRun is the audit record for one engine invocation. Written exactly
// once, at the end of the run, success or failure.
type ScrapeRun struct {
	RunID       string
	Company     string
	StartedAt   time.Time
	CompletedAt *time.Time // nil signals a run that crashed before finishing
	Mode        string     // "incremental" or "full"

	JobsSeen       int
	NewJobs        int
	ClosedJobs     int
	DetailsFetched int
	ErrorCount     int
}
