package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/domain"
	"jobwatch-engine/internal/scrape/types"
	"jobwatch-engine/internal/scrape/util"
)

const SourceID = "lever_scraper"

// Adapter lists one company's postings from the Lever postings API. Details
// come from the per-posting endpoint, no HTML involved.
type Adapter struct {
	company config.Company
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(company config.Company, limiter *util.HostLimiter) *Adapter {
	return &Adapter{
		company: company,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (a *Adapter) Name() string { return "lever" }

type posting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location   string `json:"location"`
		Team       string `json:"team"`
		Commitment string `json:"commitment"`
	} `json:"categories"`
	Description string `json:"description"` // html
}

func (a *Adapter) ListSummaries(ctx context.Context) ([]types.Summary, error) {
	apiURL := fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", a.company.Slug)

	var postings []posting
	if err := a.getJSON(ctx, apiURL, &postings); err != nil {
		return nil, fmt.Errorf("lever postings %s: %w", a.company.Slug, err)
	}

	out := make([]types.Summary, 0, len(postings))
	for _, p := range postings {
		if p.ID == "" || p.HostedURL == "" || strings.TrimSpace(p.Text) == "" {
			continue
		}
		posted := ""
		if p.CreatedAt > 0 {
			posted = time.UnixMilli(p.CreatedAt).UTC().Format("2006-01-02")
		}
		out = append(out, types.Summary{
			ID:       fmt.Sprintf("lever:%s:%s", a.company.Slug, p.ID),
			Title:    util.CleanText(p.Text),
			URL:      p.HostedURL,
			Location: util.NormalizeLocation(p.Categories.Location),
			PostedOn: posted,
		})
	}
	return out, nil
}

func (a *Adapter) FetchDetails(ctx context.Context, s types.Summary) (types.RawJob, error) {
	// Summary ids are "lever:<slug>:<posting id>"; the API wants the tail.
	parts := strings.Split(s.ID, ":")
	postingID := parts[len(parts)-1]

	apiURL := fmt.Sprintf("https://api.lever.co/v0/postings/%s/%s", a.company.Slug, postingID)

	var p posting
	if err := a.getJSON(ctx, apiURL, &p); err != nil {
		return nil, fmt.Errorf("lever posting %s: %w", postingID, err)
	}

	raw := s.Raw()
	if p.Description != "" {
		raw["description_html"] = p.Description
	}
	if p.Categories.Team != "" {
		raw["team"] = p.Categories.Team
	}
	if p.Categories.Commitment != "" {
		raw["commitment"] = p.Categories.Commitment
	}
	if loc := util.NormalizeLocation(p.Categories.Location); loc != "" {
		raw["location"] = loc
	}
	return raw, nil
}

func (a *Adapter) Transform(raw types.RawJob) (domain.JobRecord, error) {
	return types.BaseTransform(raw, a.company.Name, SourceID)
}

func (a *Adapter) getJSON(ctx context.Context, url string, v any) error {
	if a.limiter != nil {
		if err := a.limiter.WaitURL(ctx, url); err != nil {
			return err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("User-Agent", "JobWatch/1.0 (+local)")

	res, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(v)
}
