package greenhouse

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

	"github.com/PuerkitoBio/goquery"
)

const SourceID = "greenhouse_scraper"

// Adapter lists one company's board via the Greenhouse boards API and
// enriches postings from their public pages.
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

func (a *Adapter) Name() string { return "greenhouse" }

type boardJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	UpdatedAt   string `json:"updated_at"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
}

type boardResponse struct {
	Jobs []boardJob `json:"jobs"`
}

func (a *Adapter) ListSummaries(ctx context.Context) ([]types.Summary, error) {
	apiURL := fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs", a.company.Slug)

	var board boardResponse
	if err := a.getJSON(ctx, apiURL, &board); err != nil {
		return nil, fmt.Errorf("greenhouse board %s: %w", a.company.Slug, err)
	}

	out := make([]types.Summary, 0, len(board.Jobs))
	for _, j := range board.Jobs {
		if j.ID == 0 || j.AbsoluteURL == "" || strings.TrimSpace(j.Title) == "" {
			continue
		}
		out = append(out, types.Summary{
			ID:       fmt.Sprintf("greenhouse:%s:%d", a.company.Slug, j.ID),
			Title:    util.CleanText(j.Title),
			URL:      j.AbsoluteURL,
			Location: util.NormalizeLocation(j.Location.Name),
			PostedOn: j.UpdatedAt,
		})
	}
	return out, nil
}

// FetchDetails pulls the public posting page. Boards wrap descriptions
// differently, so missing sections are left out rather than erroring.
func (a *Adapter) FetchDetails(ctx context.Context, s types.Summary) (types.RawJob, error) {
	if a.limiter != nil {
		if err := a.limiter.WaitURL(ctx, s.URL); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	req.Header.Set("User-Agent", userAgent)

	res, err := a.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("greenhouse job page: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("greenhouse job page status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("greenhouse parse job page: %w", err)
	}

	raw := s.Raw()
	if loc := util.FindLocation(doc); loc != "" {
		raw["location"] = loc
	}
	if sel := doc.Find("#content").First(); sel.Length() > 0 {
		if h, herr := sel.Html(); herr == nil {
			raw["description_html"] = h
		}
	}
	if t := util.CleanText(doc.Find("h1").First().Text()); t != "" {
		raw["title"] = t
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
	req.Header.Set("User-Agent", userAgent)

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

const userAgent = "JobWatch/1.0 (+local)"
