package types

import (
	"fmt"
	"strings"

	"jobwatch-engine/internal/domain"
)

// BaseTransform maps the shared raw keys onto a JobRecord and shovels every
// other key into Details untouched. Adapters wrap this when their payloads
// need more than the common shape.
func BaseTransform(raw RawJob, company, sourceID string) (domain.JobRecord, error) {
	id, _ := raw["id"].(string)
	title, _ := raw["title"].(string)
	jobURL, _ := raw["url"].(string)

	if strings.TrimSpace(id) == "" {
		return domain.JobRecord{}, fmt.Errorf("raw job has no id")
	}
	if strings.TrimSpace(jobURL) == "" {
		return domain.JobRecord{}, fmt.Errorf("raw job %s has no url", id)
	}
	if strings.TrimSpace(title) == "" {
		return domain.JobRecord{}, fmt.Errorf("raw job %s has no title", id)
	}

	location, _ := raw["location"].(string)
	postedOn, _ := raw["posted_on"].(string)

	details := make(map[string]any)
	for k, v := range raw {
		switch k {
		case "id", "title", "url", "location", "posted_on":
		default:
			details[k] = v
		}
	}

	return domain.JobRecord{
		ID:       id,
		Title:    title,
		Company:  company,
		Location: location,
		URL:      jobURL,
		SourceID: sourceID,
		Details:  details,
		PostedOn: postedOn,
		Status:   domain.StatusOpen,
	}, nil
}
