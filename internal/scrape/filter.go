package scrape

import (
	"strings"

	"jobwatch-engine/internal/config"
)

// TitleFilter builds the keep-this-title predicate from config. Blocklist
// wins; an empty allowlist keeps everything not blocked.
func TitleFilter(f config.Filters) func(string) bool {
	allow := lowerTrim(f.TitlesAllow)
	block := lowerTrim(f.TitlesBlock)

	return func(title string) bool {
		t := strings.ToLower(strings.TrimSpace(title))

		for _, b := range block {
			if strings.Contains(t, b) {
				return false
			}
		}
		if len(allow) == 0 {
			return true
		}
		for _, a := range allow {
			if strings.Contains(t, a) {
				return true
			}
		}
		return false
	}
}

func lowerTrim(xs []string) []string {
	var out []string
	for _, x := range xs {
		x = strings.ToLower(strings.TrimSpace(x))
		if x != "" {
			out = append(out, x)
		}
	}
	return out
}
