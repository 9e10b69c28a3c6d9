package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindLocation digs a location string out of a job detail page, trying the
// selectors boards actually use before falling back to labeled text.
func FindLocation(doc *goquery.Document) string {
	candidates := []string{
		".location",
		".job__location",
		"[data-testid='job-location']",
		"[data-testid='location']",
	}
	for _, sel := range candidates {
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return NormalizeLocation(t)
		}
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if loc := locationAfterLabel(v); loc != "" {
			return NormalizeLocation(loc)
		}
	}
	if loc := locationAfterLabel(CleanText(doc.Find("body").Text())); loc != "" {
		return NormalizeLocation(loc)
	}
	return ""
}

// locationAfterLabel extracts text following "Location:"-style labels.
func locationAfterLabel(s string) string {
	low := strings.ToLower(s)

	for _, label := range []string{"location:", "locations:", "job location:"} {
		i := strings.Index(low, label)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(s[i+len(label):])
		for _, cut := range []string{"\n", "\r", " | "} {
			if j := strings.Index(rest, cut); j >= 0 {
				rest = rest[:j]
			}
		}
		rest = CleanText(rest)
		if rest != "" && len(rest) <= 80 {
			return rest
		}
	}
	return ""
}
