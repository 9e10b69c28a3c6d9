package util

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestFindLocationSelectors(t *testing.T) {
	doc := docFrom(t, `<html><body><div class="location">  Remote,  US </div></body></html>`)
	require.Equal(t, "Remote, US", FindLocation(doc))

	doc = docFrom(t, `<html><body><span data-testid="job-location">Berlin</span></body></html>`)
	require.Equal(t, "Berlin", FindLocation(doc))
}

func TestFindLocationFromMeta(t *testing.T) {
	doc := docFrom(t, `<html><head>
<meta property="og:description" content="Great role. Location: Austin, TX | Full time">
</head><body></body></html>`)
	require.Equal(t, "Austin, TX", FindLocation(doc))
}

func TestFindLocationFromBodyLabel(t *testing.T) {
	doc := docFrom(t, `<html><body><p>Job Location: London | Posted today</p></body></html>`)
	require.Equal(t, "London", FindLocation(doc))
}

func TestFindLocationAbsent(t *testing.T) {
	doc := docFrom(t, `<html><body><p>No hints here</p></body></html>`)
	require.Equal(t, "", FindLocation(doc))
}
