package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeFillsDefaults(t *testing.T) {
	out, res := NormalizeAndValidate(Config{})
	require.True(t, res.OK())

	require.Equal(t, "jobwatch.db", out.Store.Target)
	require.Equal(t, "local", out.Store.Env)
	require.Equal(t, 50, out.Scrape.BatchSize)
	require.Equal(t, 2, out.Scrape.MissedRunThreshold)
	require.Equal(t, 1000, out.Scrape.DelayMinMS)
	require.Equal(t, 3000, out.Scrape.DelayMaxMS)
	require.Equal(t, 2.0, out.Scrape.HostRatePerSec)
	require.Equal(t, 4, out.Scrape.HostRateBurst)
}

func TestValidateDelayOrdering(t *testing.T) {
	var cfg Config
	cfg.Scrape.DelayMinMS = 2000
	cfg.Scrape.DelayMaxMS = 500

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
	require.Contains(t, res.Errors[0], "delay_max_ms")
}

func TestValidateLowDelayWarns(t *testing.T) {
	var cfg Config
	cfg.Scrape.DelayMinMS = 50
	cfg.Scrape.DelayMaxMS = 100

	_, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.NotEmpty(t, res.Warnings)
}

func TestValidateEnvCharset(t *testing.T) {
	var cfg Config
	cfg.Store.Env = "Prod-1"

	_, res := NormalizeAndValidate(cfg)
	require.False(t, res.OK())
}

func TestValidateCompanies(t *testing.T) {
	var cfg Config
	cfg.Sources.Greenhouse.Enabled = true
	cfg.Sources.Greenhouse.Companies = []Company{
		{Name: "acme", Slug: "acme"},
		{Name: "", Slug: "ghost"},
		{Name: "globex", Slug: ""},
	}

	_, res := NormalizeAndValidate(cfg)
	require.Len(t, res.Errors, 2)
}

func TestValidateDuplicateCompanyAcrossSourcesWarns(t *testing.T) {
	var cfg Config
	cfg.Sources.Greenhouse.Enabled = true
	cfg.Sources.Greenhouse.Companies = []Company{{Name: "acme", Slug: "acme"}}
	cfg.Sources.Lever.Enabled = true
	cfg.Sources.Lever.Companies = []Company{{Name: "acme", Slug: "acme-co"}}

	_, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.NotEmpty(t, res.Warnings)
}

func TestNormalizeTrimsAndDedupesFilters(t *testing.T) {
	var cfg Config
	cfg.Filters.TitlesBlock = []string{" recruiter ", "", "Recruiter", "staffing"}

	out, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.Equal(t, []string{"recruiter", "staffing"}, out.Filters.TitlesBlock)
}

func TestValidateAllowBlockConflictWarns(t *testing.T) {
	var cfg Config
	cfg.Filters.TitlesAllow = []string{"engineer"}
	cfg.Filters.TitlesBlock = []string{"engineer"}

	_, res := NormalizeAndValidate(cfg)
	require.True(t, res.OK())
	require.NotEmpty(t, res.Warnings)
}
