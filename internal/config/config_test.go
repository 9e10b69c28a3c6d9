package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleYAML = `
store:
  target: "postgres://scraper@db.internal/jobs"
  env: "qa"
scrape:
  batch_size: 25
  detail_scrape: true
filters:
  titles_block: ["recruiter"]
sources:
  greenhouse:
    enabled: true
    companies:
      - name: "acme"
        slug: "acmecorp"
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "postgres://scraper@db.internal/jobs", cfg.Store.Target)
	require.Equal(t, "qa", cfg.Store.Env)
	require.Equal(t, 25, cfg.Scrape.BatchSize)
	require.True(t, cfg.Scrape.DetailScrape)
	require.Equal(t, []string{"recruiter"}, cfg.Filters.TitlesBlock)
	require.Len(t, cfg.Sources.Greenhouse.Companies, 1)
	require.Equal(t, "acmecorp", cfg.Sources.Greenhouse.Companies[0].Slug)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestEnsureUserConfigCopiesOnce(t *testing.T) {
	dataDir := t.TempDir()
	defaultPath := filepath.Join(t.TempDir(), "default.yml")
	require.NoError(t, os.WriteFile(defaultPath, []byte(sampleYAML), 0o644))

	path, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dataDir, "config.yml"), path)

	// A user edit survives later bootstraps.
	require.NoError(t, os.WriteFile(path, []byte("store:\n  env: edited\n"), 0o644))
	again, err := EnsureUserConfig(dataDir, defaultPath)
	require.NoError(t, err)
	cfg, err := Load(again)
	require.NoError(t, err)
	require.Equal(t, "edited", cfg.Store.Env)
}
