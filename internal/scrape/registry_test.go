package scrape

import (
	"testing"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/scrape/util"

	"github.com/stretchr/testify/require"
)

func registryConfig() config.Config {
	var cfg config.Config
	cfg.Sources.Greenhouse.Enabled = true
	cfg.Sources.Greenhouse.Companies = []config.Company{
		{Name: "acme", Slug: "acme"},
		{Name: "globex", Slug: "globex"},
	}
	cfg.Sources.Lever.Enabled = true
	cfg.Sources.Lever.Companies = []config.Company{
		{Name: "initech", Slug: "initech"},
	}
	return cfg
}

func TestBuildTargetsAll(t *testing.T) {
	limiter := util.NewHostLimiter(2, 4)

	targets := BuildTargets(registryConfig(), limiter, "all")
	require.Len(t, targets, 3)

	names := map[string]string{}
	for _, tg := range targets {
		names[tg.Company] = tg.Adapter.Name()
	}
	require.Equal(t, "greenhouse", names["acme"])
	require.Equal(t, "greenhouse", names["globex"])
	require.Equal(t, "lever", names["initech"])
}

func TestBuildTargetsSingleCompany(t *testing.T) {
	limiter := util.NewHostLimiter(2, 4)

	targets := BuildTargets(registryConfig(), limiter, "initech")
	require.Len(t, targets, 1)
	require.Equal(t, "initech", targets[0].Company)
}

func TestBuildTargetsDisabledSource(t *testing.T) {
	cfg := registryConfig()
	cfg.Sources.Lever.Enabled = false

	targets := BuildTargets(cfg, util.NewHostLimiter(2, 4), "all")
	require.Len(t, targets, 2)
}

func TestBuildTargetsNoMatch(t *testing.T) {
	targets := BuildTargets(registryConfig(), util.NewHostLimiter(2, 4), "hooli")
	require.Empty(t, targets)
}
