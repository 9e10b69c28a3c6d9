package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Company struct {
	Name string `yaml:"name"` // store scope, e.g. "acme"
	Slug string `yaml:"slug"` // board slug at the source
}

type Source struct {
	Enabled   bool      `yaml:"enabled"`
	Companies []Company `yaml:"companies"`
}

type Filters struct {
	TitlesAllow []string `yaml:"titles_allow"`
	TitlesBlock []string `yaml:"titles_block"`
}

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Store struct {
		Target string `yaml:"target"` // sqlite file path or postgres:// URL
		Env    string `yaml:"env"`    // table namespace: local/qa/prod
	} `yaml:"store"`

	Scrape struct {
		BatchSize          int     `yaml:"batch_size"`
		MissedRunThreshold int     `yaml:"missed_run_threshold"`
		DetailScrape       bool    `yaml:"detail_scrape"`
		DelayMinMS         int     `yaml:"delay_min_ms"`
		DelayMaxMS         int     `yaml:"delay_max_ms"`
		HostRatePerSec     float64 `yaml:"host_rate_per_sec"`
		HostRateBurst      int     `yaml:"host_rate_burst"`
	} `yaml:"scrape"`

	Filters Filters `yaml:"filters"`

	Sources struct {
		Greenhouse Source `yaml:"greenhouse"`
		Lever      Source `yaml:"lever"`
	} `yaml:"sources"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}
