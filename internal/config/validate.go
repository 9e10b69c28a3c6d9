package config

import (
	"fmt"
	"strings"
)

type Validation struct {
	Errors   []string
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate fills documented defaults and returns a normalized
// copy plus whatever is wrong with it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	out := cfg
	var res Validation

	// ---- Defaults ----

	if out.Store.Target == "" {
		out.Store.Target = "jobwatch.db"
	}
	if out.Store.Env == "" {
		out.Store.Env = "local"
	}
	if out.Scrape.BatchSize == 0 {
		out.Scrape.BatchSize = 50
	}
	if out.Scrape.MissedRunThreshold == 0 {
		out.Scrape.MissedRunThreshold = 2
	}
	if out.Scrape.DelayMinMS == 0 {
		out.Scrape.DelayMinMS = 1000
	}
	if out.Scrape.DelayMaxMS == 0 {
		out.Scrape.DelayMaxMS = 3000
	}
	if out.Scrape.HostRatePerSec == 0 {
		out.Scrape.HostRatePerSec = 2
	}
	if out.Scrape.HostRateBurst == 0 {
		out.Scrape.HostRateBurst = 4
	}

	out.Filters.TitlesAllow = trimList(out.Filters.TitlesAllow)
	out.Filters.TitlesBlock = trimList(out.Filters.TitlesBlock)

	// ---- Validation rules ----

	if out.Scrape.BatchSize < 0 {
		res.addErr("scrape.batch_size must be > 0")
	}
	if out.Scrape.MissedRunThreshold < 0 {
		res.addErr("scrape.missed_run_threshold must be >= 1")
	}
	if out.Scrape.DelayMaxMS < out.Scrape.DelayMinMS {
		res.addErr("scrape.delay_max_ms (%d) is below delay_min_ms (%d)",
			out.Scrape.DelayMaxMS, out.Scrape.DelayMinMS)
	}
	if out.Scrape.DelayMinMS < 200 {
		res.addWarn("scrape.delay_min_ms is very low (%d) and may trip upstream rate limits", out.Scrape.DelayMinMS)
	}

	for _, env := range []string{out.Store.Env} {
		for _, r := range env {
			if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' {
				res.addErr("store.env %q: only [a-z0-9_] allowed (it names the tables)", env)
				break
			}
		}
	}

	// one company name per store scope, across all sources
	seen := map[string]bool{}
	checkCompanies := func(source string, cos []Company) {
		for _, co := range cos {
			name := strings.ToLower(strings.TrimSpace(co.Name))
			if name == "" {
				res.addErr("sources.%s: company with empty name (slug=%q)", source, co.Slug)
				continue
			}
			if strings.TrimSpace(co.Slug) == "" {
				res.addErr("sources.%s: company %q has no slug", source, co.Name)
			}
			if seen[name] {
				res.addWarn("company %q appears under more than one source; their jobs will share one scope", co.Name)
			}
			seen[name] = true
		}
	}
	if out.Sources.Greenhouse.Enabled {
		checkCompanies("greenhouse", out.Sources.Greenhouse.Companies)
	}
	if out.Sources.Lever.Enabled {
		checkCompanies("lever", out.Sources.Lever.Companies)
	}

	// block/allow conflicts
	blockSet := map[string]bool{}
	for _, b := range out.Filters.TitlesBlock {
		blockSet[strings.ToLower(b)] = true
	}
	for _, a := range out.Filters.TitlesAllow {
		if blockSet[strings.ToLower(a)] {
			res.addWarn("title keyword appears in both allow and block: %q", a)
		}
	}

	return out, res
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
