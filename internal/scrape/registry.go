package scrape

import (
	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/scrape/greenhouse"
	"jobwatch-engine/internal/scrape/lever"
	"jobwatch-engine/internal/scrape/types"
	"jobwatch-engine/internal/scrape/util"
)

// Target is one company bound to the adapter that scrapes it.
type Target struct {
	Company string
	Adapter types.Adapter
}

// BuildTargets expands the enabled sources into per-company adapters. The
// company selector "" or "all" keeps everything.
func BuildTargets(cfg config.Config, limiter *util.HostLimiter, company string) []Target {
	keep := func(name string) bool {
		return company == "" || company == "all" || company == name
	}

	var out []Target
	if cfg.Sources.Greenhouse.Enabled {
		for _, co := range cfg.Sources.Greenhouse.Companies {
			if keep(co.Name) {
				out = append(out, Target{Company: co.Name, Adapter: greenhouse.New(co, limiter)})
			}
		}
	}
	if cfg.Sources.Lever.Enabled {
		for _, co := range cfg.Sources.Lever.Companies {
			if keep(co.Name) {
				out = append(out, Target{Company: co.Name, Adapter: lever.New(co, limiter)})
			}
		}
	}
	return out
}
