package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"jobwatch-engine/internal/config"
	"jobwatch-engine/internal/scrape"
	"jobwatch-engine/internal/scrape/incremental"
	"jobwatch-engine/internal/scrape/util"
	"jobwatch-engine/internal/scheduler"
	"jobwatch-engine/internal/secrets"
	"jobwatch-engine/internal/store"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		cfgPath       = flag.String("config", "", "config file (default: <data dir>/config.yml, bootstrapped from config/config.yml)")
		company       = flag.String("company", "all", "company selector, or 'all'")
		env           = flag.String("env", "", "table namespace (local/qa/prod); overrides config")
		dbTarget      = flag.String("db", "", "sqlite path or postgres:// URL; overrides config")
		incrementalOn = flag.Bool("incremental", true, "incremental mode; false runs a full scrape")
		noDetails     = flag.Bool("no-details", false, "skip detail pages, persist summaries only")
		every         = flag.Duration("every", 0, "rerun on this interval instead of one-shot")
		setPassword   = flag.Bool("set-password", false, "read a store password from stdin into the OS keychain and exit")
	)
	flag.Parse()

	dataDir := os.Getenv("JOBWATCH_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	path := *cfgPath
	if path == "" {
		p, err := config.EnsureUserConfig(dataDir, filepath.Join("config", "config.yml"))
		if err != nil {
			log.Fatalf("config bootstrap failed: %v", err)
		}
		path = p
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", path, err)
	}
	cfg, validation := config.NormalizeAndValidate(cfg)
	for _, w := range validation.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !validation.OK() {
		for _, e := range validation.Errors {
			log.Printf("[config] error: %s", e)
		}
		os.Exit(1)
	}

	if *env != "" {
		cfg.Store.Env = *env
	}
	if *dbTarget != "" {
		cfg.Store.Target = *dbTarget
	}
	if *noDetails {
		cfg.Scrape.DetailScrape = false
	}

	target := cfg.Store.Target
	isPostgres := strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")

	if *setPassword {
		if err := storePasswordFromStdin(target); err != nil {
			log.Fatal(err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if isPostgres {
		target, err = withKeyringPassword(target)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		// One engine per sqlite data dir; a second process would fight the
		// single writer.
		lock := flock.New(filepath.Join(dataDir, "engine.lock"))
		ok, lerr := lock.TryLock()
		if lerr != nil {
			log.Fatalf("lock %s: %v", lock.Path(), lerr)
		}
		if !ok {
			log.Fatalf("another engine instance holds %s", lock.Path())
		}
		defer func() { _ = lock.Unlock() }()
	}

	st, err := store.Open(ctx, target, cfg.Store.Env)
	if err != nil {
		log.Fatalf("store open failed: %v", err) // store-connection errors are fatal
	}
	defer st.Close()

	if err := st.InitSchema(ctx); err != nil {
		log.Fatalf("store schema init failed: %v", err)
	}

	limiter := util.NewHostLimiter(cfg.Scrape.HostRatePerSec, cfg.Scrape.HostRateBurst)
	targets := scrape.BuildTargets(cfg, limiter, *company)
	if len(targets) == 0 {
		log.Fatalf("no enabled source matches company %q", *company)
	}

	mode := incremental.ModeIncremental
	if !*incrementalOn {
		mode = incremental.ModeFull
	}
	keepTitle := scrape.TitleFilter(cfg.Filters)
	delayMin := time.Duration(cfg.Scrape.DelayMinMS) * time.Millisecond
	delayMax := time.Duration(cfg.Scrape.DelayMaxMS) * time.Millisecond

	runAll := func(ctx context.Context) error {
		var failed atomic.Int64
		var g errgroup.Group

		for _, t := range targets {
			t := t
			g.Go(func() error {
				res, err := incremental.Run(ctx, st, t.Adapter, incremental.Options{
					Company:       t.Company,
					Mode:          mode,
					DetailScrape:  cfg.Scrape.DetailScrape,
					BatchSize:     cfg.Scrape.BatchSize,
					MissThreshold: cfg.Scrape.MissedRunThreshold,
					KeepTitle:     keepTitle,
					Pause: func(ctx context.Context) error {
						return util.Pause(ctx, delayMin, delayMax)
					},
				})
				if err != nil {
					log.Printf("[engine] %s failed (run=%s): %v", t.Company, res.RunID, err)
					failed.Add(1)
					return nil // don't cancel sibling companies
				}
				log.Printf("[engine] %s run=%s seen=%d new=%d closed=%d details=%d errors=%d",
					t.Company, res.RunID, res.JobsSeen, res.NewJobs, res.ClosedJobs,
					res.DetailsFetched, res.ErrorCount)
				return nil
			})
		}
		_ = g.Wait()

		if n := failed.Load(); n > 0 {
			return fmt.Errorf("%d of %d company runs failed", n, len(targets))
		}
		return nil
	}

	if *every > 0 {
		log.Printf("[engine] scraping every %s (companies=%d env=%s)", *every, len(targets), cfg.Store.Env)
		scheduler.Every(ctx, *every, "scrape", runAll)
		return
	}

	if err := runAll(ctx); err != nil {
		log.Printf("[engine] %v", err)
		os.Exit(1)
	}
}

// withKeyringPassword fills in the postgres password from the OS keychain
// when the URL has a user but no password.
func withKeyringPassword(target string) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("parse db url: %w", err)
	}
	if u.User == nil {
		return target, nil
	}
	if _, has := u.User.Password(); has {
		return target, nil
	}

	account := secrets.StoreKeyringAccount(u.User.Username(), u.Host)
	pw, err := secrets.GetStorePassword(account)
	if err != nil {
		// No entry is fine; the server may not want a password.
		return target, nil
	}
	u.User = url.UserPassword(u.User.Username(), pw)
	return u.String(), nil
}

func storePasswordFromStdin(target string) error {
	u, err := url.Parse(target)
	if err != nil || u.User == nil {
		return fmt.Errorf("-set-password needs a postgres:// db target with a user")
	}

	fmt.Fprint(os.Stderr, "password: ")
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return err
	}

	account := secrets.StoreKeyringAccount(u.User.Username(), u.Host)
	if err := secrets.SetStorePassword(account, strings.TrimSpace(line)); err != nil {
		return err
	}
	log.Printf("[engine] stored password for %s", account)
	return nil
}
