package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/classify"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/config"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/dedup"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/events"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/httpapi"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/orchestrator"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scheduler"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/aeroboard"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/airmail"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/skyquest"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/util"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/secrets"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run every enabled scraper once and exit")
	flag.Parse()

	// Data dir: use env if provided, else local folder.
	dataDir := os.Getenv("AEROSCRAP_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	// One process per data dir; a second instance would fight over the sqlite
	// writer and the run registry.
	lock := flock.New(filepath.Join(dataDir, "aeroscrap.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		log.Fatalf("data dir lock: %v", err)
	}
	if !locked {
		log.Fatalf("another aeroscrapd already holds %s", lock.Path())
	}
	defer lock.Unlock()

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	rawCfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	cfg, val := config.NormalizeAndValidate(rawCfg)
	for _, w := range val.Warnings {
		log.Printf("[config] warning: %s", w)
	}
	if !val.OK() {
		for _, e := range val.Errors {
			log.Printf("[config] error: %s", e)
		}
		log.Fatalf("config invalid (%s)", userCfgPath)
	}

	dbPath := filepath.Join(dataDir, "aeroscrap.db")
	db, err := store.Open(dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()
	if err := store.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	jobs := store.NewJobStore(db)
	companies := store.NewCompanyStore(db)
	runs := store.NewRunStore(db)

	ctx := context.Background()

	// Runs left pending/running by a crashed process cannot still be live.
	if n, err := runs.ReconcileOrphans(ctx); err != nil {
		log.Fatalf("reconcile orphans: %v", err)
	} else if n > 0 {
		log.Printf("[main] failed %d orphaned run(s) from a previous process", n)
	}

	runRegistry := orchestrator.NewRunRegistry()
	if active, err := runs.Active(ctx); err != nil {
		log.Fatalf("load active runs: %v", err)
	} else {
		m := make(map[string]string, len(active))
		for _, r := range active {
			m[r.ScraperName] = r.ID
		}
		runRegistry.Hydrate(m)
	}

	scrapers, entries := buildScrapers(cfg)

	classifier := classify.New(companies)
	dd := dedup.New(jobs, dedup.Config{
		SimilarityThreshold: cfg.Dedup.SimilarityThreshold,
		DateWindow:          time.Duration(cfg.Dedup.DateWindowHours) * time.Hour,
	})
	pipeline := orchestrator.NewPipeline(classifier, dd, jobs, cfg.Dedup.DescriptionMaxLen)

	hub := events.NewHub()
	orch := orchestrator.New(scrapers, runRegistry, runs, pipeline, hub,
		time.Duration(cfg.Run.TimeoutMinutes)*time.Minute)

	if *once {
		if err := orch.RunAll(ctx, scrapers.Names(), "cli"); err != nil {
			log.Fatalf("run all: %v", err)
		}
		return
	}

	sched := scheduler.New(orch, companies)
	if err := sched.Start(ctx, entries, cfg.Maintenance.CountersCron); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	mux := httpapi.NewMux(httpapi.Deps{Orch: orch, Companies: companies, Hub: hub})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("[main] aeroscrapd listening on http://%s (db=%s)", addr, dbPath)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatalf("serve: %v", err)
	case sig := <-sigCh:
		log.Printf("[main] %s received, shutting down", sig)
	}

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] http shutdown: %v", err)
	}
	if err := orch.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] workers did not finish in time: %v", err)
	}
	log.Println("[main] bye")
}

// buildScrapers registers the adapters enabled in config and collects their
// cron entries.
func buildScrapers(cfg config.Config) (*scrape.Registry, []scheduler.Entry) {
	reg := scrape.NewRegistry()
	var entries []scheduler.Entry
	limiter := util.NewHostLimiter(1, 2)

	if sq := cfg.Scrapers.SkyQuest; sq.Enabled {
		reg.Register(skyquest.New(skyquest.Config{BaseURL: sq.BaseURL}, limiter))
		if sq.Cron != "" {
			entries = append(entries, scheduler.Entry{ScraperName: "skyquest", Spec: sq.Cron})
		}
	}

	if ab := cfg.Scrapers.AeroBoard; ab.Enabled {
		reg.Register(aeroboard.New(
			aeroboard.Config{BaseURL: ab.BaseURL, AppID: ab.AppID, Country: ab.Country},
			func(appID string) (string, error) {
				return secrets.GetAdapterKey(secrets.AeroBoardAccount(appID))
			},
			limiter))
		if ab.Cron != "" {
			entries = append(entries, scheduler.Entry{ScraperName: "aeroboard", Spec: ab.Cron})
		}
	}

	if am := cfg.Scrapers.AirMail; am.Enabled {
		reg.Register(airmail.New(
			airmail.Config{IMAPHost: am.IMAPHost, IMAPPort: am.IMAPPort, Username: am.Username},
			func() (string, error) {
				return secrets.GetAdapterKey(secrets.AirMailAccount(am.Username, am.IMAPHost))
			}))
		if am.Cron != "" {
			entries = append(entries, scheduler.Entry{ScraperName: "airmail", Spec: am.Cron})
		}
	}

	log.Printf("[main] %d scraper(s) registered: %v", len(reg.Names()), reg.Names())
	return reg, entries
}
