// Package scheduler wires up the cron entries that periodically trigger
// scraper runs and the company-counter maintenance task.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/orchestrator"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

// Entry schedules one scraper on a cron spec (e.g. "@every 6h").
type Entry struct {
	ScraperName string
	Spec        string
}

type Scheduler struct {
	cron      *cron.Cron
	orch      *orchestrator.Orchestrator
	companies *store.CompanyStore
}

func New(orch *orchestrator.Orchestrator, companies *store.CompanyStore) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cron.DefaultLogger)),
		orch:      orch,
		companies: companies,
	}
}

// Start registers the entries and starts the cron loop. A scraper whose
// previous run is still in flight is skipped quietly: single-flight conflicts
// from the orchestrator are expected here, not errors.
func (s *Scheduler) Start(ctx context.Context, entries []Entry, countersSpec string) error {
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.Spec, func() {
			s.runScraper(ctx, e.ScraperName)
		}); err != nil {
			return fmt.Errorf("cron.AddFunc(%s): %w", e.ScraperName, err)
		}
		log.Printf("[scheduler] %s scheduled at %q", e.ScraperName, e.Spec)
	}

	if countersSpec != "" {
		if _, err := s.cron.AddFunc(countersSpec, func() {
			if err := s.companies.RefreshCounters(ctx); err != nil {
				log.Printf("[scheduler] refresh company counters: %v", err)
			}
		}); err != nil {
			return fmt.Errorf("cron.AddFunc(counters): %w", err)
		}
	}

	s.cron.Start()
	log.Printf("[scheduler] cron started with %d scraper entrie(s)", len(entries))
	return nil
}

// Stop gracefully shuts down the cron loop.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] cron stopped")
}

func (s *Scheduler) runScraper(ctx context.Context, name string) {
	run, err := s.orch.StartRun(ctx, name, "scheduler", scrape.Params{}, false)
	switch {
	case errors.Is(err, domain.ErrRunConflict):
		log.Printf("[scheduler] %s still running — skipping tick", name)
	case err != nil:
		log.Printf("[scheduler] start %s: %v", name, err)
	default:
		log.Printf("[scheduler] started run %s for %s", run.ID, name)
	}
}
