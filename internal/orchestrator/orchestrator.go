// Package orchestrator owns the ScraperJob state machine: it creates one
// execution record per scraper invocation, enforces single-flight per scraper
// name, dispatches the worker, and aggregates per-record statistics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/events"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

// DefaultRunTimeout is the wall-clock budget per run when the config does not
// override it.
const DefaultRunTimeout = 30 * time.Minute

// RecordProcessor handles one raw record end to end; *Pipeline is the
// production implementation.
type RecordProcessor interface {
	ProcessRecord(ctx context.Context, raw scrape.RawRecord, source string) (domain.DedupDecision, error)
}

type Orchestrator struct {
	scrapers *scrape.Registry
	registry *RunRegistry
	runs     *store.RunStore
	pipeline RecordProcessor
	hub      *events.Hub

	runTimeout time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc // run id -> cancel

	wg sync.WaitGroup
}

func New(scrapers *scrape.Registry, registry *RunRegistry, runs *store.RunStore, pipeline RecordProcessor, hub *events.Hub, runTimeout time.Duration) *Orchestrator {
	if runTimeout <= 0 {
		runTimeout = DefaultRunTimeout
	}
	return &Orchestrator{
		scrapers:   scrapers,
		registry:   registry,
		runs:       runs,
		pipeline:   pipeline,
		hub:        hub,
		runTimeout: runTimeout,
		cancels:    make(map[string]context.CancelFunc),
	}
}

// StartRun creates a pending ScraperJob for scraperName and dispatches the
// worker. With wait=false it returns immediately after persisting the pending
// record; with wait=true it returns once the run is terminal. A second start
// for a scraper with a run already in flight fails with
// domain.ErrRunConflict and creates no record.
func (o *Orchestrator) StartRun(ctx context.Context, scraperName, triggeredBy string, params scrape.Params, wait bool) (domain.ScraperJob, error) {
	adapter, ok := o.scrapers.Get(scraperName)
	if !ok {
		return domain.ScraperJob{}, fmt.Errorf("%w: %q", domain.ErrScraperNotFound, scraperName)
	}

	run := domain.ScraperJob{
		ID:          uuid.NewString(),
		ScraperName: scraperName,
		Status:      domain.RunPending,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now().UTC(),
	}

	acquired, blocking := o.registry.Acquire(scraperName, run.ID)
	if !acquired {
		return domain.ScraperJob{}, fmt.Errorf("%w: %q (run %s)", domain.ErrRunConflict, scraperName, blocking)
	}

	if err := o.runs.Insert(ctx, run); err != nil {
		o.registry.Release(scraperName, run.ID)
		return domain.ScraperJob{}, err
	}

	// The run context outlives the caller's request context; the wall-clock
	// budget and CancelRun are its only terminators.
	runCtx, cancel := context.WithTimeout(context.Background(), o.runTimeout)
	o.mu.Lock()
	o.cancels[run.ID] = cancel
	o.mu.Unlock()

	o.publish("run_started", run)

	if wait {
		o.execute(runCtx, run, adapter, params)
		final, err := o.runs.GetByID(ctx, run.ID)
		if err != nil {
			return run, err
		}
		return *final, nil
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.execute(runCtx, run, adapter, params)
	}()
	return run, nil
}

// RunAll starts one run per scraper name concurrently and waits for every run
// to reach a terminal state. Scrapers already in flight are skipped; any other
// start or run failure fails the batch.
func (o *Orchestrator) RunAll(ctx context.Context, names []string, triggeredBy string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			run, err := o.StartRun(gctx, name, triggeredBy, nil, true)
			if errors.Is(err, domain.ErrRunConflict) {
				log.Printf("[orchestrator] %s already running, skipping", name)
				return nil
			}
			if err != nil {
				return fmt.Errorf("run %s: %w", name, err)
			}
			if run.Status != domain.RunCompleted {
				return fmt.Errorf("run %s (%s) finished %s: %s", run.ID, name, run.Status, run.ErrorMessage)
			}
			return nil
		})
	}
	return g.Wait()
}

// CancelRun requests cooperative cancellation of a pending or running run.
// The worker observes it at the next record boundary; records already
// persisted stay persisted.
func (o *Orchestrator) CancelRun(ctx context.Context, runID string) error {
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	if run.Status.IsTerminal() {
		return fmt.Errorf("cannot cancel run %s in terminal state %s", runID, run.Status)
	}

	o.mu.Lock()
	cancel, ok := o.cancels[runID]
	o.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s has no live worker", domain.ErrRunNotFound, runID)
	}
	cancel()
	log.Printf("[orchestrator] cancellation requested for run %s (%s)", runID, run.ScraperName)
	return nil
}

// GetRun returns one run by id.
func (o *Orchestrator) GetRun(ctx context.Context, runID string) (domain.ScraperJob, error) {
	run, err := o.runs.GetByID(ctx, runID)
	if err != nil {
		return domain.ScraperJob{}, err
	}
	if run == nil {
		return domain.ScraperJob{}, fmt.Errorf("%w: %s", domain.ErrRunNotFound, runID)
	}
	return *run, nil
}

// ListHistory returns past runs, newest first.
func (o *Orchestrator) ListHistory(ctx context.Context, f store.RunFilter) ([]domain.ScraperJob, error) {
	return o.runs.ListHistory(ctx, f)
}

// Statistics aggregates run outcomes per scraper.
func (o *Orchestrator) Statistics(ctx context.Context) ([]store.ScraperStats, error) {
	return o.runs.Statistics(ctx)
}

// FindActiveRun exposes the registry's single-flight view.
func (o *Orchestrator) FindActiveRun(scraperName string) (string, bool) {
	return o.registry.FindActiveRun(scraperName)
}

// Shutdown cancels every live worker and waits for them to finish
// finalizing, or gives up when ctx expires.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute is the worker body: pending → running, fetch, per-record pipeline,
// terminal transition with aggregated counts.
func (o *Orchestrator) execute(runCtx context.Context, run domain.ScraperJob, adapter scrape.Adapter, params scrape.Params) {
	started := time.Now()
	defer func() {
		o.mu.Lock()
		if cancel, ok := o.cancels[run.ID]; ok {
			cancel()
			delete(o.cancels, run.ID)
		}
		o.mu.Unlock()
		o.registry.Release(run.ScraperName, run.ID)
	}()

	// A cancel that lands while the run is still pending wins before any work
	// starts.
	if err := runCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			o.finish(run, started, domain.RunFailed, domain.ErrRunTimeout.Error())
		} else {
			o.finish(run, started, domain.RunCancelled, "")
		}
		return
	}

	if err := o.runs.MarkRunning(context.Background(), run.ID, started); err != nil {
		// The row was cancelled (or otherwise closed) before the worker got
		// here; nothing to execute.
		log.Printf("[orchestrator] run %s not started: %v", run.ID, err)
		o.finish(run, started, domain.RunCancelled, "")
		return
	}
	run.Status = domain.RunRunning
	log.Printf("[orchestrator] run %s (%s) running", run.ID, run.ScraperName)

	records, err := adapter.FetchRawJobs(runCtx, params)
	if err != nil {
		log.Printf("[orchestrator] run %s fetch failed: %v", run.ID, err)
		switch {
		case errors.Is(runCtx.Err(), context.DeadlineExceeded):
			o.finish(run, started, domain.RunFailed, domain.ErrRunTimeout.Error())
		case runCtx.Err() != nil:
			o.finish(run, started, domain.RunCancelled, "")
		default:
			o.finish(run, started, domain.RunFailed, fmt.Errorf("%w: %v", domain.ErrAdapter, err).Error())
		}
		return
	}

	for _, raw := range records {
		// Cooperative cancellation point, checked between records.
		if runCtx.Err() != nil {
			break
		}

		run.Counts.Found++
		decision, perr := o.pipeline.ProcessRecord(runCtx, raw, run.ScraperName)
		if perr != nil {
			run.Counts.Errors++
			if errors.Is(perr, domain.ErrValidation) {
				log.Printf("[orchestrator:%s] skipped invalid record: %v", run.ScraperName, perr)
			} else {
				log.Printf("[orchestrator:%s] record error: %v", run.ScraperName, perr)
			}
			continue
		}
		switch decision {
		case domain.DecisionNew:
			run.Counts.New++
			o.publish("job_created", run)
		case domain.DecisionUpdated:
			run.Counts.Updated++
		case domain.DecisionDuplicate:
			run.Counts.Duplicates++
		}
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		o.finish(run, started, domain.RunFailed, domain.ErrRunTimeout.Error())
	case runCtx.Err() != nil:
		o.finish(run, started, domain.RunCancelled, "")
	default:
		o.finish(run, started, domain.RunCompleted, "")
	}
}

// finish writes the terminal state and final statistics for a run.
func (o *Orchestrator) finish(run domain.ScraperJob, started time.Time, status domain.RunStatus, errMsg string) {
	now := time.Now().UTC()
	run.Status = status
	run.CompletedAt = &now
	run.ExecutionTimeSeconds = time.Since(started).Seconds()
	run.ErrorMessage = errMsg

	// Finalize even when the run context is dead.
	if err := o.runs.Finish(context.Background(), run); err != nil {
		log.Printf("[orchestrator] finalize run %s: %v", run.ID, err)
		return
	}
	log.Printf("[orchestrator] run %s (%s) %s: found=%d new=%d updated=%d duplicates=%d errors=%d in %.1fs",
		run.ID, run.ScraperName, status,
		run.Counts.Found, run.Counts.New, run.Counts.Updated, run.Counts.Duplicates, run.Counts.Errors,
		run.ExecutionTimeSeconds)
	o.publish("run_"+string(status), run)
}

func (o *Orchestrator) publish(eventType string, run domain.ScraperJob) {
	if o.hub == nil {
		return
	}
	o.hub.Publish(events.Event{
		Type:    eventType,
		RunID:   run.ID,
		Scraper: run.ScraperName,
		Status:  string(run.Status),
	})
}
