package orchestrator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/classify"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/dedup"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/events"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

type fakeAdapter struct {
	name  string
	fetch func(ctx context.Context, params scrape.Params) ([]scrape.RawRecord, error)
}

func (f *fakeAdapter) Name() string { return f.name }
func (f *fakeAdapter) FetchRawJobs(ctx context.Context, params scrape.Params) ([]scrape.RawRecord, error) {
	return f.fetch(ctx, params)
}

type testEnv struct {
	orch *Orchestrator
	jobs *store.JobStore
	runs *store.RunStore
	hub  *events.Hub
}

func newTestEnv(t *testing.T, timeout time.Duration, adapters ...scrape.Adapter) *testEnv {
	return newTestEnvWith(t, timeout, nil, adapters...)
}

// newTestEnvWith lets a test wrap the real pipeline with its own
// RecordProcessor (e.g. to gate the worker between records).
func newTestEnvWith(t *testing.T, timeout time.Duration, wrap func(*Pipeline) RecordProcessor, adapters ...scrape.Adapter) *testEnv {
	t.Helper()

	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	jobs := store.NewJobStore(db)
	companies := store.NewCompanyStore(db)
	runs := store.NewRunStore(db)

	pipeline := NewPipeline(
		classify.New(companies),
		dedup.New(jobs, dedup.Config{}),
		jobs, 0)

	var proc RecordProcessor = pipeline
	if wrap != nil {
		proc = wrap(pipeline)
	}

	hub := events.NewHub()
	orch := New(scrape.NewRegistry(adapters...), NewRunRegistry(), runs, proc, hub, timeout)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})
	return &testEnv{orch: orch, jobs: jobs, runs: runs, hub: hub}
}

func rec(url, title, company string) scrape.RawRecord {
	return scrape.RawRecord{
		"source_url":  url,
		"title":       title,
		"company":     company,
		"posted_date": "2026-08-20T12:00:00Z",
	}
}

func waitTerminal(t *testing.T, env *testEnv, runID string) domain.ScraperJob {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		run, err := env.orch.GetRun(context.Background(), runID)
		require.NoError(t, err)
		if run.Status.IsTerminal() {
			return run
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("run %s never reached a terminal state", runID)
	return domain.ScraperJob{}
}

func TestStartRunSyncCompletes(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{
			rec("https://ex.com/1", "A320 First Officer", "Skyways"),
			rec("https://ex.com/2", "B737 Captain", "Skyways"),
			{"title": "missing url"}, // invalid, counted as error
		}, nil
	}}
	env := newTestEnv(t, 0, adapter)

	run, err := env.orch.StartRun(context.Background(), "fake", "test", nil, true)
	require.NoError(t, err)

	assert.Equal(t, domain.RunCompleted, run.Status)
	assert.Equal(t, 3, run.Counts.Found)
	assert.Equal(t, 2, run.Counts.New)
	assert.Equal(t, 1, run.Counts.Errors)
	assert.Equal(t, run.Counts.Found, run.Counts.Sum())
	require.NotNil(t, run.CompletedAt)

	n, err := env.jobs.CountJobs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStartRunSecondPassAllDuplicates(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{
			rec("https://ex.com/1", "A320 First Officer", "Skyways"),
			rec("https://ex.com/2", "B737 Captain", "Skyways"),
		}, nil
	}}
	env := newTestEnv(t, 0, adapter)
	ctx := context.Background()

	first, err := env.orch.StartRun(ctx, "fake", "test", nil, true)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Counts.New)

	second, err := env.orch.StartRun(ctx, "fake", "test", nil, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, second.Status)
	assert.Equal(t, 0, second.Counts.New)
	assert.Equal(t, 2, second.Counts.Duplicates)

	n, err := env.jobs.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStartRunUnknownScraper(t *testing.T) {
	env := newTestEnv(t, 0)
	_, err := env.orch.StartRun(context.Background(), "nope", "test", nil, true)
	require.ErrorIs(t, err, domain.ErrScraperNotFound)
}

func TestStartRunSingleFlight(t *testing.T) {
	started := make(chan struct{})
	adapter := &fakeAdapter{name: "fake", fetch: func(ctx context.Context, _ scrape.Params) ([]scrape.RawRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	env := newTestEnv(t, 0, adapter)
	ctx := context.Background()

	run, err := env.orch.StartRun(ctx, "fake", "test", nil, false)
	require.NoError(t, err)
	<-started

	_, err = env.orch.StartRun(ctx, "fake", "test", nil, false)
	require.ErrorIs(t, err, domain.ErrRunConflict)

	// Only one row was created for the scraper.
	history, err := env.runs.ListHistory(ctx, store.RunFilter{ScraperName: "fake"})
	require.NoError(t, err)
	assert.Len(t, history, 1)

	require.NoError(t, env.orch.CancelRun(ctx, run.ID))
	final := waitTerminal(t, env, run.ID)
	assert.Equal(t, domain.RunCancelled, final.Status)

	// The slot frees once the worker unwinds.
	require.Eventually(t, func() bool {
		_, active := env.orch.FindActiveRun("fake")
		return !active
	}, time.Second, 10*time.Millisecond)
}

func TestCancelRunMidBatch(t *testing.T) {
	started := make(chan struct{})
	adapter := &fakeAdapter{name: "fake", fetch: func(ctx context.Context, _ scrape.Params) ([]scrape.RawRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	env := newTestEnv(t, 0, adapter)
	ctx := context.Background()

	run, err := env.orch.StartRun(ctx, "fake", "test", nil, false)
	require.NoError(t, err)
	<-started

	require.NoError(t, env.orch.CancelRun(ctx, run.ID))
	final := waitTerminal(t, env, run.ID)
	assert.Equal(t, domain.RunCancelled, final.Status)
	assert.Empty(t, final.ErrorMessage)

	// Cancelling a terminal run is rejected.
	err = env.orch.CancelRun(ctx, run.ID)
	require.Error(t, err)
}

// gatedProcessor runs each record through the real pipeline, then signals the
// test and parks until the run context dies. The worker therefore observes
// the cancellation at the next record boundary, with the first record already
// persisted.
type gatedProcessor struct {
	inner     *Pipeline
	processed chan struct{}
}

func (g *gatedProcessor) ProcessRecord(ctx context.Context, raw scrape.RawRecord, source string) (domain.DedupDecision, error) {
	d, err := g.inner.ProcessRecord(ctx, raw, source)
	g.processed <- struct{}{}
	<-ctx.Done()
	return d, err
}

func TestCancelBetweenRecordsKeepsPersistedWork(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{
			rec("https://ex.com/1", "A320 First Officer", "Skyways"),
			rec("https://ex.com/2", "B737 Captain", "Skyways"),
			rec("https://ex.com/3", "Avionics Tech", "Skyways"),
		}, nil
	}}

	gate := &gatedProcessor{processed: make(chan struct{})}
	env := newTestEnvWith(t, 0, func(p *Pipeline) RecordProcessor {
		gate.inner = p
		return gate
	}, adapter)
	ctx := context.Background()

	run, err := env.orch.StartRun(ctx, "fake", "test", nil, false)
	require.NoError(t, err)

	// First record is fully persisted before the cancel goes out.
	<-gate.processed
	require.NoError(t, env.orch.CancelRun(ctx, run.ID))

	final := waitTerminal(t, env, run.ID)
	assert.Equal(t, domain.RunCancelled, final.Status)

	// Work done before the cancellation stays done: no rollback, and the
	// remaining records were never consumed.
	assert.Equal(t, 1, final.Counts.Found)
	assert.Equal(t, 1, final.Counts.New)
	assert.Equal(t, final.Counts.Found, final.Counts.Sum())

	n, err := env.jobs.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	kept, err := env.jobs.GetBySourceURL(ctx, "https://ex.com/1")
	require.NoError(t, err)
	require.NotNil(t, kept)
}

func TestRunTimeoutFails(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(ctx context.Context, _ scrape.Params) ([]scrape.RawRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	env := newTestEnv(t, 50*time.Millisecond, adapter)

	run, err := env.orch.StartRun(context.Background(), "fake", "test", nil, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Equal(t, domain.ErrRunTimeout.Error(), run.ErrorMessage)
}

func TestAdapterErrorFailsRun(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return nil, errors.New("upstream 503")
	}}
	env := newTestEnv(t, 0, adapter)

	run, err := env.orch.StartRun(context.Background(), "fake", "test", nil, true)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, run.Status)
	assert.Contains(t, run.ErrorMessage, "upstream 503")
	assert.Contains(t, run.ErrorMessage, domain.ErrAdapter.Error())
}

func TestRunPublishesEvents(t *testing.T) {
	adapter := &fakeAdapter{name: "fake", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{rec("https://ex.com/1", "A320 First Officer", "Skyways")}, nil
	}}
	env := newTestEnv(t, 0, adapter)

	ch := env.hub.Subscribe()
	defer env.hub.Unsubscribe(ch)

	_, err := env.orch.StartRun(context.Background(), "fake", "test", nil, true)
	require.NoError(t, err)

	var got []events.Event
	for len(ch) > 0 {
		got = append(got, <-ch)
	}
	require.NotEmpty(t, got)
	assert.Equal(t, "run_started", got[0].Type)
	assert.Equal(t, "run_completed", got[len(got)-1].Type)
	assert.Equal(t, "fake", got[0].Scraper)
	assert.NotEmpty(t, got[0].RunID)

	var sawJobCreated bool
	for _, e := range got {
		if e.Type == "job_created" {
			sawJobCreated = true
		}
	}
	assert.True(t, sawJobCreated)
}

func TestRunAll(t *testing.T) {
	a := &fakeAdapter{name: "a", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{rec("https://ex.com/a", "Avionics Tech", "AlphaAir")}, nil
	}}
	b := &fakeAdapter{name: "b", fetch: func(context.Context, scrape.Params) ([]scrape.RawRecord, error) {
		return []scrape.RawRecord{rec("https://ex.com/b", "Cargo Loader", "BravoCargo")}, nil
	}}
	env := newTestEnv(t, 0, a, b)
	ctx := context.Background()

	require.NoError(t, env.orch.RunAll(ctx, []string{"a", "b"}, "cli"))

	n, err := env.jobs.CountJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := env.orch.Statistics(ctx)
	require.NoError(t, err)
	assert.Len(t, stats, 2)
}
