package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

func pendingRun(scraper string) domain.ScraperJob {
	return domain.ScraperJob{
		ID:          uuid.NewString(),
		ScraperName: scraper,
		Status:      domain.RunPending,
		TriggeredBy: "test",
		CreatedAt:   time.Now().UTC(),
	}
}

func TestRunStoreLifecycle(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	run := pendingRun("skyquest")
	require.NoError(t, runs.Insert(ctx, run))

	got, err := runs.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.RunPending, got.Status)

	started := time.Now().UTC()
	require.NoError(t, runs.MarkRunning(ctx, run.ID, started))

	run.Status = domain.RunCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now
	run.ExecutionTimeSeconds = 1.5
	run.Counts = domain.RunCounts{Found: 10, New: 4, Updated: 2, Duplicates: 3, Errors: 1}
	require.NoError(t, runs.Finish(ctx, run))

	final, err := runs.GetByID(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, domain.RunCompleted, final.Status)
	assert.Equal(t, final.Counts.Found, final.Counts.Sum())
	require.NotNil(t, final.CompletedAt)
}

func TestRunStoreMarkRunningRequiresPending(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	run := pendingRun("skyquest")
	require.NoError(t, runs.Insert(ctx, run))
	require.NoError(t, runs.MarkRunning(ctx, run.ID, time.Now()))

	// Second transition is a no-op CAS failure.
	err := runs.MarkRunning(ctx, run.ID, time.Now())
	require.ErrorIs(t, err, ErrBadTransition)
}

func TestRunStoreFinishGuards(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	t.Run("non-terminal status rejected", func(t *testing.T) {
		run := pendingRun("skyquest")
		require.NoError(t, runs.Insert(ctx, run))
		run.Status = domain.RunRunning
		require.ErrorIs(t, runs.Finish(ctx, run), ErrBadTransition)
	})

	t.Run("completed only from running", func(t *testing.T) {
		run := pendingRun("aeroboard")
		require.NoError(t, runs.Insert(ctx, run))
		run.Status = domain.RunCompleted
		require.ErrorIs(t, runs.Finish(ctx, run), ErrBadTransition)
	})

	t.Run("cancelled allowed from pending", func(t *testing.T) {
		run := pendingRun("airmail")
		require.NoError(t, runs.Insert(ctx, run))
		run.Status = domain.RunCancelled
		now := time.Now().UTC()
		run.CompletedAt = &now
		require.NoError(t, runs.Finish(ctx, run))
	})

	t.Run("terminal rows never rewritten", func(t *testing.T) {
		run := pendingRun("skyquest")
		require.NoError(t, runs.Insert(ctx, run))
		require.NoError(t, runs.MarkRunning(ctx, run.ID, time.Now()))

		run.Status = domain.RunFailed
		now := time.Now().UTC()
		run.CompletedAt = &now
		run.ErrorMessage = "boom"
		require.NoError(t, runs.Finish(ctx, run))

		run.Status = domain.RunCompleted
		require.ErrorIs(t, runs.Finish(ctx, run), ErrBadTransition)

		final, err := runs.GetByID(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RunFailed, final.Status)
		assert.Equal(t, "boom", final.ErrorMessage)
	})
}

func TestRunStoreActiveAndReconcileOrphans(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	p := pendingRun("skyquest")
	require.NoError(t, runs.Insert(ctx, p))

	r := pendingRun("aeroboard")
	require.NoError(t, runs.Insert(ctx, r))
	require.NoError(t, runs.MarkRunning(ctx, r.ID, time.Now()))

	done := pendingRun("airmail")
	require.NoError(t, runs.Insert(ctx, done))
	require.NoError(t, runs.MarkRunning(ctx, done.ID, time.Now()))
	done.Status = domain.RunCompleted
	now := time.Now().UTC()
	done.CompletedAt = &now
	require.NoError(t, runs.Finish(ctx, done))

	active, err := runs.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	n, err := runs.ReconcileOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	active, err = runs.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	orphan, err := runs.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunFailed, orphan.Status)
	assert.Equal(t, "orphaned on restart", orphan.ErrorMessage)

	// Completed rows are untouched.
	kept, err := runs.GetByID(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunCompleted, kept.Status)
}

func TestRunStoreListHistoryFilters(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		run := pendingRun("skyquest")
		run.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, runs.Insert(ctx, run))
	}
	other := pendingRun("aeroboard")
	require.NoError(t, runs.Insert(ctx, other))

	all, err := runs.ListHistory(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	sky, err := runs.ListHistory(ctx, RunFilter{ScraperName: "skyquest"})
	require.NoError(t, err)
	assert.Len(t, sky, 3)
	// Newest first.
	assert.True(t, !sky[0].CreatedAt.Before(sky[1].CreatedAt))

	limited, err := runs.ListHistory(ctx, RunFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	pending, err := runs.ListHistory(ctx, RunFilter{Status: domain.RunPending})
	require.NoError(t, err)
	assert.Len(t, pending, 4)
}

func TestRunStoreStatistics(t *testing.T) {
	db := newTestDB(t)
	runs := NewRunStore(db)
	ctx := context.Background()

	finish := func(scraper string, status domain.RunStatus, counts domain.RunCounts) {
		run := pendingRun(scraper)
		require.NoError(t, runs.Insert(ctx, run))
		if status == domain.RunCompleted {
			require.NoError(t, runs.MarkRunning(ctx, run.ID, time.Now()))
		}
		run.Status = status
		now := time.Now().UTC()
		run.CompletedAt = &now
		run.Counts = counts
		require.NoError(t, runs.Finish(ctx, run))
	}

	finish("skyquest", domain.RunCompleted, domain.RunCounts{Found: 10, New: 5, Updated: 2, Duplicates: 3})
	finish("skyquest", domain.RunCompleted, domain.RunCounts{Found: 4, New: 1, Duplicates: 3})
	finish("skyquest", domain.RunFailed, domain.RunCounts{})
	finish("aeroboard", domain.RunCancelled, domain.RunCounts{Found: 2, New: 2})

	stats, err := runs.Statistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	// Ordered by scraper name.
	ab, sky := stats[0], stats[1]
	assert.Equal(t, "aeroboard", ab.ScraperName)
	assert.Equal(t, 1, ab.Cancelled)
	assert.Equal(t, 2, ab.JobsFound)

	assert.Equal(t, "skyquest", sky.ScraperName)
	assert.Equal(t, 3, sky.Runs)
	assert.Equal(t, 2, sky.Completed)
	assert.Equal(t, 1, sky.Failed)
	assert.Equal(t, 14, sky.JobsFound)
	assert.Equal(t, 6, sky.JobsNew)
	require.NotNil(t, sky.LastRunAt)
}
