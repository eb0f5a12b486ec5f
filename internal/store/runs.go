package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

// RunStore persists ScraperJob execution records. It is the source of truth
// the in-memory run registry is rebuilt from.
type RunStore struct {
	db *sql.DB
}

func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// ErrBadTransition is returned when a status change is not permitted by the
// run state machine (e.g. the run already reached a terminal state).
var ErrBadTransition = errors.New("run status transition not allowed")

const runColumns = `id, scraper_name, status, started_at, completed_at, execution_time_seconds,
jobs_found, jobs_new, jobs_updated, jobs_duplicates, jobs_errors,
error_message, triggered_by, created_at`

// Insert persists a freshly created run (normally status=pending).
func (s *RunStore) Insert(ctx context.Context, run domain.ScraperJob) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO scraper_jobs (id, scraper_name, status, started_at, completed_at,
                          execution_time_seconds, jobs_found, jobs_new, jobs_updated,
                          jobs_duplicates, jobs_errors, error_message, triggered_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		run.ID, run.ScraperName, string(run.Status),
		timePtrString(run.StartedAt), timePtrString(run.CompletedAt),
		run.ExecutionTimeSeconds,
		run.Counts.Found, run.Counts.New, run.Counts.Updated, run.Counts.Duplicates, run.Counts.Errors,
		run.ErrorMessage, run.TriggeredBy,
		run.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// MarkRunning transitions a pending run to running. The guard on the current
// status makes the transition a compare-and-set: a run that was cancelled
// while still pending stays cancelled.
func (s *RunStore) MarkRunning(ctx context.Context, id string, startedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE scraper_jobs
SET status = ?, started_at = ?
WHERE id = ? AND status = ?;`,
		string(domain.RunRunning), startedAt.UTC().Format(time.RFC3339),
		id, string(domain.RunPending))
	if err != nil {
		return fmt.Errorf("mark run running: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s → running", ErrBadTransition, id)
	}
	return nil
}

// Finish writes a terminal status with the final statistics. Only pending and
// running rows can be finished; terminal rows are never rewritten.
func (s *RunStore) Finish(ctx context.Context, run domain.ScraperJob) error {
	if !run.Status.IsTerminal() {
		return fmt.Errorf("%w: finish with non-terminal status %s", ErrBadTransition, run.Status)
	}
	// completed is only reachable from running; failed and cancelled may also
	// close out a run that never left pending.
	fromPending := string(domain.RunPending)
	if run.Status == domain.RunCompleted {
		fromPending = string(domain.RunRunning)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE scraper_jobs
SET status = ?, completed_at = ?, execution_time_seconds = ?,
    jobs_found = ?, jobs_new = ?, jobs_updated = ?, jobs_duplicates = ?, jobs_errors = ?,
    error_message = ?
WHERE id = ? AND status IN (?, ?);`,
		string(run.Status), timePtrString(run.CompletedAt), run.ExecutionTimeSeconds,
		run.Counts.Found, run.Counts.New, run.Counts.Updated, run.Counts.Duplicates, run.Counts.Errors,
		run.ErrorMessage,
		run.ID, fromPending, string(domain.RunRunning))
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s → %s", ErrBadTransition, run.ID, run.Status)
	}
	return nil
}

// GetByID returns a run, or (nil, nil) when the id is unknown.
func (s *RunStore) GetByID(ctx context.Context, id string) (*domain.ScraperJob, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+runColumns+`
FROM scraper_jobs
WHERE id = ?;`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return &run, nil
}

// Active returns every run still in pending or running state.
func (s *RunStore) Active(ctx context.Context) ([]domain.ScraperJob, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+runColumns+`
FROM scraper_jobs
WHERE status IN (?, ?)
ORDER BY created_at ASC;`,
		string(domain.RunPending), string(domain.RunRunning))
	if err != nil {
		return nil, fmt.Errorf("active runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// RunFilter narrows ListHistory.
type RunFilter struct {
	ScraperName string
	Status      domain.RunStatus
	Limit       int
}

// ListHistory returns runs newest first.
func (s *RunStore) ListHistory(ctx context.Context, f RunFilter) ([]domain.ScraperJob, error) {
	query := `
SELECT ` + runColumns + `
FROM scraper_jobs
WHERE 1=1`
	var args []any
	if f.ScraperName != "" {
		query += ` AND scraper_name = ?`
		args = append(args, f.ScraperName)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += `
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list run history: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// ScraperStats is one scraper's aggregate over all recorded runs.
type ScraperStats struct {
	ScraperName    string     `json:"scraper_name"`
	Runs           int        `json:"runs"`
	Completed      int        `json:"completed"`
	Failed         int        `json:"failed"`
	Cancelled      int        `json:"cancelled"`
	JobsFound      int        `json:"jobs_found"`
	JobsNew        int        `json:"jobs_new"`
	JobsUpdated    int        `json:"jobs_updated"`
	JobsDuplicates int        `json:"jobs_duplicates"`
	JobsErrors     int        `json:"jobs_errors"`
	LastRunAt      *time.Time `json:"last_run_at,omitempty"`
}

// Statistics aggregates run outcomes per scraper name.
func (s *RunStore) Statistics(ctx context.Context) ([]ScraperStats, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT scraper_name,
       COUNT(*),
       SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
       SUM(CASE WHEN status = 'cancelled' THEN 1 ELSE 0 END),
       SUM(jobs_found), SUM(jobs_new), SUM(jobs_updated), SUM(jobs_duplicates), SUM(jobs_errors),
       MAX(created_at)
FROM scraper_jobs
GROUP BY scraper_name
ORDER BY scraper_name;`)
	if err != nil {
		return nil, fmt.Errorf("run statistics: %w", err)
	}
	defer rows.Close()

	var out []ScraperStats
	for rows.Next() {
		var st ScraperStats
		var lastRun sql.NullString
		if err := rows.Scan(&st.ScraperName, &st.Runs, &st.Completed, &st.Failed, &st.Cancelled,
			&st.JobsFound, &st.JobsNew, &st.JobsUpdated, &st.JobsDuplicates, &st.JobsErrors,
			&lastRun); err != nil {
			return nil, err
		}
		if lastRun.Valid {
			if t, err := time.Parse(time.RFC3339, lastRun.String); err == nil {
				st.LastRunAt = &t
			}
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ReconcileOrphans fails every run left in pending or running state by a
// previous process. A crashed process cannot have a genuinely running job, so
// the rows are closed out before the registry is rebuilt.
func (s *RunStore) ReconcileOrphans(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE scraper_jobs
SET status = ?, completed_at = ?, error_message = ?
WHERE status IN (?, ?);`,
		string(domain.RunFailed), time.Now().UTC().Format(time.RFC3339),
		"orphaned on restart",
		string(domain.RunPending), string(domain.RunRunning))
	if err != nil {
		return 0, fmt.Errorf("reconcile orphaned runs: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func scanRun(r rowScanner) (domain.ScraperJob, error) {
	var (
		run        domain.ScraperJob
		status     string
		startedAt  sql.NullString
		completed  sql.NullString
		createdStr string
	)
	err := r.Scan(&run.ID, &run.ScraperName, &status, &startedAt, &completed,
		&run.ExecutionTimeSeconds,
		&run.Counts.Found, &run.Counts.New, &run.Counts.Updated, &run.Counts.Duplicates, &run.Counts.Errors,
		&run.ErrorMessage, &run.TriggeredBy, &createdStr)
	if err != nil {
		return domain.ScraperJob{}, err
	}
	run.Status = domain.RunStatus(status)
	if startedAt.Valid && startedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, startedAt.String); err == nil {
			run.StartedAt = &t
		}
	}
	if completed.Valid && completed.String != "" {
		if t, err := time.Parse(time.RFC3339, completed.String); err == nil {
			run.CompletedAt = &t
		}
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	return run, nil
}

func collectRuns(rows *sql.Rows) ([]domain.ScraperJob, error) {
	var out []domain.ScraperJob
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
