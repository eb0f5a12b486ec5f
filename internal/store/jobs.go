package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

// JobStore persists catalog entries. Every write runs inside its own
// transaction so a failure on one record never aborts the rest of a batch.
type JobStore struct {
	db *sql.DB
}

func NewJobStore(db *sql.DB) *JobStore {
	return &JobStore{db: db}
}

const jobColumns = `id, source_url, title, normalized_title, company_name, country_code,
description, posted_date, senior, source, operation_type, status,
last_checked, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (domain.JobRecord, error) {
	var (
		j          domain.JobRecord
		postedDate sql.NullString
		opType     sql.NullString
		senior     int
		status     string
		lastStr    string
		createdStr string
		updatedStr string
	)
	err := r.Scan(
		&j.ID, &j.SourceURL, &j.Title, &j.NormalizedTitle, &j.CompanyName, &j.CountryCode,
		&j.Description, &postedDate, &senior, &j.Source, &opType, &status,
		&lastStr, &createdStr, &updatedStr,
	)
	if err != nil {
		return domain.JobRecord{}, err
	}
	j.Senior = senior != 0
	j.Status = domain.JobStatus(status)
	if opType.Valid {
		j.OperationType = domain.OperationType(opType.String)
	}
	if postedDate.Valid && postedDate.String != "" {
		if t, err := time.Parse(time.RFC3339, postedDate.String); err == nil {
			j.PostedDate = &t
		}
	}
	j.LastChecked, _ = time.Parse(time.RFC3339, lastStr)
	j.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	j.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return j, nil
}

func timePtrString(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// GetBySourceURL returns the record with the exact source_url, or (nil, nil)
// when none exists.
func (s *JobStore) GetBySourceURL(ctx context.Context, sourceURL string) (*domain.JobRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE source_url = ?;`, sourceURL)

	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by source_url: %w", err)
	}
	return &j, nil
}

// ByNormalizedTitle returns all records sharing the exact normalized title,
// most recently updated first.
func (s *JobStore) ByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]domain.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+jobColumns+`
FROM jobs
WHERE normalized_title = ?
ORDER BY updated_at DESC, id DESC;`, normalizedTitle)
	if err != nil {
		return nil, fmt.Errorf("jobs by normalized_title: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ByCompanyAround returns records for a company (case-insensitive exact
// match) whose posted_date falls within ±window of center. A nil center
// disables the date filter.
func (s *JobStore) ByCompanyAround(ctx context.Context, company string, center *time.Time, window time.Duration) ([]domain.JobRecord, error) {
	query := `
SELECT ` + jobColumns + `
FROM jobs
WHERE company_name = ? COLLATE NOCASE`
	args := []any{company}
	if center != nil {
		query += `
  AND posted_date IS NOT NULL
  AND posted_date >= ? AND posted_date <= ?`
		lo := center.Add(-window).UTC().Format(time.RFC3339)
		hi := center.Add(window).UTC().Format(time.RFC3339)
		args = append(args, lo, hi)
	}
	query += `
ORDER BY updated_at DESC, id DESC;`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("jobs by company: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func collectJobs(rows *sql.Rows) ([]domain.JobRecord, error) {
	var out []domain.JobRecord
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// Upsert applies one dedup decision inside its own transaction and returns
// the resulting record.
//
// For DecisionNew the insert carries an ON CONFLICT clause on source_url: if
// a concurrent run inserted the same URL first, the call degrades into an
// update instead of erroring (upsert semantics back up the dedup decision).
// DecisionUpdated rewrites the mutable fields of existing and bumps
// updated_at; DecisionDuplicate only bumps last_checked.
func (s *JobStore) Upsert(ctx context.Context, job domain.NormalizedJob, opType domain.OperationType, decision domain.DedupDecision, existing *domain.JobRecord) (domain.JobRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("%w: begin: %v", domain.ErrStore, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	var id int64
	switch decision {
	case domain.DecisionNew:
		payload, _ := json.Marshal(job.RawPayload)
		senior := 0
		if job.Senior {
			senior = 1
		}
		err = tx.QueryRowContext(ctx, `
INSERT INTO jobs (source_url, title, normalized_title, company_name, country_code,
                  description, posted_date, senior, source, raw_payload,
                  operation_type, status, last_checked, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 'new', ?, ?, ?)
ON CONFLICT(source_url) DO UPDATE SET
  title = excluded.title,
  normalized_title = excluded.normalized_title,
  description = excluded.description,
  posted_date = excluded.posted_date,
  senior = excluded.senior,
  last_checked = excluded.last_checked,
  updated_at = excluded.updated_at
RETURNING id;`,
			job.SourceURL, job.Title, job.NormalizedTitle, job.CompanyName, job.CountryCode,
			job.Description, timePtrString(job.PostedDate), senior, job.Source, string(payload),
			nullableOp(opType), now, now, now,
		).Scan(&id)
		if err != nil {
			return domain.JobRecord{}, fmt.Errorf("%w: insert job: %v", domain.ErrStore, err)
		}

	case domain.DecisionUpdated:
		if existing == nil {
			return domain.JobRecord{}, fmt.Errorf("%w: updated decision without target record", domain.ErrStore)
		}
		// The stored source_url stays canonical even when the update came in
		// under a different URL (fuzzy alias match).
		_, err = tx.ExecContext(ctx, `
UPDATE jobs
SET title = ?, normalized_title = ?, description = ?, posted_date = ?, senior = ?,
    last_checked = ?, updated_at = ?
WHERE id = ?;`,
			job.Title, job.NormalizedTitle, job.Description, timePtrString(job.PostedDate),
			boolInt(job.Senior), now, now, existing.ID,
		)
		if err != nil {
			return domain.JobRecord{}, fmt.Errorf("%w: update job %d: %v", domain.ErrStore, existing.ID, err)
		}
		id = existing.ID

	case domain.DecisionDuplicate:
		if existing == nil {
			return domain.JobRecord{}, fmt.Errorf("%w: duplicate decision without target record", domain.ErrStore)
		}
		_, err = tx.ExecContext(ctx, `
UPDATE jobs SET last_checked = ? WHERE id = ?;`, now, existing.ID)
		if err != nil {
			return domain.JobRecord{}, fmt.Errorf("%w: touch job %d: %v", domain.ErrStore, existing.ID, err)
		}
		id = existing.ID

	default:
		return domain.JobRecord{}, fmt.Errorf("%w: unknown decision %q", domain.ErrStore, decision)
	}

	row := tx.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?;`, id)
	rec, err := scanJob(row)
	if err != nil {
		return domain.JobRecord{}, fmt.Errorf("%w: reload job %d: %v", domain.ErrStore, id, err)
	}

	if err := tx.Commit(); err != nil {
		return domain.JobRecord{}, fmt.Errorf("%w: commit: %v", domain.ErrStore, err)
	}
	return rec, nil
}

// CountJobs returns the total number of catalog entries.
func (s *JobStore) CountJobs(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs;`).Scan(&n)
	return n, err
}

func nullableOp(op domain.OperationType) any {
	if op == "" {
		return nil
	}
	return string(op)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
