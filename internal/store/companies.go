package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

// CompanyStore persists company → operation-type mappings.
type CompanyStore struct {
	db *sql.DB
}

func NewCompanyStore(db *sql.DB) *CompanyStore {
	return &CompanyStore{db: db}
}

// Get returns the mapping for a normalized company name, or (nil, nil) when
// none exists.
func (s *CompanyStore) Get(ctx context.Context, normalizedName string) (*domain.CompanyMapping, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT normalized_name, operation_type, country_code, total_jobs, active_jobs,
       last_job_date, created_at, updated_at
FROM company_mappings
WHERE normalized_name = ?;`, normalizedName)

	m, err := scanCompany(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get company mapping: %w", err)
	}
	return &m, nil
}

// EnsureUnknown inserts an Unknown mapping for the company unless one already
// exists and reports whether a row was created. ON CONFLICT DO NOTHING makes
// concurrent first sightings of the same company race-safe.
func (s *CompanyStore) EnsureUnknown(ctx context.Context, normalizedName string) (domain.CompanyMapping, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
INSERT INTO company_mappings (normalized_name, operation_type, created_at, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(normalized_name) DO NOTHING;`,
		normalizedName, string(domain.OpUnknown), now, now)
	if err != nil {
		return domain.CompanyMapping{}, false, fmt.Errorf("ensure company mapping: %w", err)
	}
	n, _ := res.RowsAffected()

	m, err := s.Get(ctx, normalizedName)
	if err != nil {
		return domain.CompanyMapping{}, false, err
	}
	if m == nil {
		return domain.CompanyMapping{}, false, fmt.Errorf("ensure company mapping: row vanished for %q", normalizedName)
	}
	return *m, n > 0, nil
}

// ListUnknown returns mappings still awaiting manual classification, oldest
// first, for the review queue.
func (s *CompanyStore) ListUnknown(ctx context.Context, limit int) ([]domain.CompanyMapping, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT normalized_name, operation_type, country_code, total_jobs, active_jobs,
       last_job_date, created_at, updated_at
FROM company_mappings
WHERE operation_type = ?
ORDER BY created_at ASC
LIMIT ?;`, string(domain.OpUnknown), limit)
	if err != nil {
		return nil, fmt.Errorf("list unknown companies: %w", err)
	}
	defer rows.Close()

	var out []domain.CompanyMapping
	for rows.Next() {
		m, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// RefreshCounters recomputes the denormalized per-company job counters.
// Called from the maintenance schedule, never from the scrape path.
func (s *CompanyStore) RefreshCounters(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
UPDATE company_mappings
SET total_jobs = (
      SELECT COUNT(*) FROM jobs
      WHERE LOWER(TRIM(jobs.company_name)) = company_mappings.normalized_name),
    active_jobs = (
      SELECT COUNT(*) FROM jobs
      WHERE LOWER(TRIM(jobs.company_name)) = company_mappings.normalized_name
        AND jobs.status IN ('new', 'active')),
    last_job_date = (
      SELECT MAX(posted_date) FROM jobs
      WHERE LOWER(TRIM(jobs.company_name)) = company_mappings.normalized_name),
    updated_at = ?;`,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("refresh company counters: %w", err)
	}
	return nil
}

func scanCompany(r rowScanner) (domain.CompanyMapping, error) {
	var (
		m           domain.CompanyMapping
		opType      string
		lastJobDate sql.NullString
		createdStr  string
		updatedStr  string
	)
	err := r.Scan(&m.NormalizedName, &opType, &m.CountryCode, &m.TotalJobs, &m.ActiveJobs,
		&lastJobDate, &createdStr, &updatedStr)
	if err != nil {
		return domain.CompanyMapping{}, err
	}
	m.OperationType = domain.OperationType(opType)
	if lastJobDate.Valid && lastJobDate.String != "" {
		if t, err := time.Parse(time.RFC3339, lastJobDate.String); err == nil {
			m.LastJobDate = &t
		}
	}
	m.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	m.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return m, nil
}
