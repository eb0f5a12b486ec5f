// Package dedup decides whether an incoming listing is new, an update to a
// known listing, or a no-op repeat. This is the logic the idempotence of the
// whole pipeline rests on: the same input batch resolved twice must yield
// zero additional new records the second time.
package dedup

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agext/levenshtein"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
)

// Defaults for the tunables. The 0.85 threshold and ±24h window were carried
// over from production experience with re-posted listings; they are
// configuration, not contract.
const (
	DefaultSimilarityThreshold = 0.85
	DefaultDateWindow          = 24 * time.Hour
)

// CandidateSource is the slice of the job store the deduplicator queries.
type CandidateSource interface {
	GetBySourceURL(ctx context.Context, sourceURL string) (*domain.JobRecord, error)
	ByNormalizedTitle(ctx context.Context, normalizedTitle string) ([]domain.JobRecord, error)
	ByCompanyAround(ctx context.Context, company string, center *time.Time, window time.Duration) ([]domain.JobRecord, error)
}

// Config holds the fuzzy-match tunables.
type Config struct {
	SimilarityThreshold float64
	DateWindow          time.Duration
}

func (c Config) withDefaults() Config {
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		c.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if c.DateWindow <= 0 {
		c.DateWindow = DefaultDateWindow
	}
	return c
}

// Resolution is the outcome of resolving one listing against the catalog.
type Resolution struct {
	Decision domain.DedupDecision

	// Existing is the matched catalog record for Updated and Duplicate.
	Existing *domain.JobRecord

	// Changed lists the fields that differ (Updated only).
	Changed []string

	// Similarity is the best fuzzy score (fuzzy Updated only).
	Similarity float64

	// Alias is set when the match came through the fuzzy path under a new
	// URL; the stored record's source_url remains canonical.
	Alias bool
}

// Deduplicator classifies listings as New / Updated / Duplicate.
type Deduplicator struct {
	jobs CandidateSource
	cfg  Config
}

func New(jobs CandidateSource, cfg Config) *Deduplicator {
	return &Deduplicator{jobs: jobs, cfg: cfg.withDefaults()}
}

// Resolve applies the dedup algorithm: exact source_url match first, then a
// fuzzy title match to catch listings re-posted under a new URL, otherwise
// New. Deterministic for identical inputs and catalog state.
func (d *Deduplicator) Resolve(ctx context.Context, job domain.NormalizedJob) (Resolution, error) {
	// 1. Primary key match on source_url.
	existing, err := d.jobs.GetBySourceURL(ctx, job.SourceURL)
	if err != nil {
		return Resolution{}, fmt.Errorf("dedup lookup: %w", err)
	}
	if existing != nil {
		changed := changedFields(job, *existing)
		if len(changed) == 0 {
			return Resolution{Decision: domain.DecisionDuplicate, Existing: existing}, nil
		}
		return Resolution{Decision: domain.DecisionUpdated, Existing: existing, Changed: changed}, nil
	}

	// 2. Fuzzy match against re-posted listings under a different URL.
	best, score, err := d.bestFuzzyCandidate(ctx, job)
	if err != nil {
		return Resolution{}, err
	}
	if best != nil && score >= d.cfg.SimilarityThreshold {
		log.Printf("[dedup] alias: %q now also posted at %s (canonical %s, score %.3f)",
			job.Title, job.SourceURL, best.SourceURL, score)
		return Resolution{
			Decision:   domain.DecisionUpdated,
			Existing:   best,
			Changed:    changedFields(job, *best),
			Similarity: score,
			Alias:      true,
		}, nil
	}

	// 3. Nothing matched.
	return Resolution{Decision: domain.DecisionNew}, nil
}

// bestFuzzyCandidate picks the highest-scoring candidate; ties go to the most
// recently updated record. Candidates come from an exact normalized-title
// match, falling back to same company within the posted-date window.
func (d *Deduplicator) bestFuzzyCandidate(ctx context.Context, job domain.NormalizedJob) (*domain.JobRecord, float64, error) {
	candidates, err := d.jobs.ByNormalizedTitle(ctx, job.NormalizedTitle)
	if err != nil {
		return nil, 0, fmt.Errorf("dedup candidates by title: %w", err)
	}
	if len(candidates) == 0 && job.CompanyName != "" {
		candidates, err = d.jobs.ByCompanyAround(ctx, job.CompanyName, job.PostedDate, d.cfg.DateWindow)
		if err != nil {
			return nil, 0, fmt.Errorf("dedup candidates by company: %w", err)
		}
	}

	var (
		best  *domain.JobRecord
		score float64
	)
	for i := range candidates {
		c := &candidates[i]
		s := levenshtein.Similarity(job.NormalizedTitle, c.NormalizedTitle, nil)
		// Candidate lists are ordered by updated_at DESC, so a strict > keeps
		// the most recently updated record on score ties.
		if best == nil || s > score {
			best = c
			score = s
		}
	}
	return best, score, nil
}

// changedFields compares the incoming listing against a stored record and
// returns the names of fields whose values differ.
func changedFields(job domain.NormalizedJob, rec domain.JobRecord) []string {
	var changed []string
	if job.Title != rec.Title {
		changed = append(changed, "title")
	}
	if job.Description != rec.Description {
		changed = append(changed, "description")
	}
	if !equalDates(job.PostedDate, rec.PostedDate) {
		changed = append(changed, "posted_date")
	}
	if job.Senior != rec.Senior {
		changed = append(changed, "senior")
	}
	return changed
}

func equalDates(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UTC().Equal(b.UTC())
}
