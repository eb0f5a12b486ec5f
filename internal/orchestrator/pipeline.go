package orchestrator

import (
	"context"
	"fmt"
	"log"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/classify"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/dedup"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/normalize"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/store"
)

// Pipeline processes one raw record at a time:
// normalize → classify → dedup → store. Each record's failure is isolated;
// the caller counts it and moves on.
type Pipeline struct {
	classifier *classify.Classifier
	dedup      *dedup.Deduplicator
	jobs       *store.JobStore

	maxDescription int
}

func NewPipeline(classifier *classify.Classifier, dd *dedup.Deduplicator, jobs *store.JobStore, maxDescription int) *Pipeline {
	if maxDescription <= 0 {
		maxDescription = normalize.DefaultMaxDescription
	}
	return &Pipeline{
		classifier:     classifier,
		dedup:          dd,
		jobs:           jobs,
		maxDescription: maxDescription,
	}
}

// ProcessRecord runs one record through the full pipeline and returns the
// dedup decision that was persisted.
func (p *Pipeline) ProcessRecord(ctx context.Context, raw scrape.RawRecord, source string) (domain.DedupDecision, error) {
	job, err := normalize.Job(raw, source, p.maxDescription)
	if err != nil {
		return "", err
	}

	opType, known, err := p.classifier.Classify(ctx, job.CompanyName)
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	if !known && job.CompanyName != "" {
		log.Printf("[pipeline:%s] unclassified company %q url=%s", source, job.CompanyName, job.SourceURL)
	}

	res, err := p.dedup.Resolve(ctx, job)
	if err != nil {
		return "", fmt.Errorf("dedup: %w", err)
	}

	if _, err := p.jobs.Upsert(ctx, job, opType, res.Decision, res.Existing); err != nil {
		return "", err
	}
	return res.Decision, nil
}
