// Package classify resolves company names to their operation type
// (Airline, MRO, Airport, Cargo, ...).
package classify

import (
	"context"
	"fmt"
	"log"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/normalize"
)

// MappingStore is the slice of the company store the classifier needs.
type MappingStore interface {
	Get(ctx context.Context, normalizedName string) (*domain.CompanyMapping, error)
	EnsureUnknown(ctx context.Context, normalizedName string) (domain.CompanyMapping, bool, error)
}

// Classifier looks up companies in the mapping table. It is the only
// component allowed to create mapping rows automatically: first sight of an
// unmapped company inserts it as Unknown so it lands in the review queue.
type Classifier struct {
	mappings MappingStore
}

func New(mappings MappingStore) *Classifier {
	return &Classifier{mappings: mappings}
}

// Classify returns the company's operation type and whether the mapping was
// already curated (known). Empty company names classify as Unknown without
// creating a row.
func (c *Classifier) Classify(ctx context.Context, companyName string) (domain.OperationType, bool, error) {
	key := normalize.Company(companyName)
	if key == "" {
		return domain.OpUnknown, false, nil
	}

	m, err := c.mappings.Get(ctx, key)
	if err != nil {
		return domain.OpUnknown, false, fmt.Errorf("classify %q: %w", companyName, err)
	}
	if m != nil {
		return m.OperationType, m.OperationType != domain.OpUnknown, nil
	}

	_, created, err := c.mappings.EnsureUnknown(ctx, key)
	if err != nil {
		return domain.OpUnknown, false, fmt.Errorf("classify %q: %w", companyName, err)
	}
	if created {
		log.Printf("[classify] new unknown company %q queued for review", key)
	}
	return domain.OpUnknown, false, nil
}
