package domain

import "time"

// JobStatus is the catalog lifecycle state of a persisted listing.
type JobStatus string

const (
	JobStatusNew      JobStatus = "new"
	JobStatusActive   JobStatus = "active"
	JobStatusClosed   JobStatus = "closed"
	JobStatusArchived JobStatus = "archived"
)

// NormalizedJob is the canonical form of one scraped listing, produced by the
// normalizer from whatever shape the site adapter yielded. Ephemeral: only
// JobRecord is persisted.
type NormalizedJob struct {
	SourceURL       string
	Title           string
	NormalizedTitle string
	CompanyName     string
	CountryCode     string // ISO-ish 2–3 letter code, may be empty
	Description     string
	PostedDate      *time.Time
	Senior          bool
	Source          string // scraper identifier
	RawPayload      map[string]any
}

// JobRecord is a persisted catalog entry. SourceURL is globally unique and is
// the primary dedup key.
type JobRecord struct {
	ID              int64
	SourceURL       string
	Title           string
	NormalizedTitle string
	CompanyName     string
	CountryCode     string
	Description     string
	PostedDate      *time.Time
	Senior          bool
	Source          string
	OperationType   OperationType // empty until classified
	Status          JobStatus
	LastChecked     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DedupDecision is how the deduplicator classified one incoming listing
// against the catalog.
type DedupDecision string

const (
	DecisionNew       DedupDecision = "new"
	DecisionUpdated   DedupDecision = "updated"
	DecisionDuplicate DedupDecision = "duplicate"
)
