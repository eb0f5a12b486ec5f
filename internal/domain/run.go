// Run state machine for scraper executions.
//
// Valid status graph:
//
//	pending ──► running ──► completed
//	   │            │  └───► failed
//	   └────────────┴──────► cancelled
//
// completed, failed and cancelled are terminal states.
package domain

import (
	"fmt"
	"time"
)

// RunStatus mirrors the scraper_jobs.status column.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// validRunTransitions lists every allowed (from → to) pair.
var validRunTransitions = map[RunStatus][]RunStatus{
	RunPending: {RunRunning, RunFailed, RunCancelled},
	RunRunning: {RunCompleted, RunFailed, RunCancelled},
	// completed, failed and cancelled are terminal — no outgoing transitions
}

// ParseRunStatus converts a raw string to a RunStatus, returning an error for
// unknown values.
func ParseRunStatus(s string) (RunStatus, error) {
	st := RunStatus(s)
	switch st {
	case RunPending, RunRunning, RunCompleted, RunFailed, RunCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown run status %q", s)
}

// IsRunTransitionAllowed returns true when moving from → to is permitted by
// the state machine.
func IsRunTransitionAllowed(from, to RunStatus) bool {
	allowed, ok := validRunTransitions[from]
	if !ok {
		return false // terminal state — no outgoing transitions
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true for completed, failed and cancelled.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// RunCounts aggregates per-record outcomes for one scraper execution.
// Once the run is terminal, Found == New + Updated + Duplicates + Errors.
type RunCounts struct {
	Found      int
	New        int
	Updated    int
	Duplicates int
	Errors     int
}

// Sum returns New + Updated + Duplicates + Errors.
func (c RunCounts) Sum() int {
	return c.New + c.Updated + c.Duplicates + c.Errors
}

// ScraperJob is one execution attempt of a named scraper.
type ScraperJob struct {
	ID          string // uuid
	ScraperName string
	Status      RunStatus

	StartedAt            *time.Time
	CompletedAt          *time.Time
	ExecutionTimeSeconds float64

	Counts RunCounts

	ErrorMessage string
	TriggeredBy  string

	CreatedAt time.Time
}
