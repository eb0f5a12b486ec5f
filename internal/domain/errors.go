package domain

import "errors"

// Error taxonomy for the scrape pipeline. Per-record errors (ErrValidation,
// ErrStore) are counted and swallowed at the batch level; run-level errors
// (ErrRunConflict, ErrAdapter, ErrRunTimeout) terminate or refuse the run.
var (
	// ErrValidation marks a malformed scraped record. The record is counted
	// as an error and skipped, never retried.
	ErrValidation = errors.New("record validation failed")

	// ErrRunConflict is returned when a run is requested for a scraper that
	// already has one in flight.
	ErrRunConflict = errors.New("scraper run already in progress")

	// ErrAdapter marks a whole-run failure of the external fetch layer.
	ErrAdapter = errors.New("site adapter failed")

	// ErrRunTimeout marks a run that exceeded its wall-clock budget.
	ErrRunTimeout = errors.New("run exceeded wall-clock timeout")

	// ErrStore marks a persistence failure on a single record.
	ErrStore = errors.New("store operation failed")

	// ErrRunNotFound is returned when a run id is unknown.
	ErrRunNotFound = errors.New("run not found")

	// ErrScraperNotFound is returned when a scraper name is not registered.
	ErrScraperNotFound = errors.New("scraper not registered")
)
