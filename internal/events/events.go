package events

import "time"

// Event is one run lifecycle notification (run_started, run_completed,
// job_created, ...). It carries the run's identity so subscribers can refresh
// without a follow-up lookup.
type Event struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	RunID   string    `json:"run_id,omitempty"`
	Scraper string    `json:"scraper,omitempty"`
	Status  string    `json:"status,omitempty"`
}
