// Package scrape defines the boundary between the orchestration core and the
// per-site scraping adapters. The core never interprets an adapter's HTML or
// API payloads; it only consumes the RawRecords the adapter yields.
package scrape

import (
	"context"
	"time"
)

// RawRecord is one scraped listing as the adapter saw it. The normalizer is
// the only consumer; nothing downstream of normalization touches raw maps.
//
// Well-known keys: source_url, title, company, country, description,
// posted_date (time.Time or RFC3339/2006-01-02 string), senior (bool).
// Everything else is preserved verbatim in the job's raw payload for audit.
type RawRecord map[string]any

// Params carries caller-supplied knobs through to the adapter (query terms,
// page limits). The core treats them as opaque.
type Params map[string]string

// Adapter is one black-box site scraper.
type Adapter interface {
	Name() string
	FetchRawJobs(ctx context.Context, params Params) ([]RawRecord, error)
}

// String returns the string value for key, or "" when absent or not a string.
func (r RawRecord) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Bool returns the bool value for key, or false when absent or not a bool.
func (r RawRecord) Bool(key string) bool {
	if v, ok := r[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// Time returns the time value for key. Accepts time.Time, *time.Time,
// RFC3339 strings and bare dates ("2006-01-02").
func (r RawRecord) Time(key string) *time.Time {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	switch t := v.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return &parsed
			}
		}
	}
	return nil
}
