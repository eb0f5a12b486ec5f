package domain

import (
	"fmt"
	"time"
)

// OperationType is the business-category classification of a company.
type OperationType string

const (
	OpAirline OperationType = "Airline"
	OpMRO     OperationType = "MRO"
	OpAirport OperationType = "Airport"
	OpCargo   OperationType = "Cargo"
	OpOther   OperationType = "Other"
	OpUnknown OperationType = "Unknown"
)

// ParseOperationType converts a raw string to an OperationType, returning an
// error for unknown values.
func ParseOperationType(s string) (OperationType, error) {
	op := OperationType(s)
	switch op {
	case OpAirline, OpMRO, OpAirport, OpCargo, OpOther, OpUnknown:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation type %q", s)
}

// CompanyMapping links a normalized company name to its operation type.
// Rows are created automatically (as Unknown) the first time a company is
// seen; the classification itself is curated manually afterwards.
type CompanyMapping struct {
	NormalizedName string // lowercased, trimmed; unique key
	OperationType  OperationType
	CountryCode    string

	// Denormalized counters, recomputed by a maintenance task outside the
	// synchronous scrape path.
	TotalJobs   int
	ActiveJobs  int
	LastJobDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
