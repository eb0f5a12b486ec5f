// Package normalize turns raw scraped records into canonical NormalizedJobs.
// Every function here is pure: no I/O, no clock, no randomness. Title and
// company normalization must stay stable across releases because dedup
// matching depends on it.
package normalize

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
)

// DefaultMaxDescription caps stored descriptions, in runes.
const DefaultMaxDescription = 10000

// CleanText collapses whitespace (including non-breaking spaces) and trims.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}

// Title lowercases, strips everything but letters, digits and spaces, and
// collapses repeated whitespace. "Senior First Officer – A320" and
// "Senior First Officer - A320" both come out as "senior first officer a320".
func Title(s string) string {
	s = strings.ToLower(CleanText(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Company is the lookup key form of a company name: lowercased and trimmed.
func Company(s string) string {
	return strings.ToLower(CleanText(s))
}

// TruncateDescription cuts s to at most max runes. Never fails on
// over-length input.
func TruncateDescription(s string, max int) string {
	if max <= 0 {
		max = DefaultMaxDescription
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// Job converts one raw record into a NormalizedJob. It fails with
// domain.ErrValidation when source_url or title is missing; such records are
// counted as errors and skipped, not retried.
func Job(raw scrape.RawRecord, source string, maxDescription int) (domain.NormalizedJob, error) {
	sourceURL := CleanText(raw.String("source_url"))
	if sourceURL == "" {
		return domain.NormalizedJob{}, fmt.Errorf("%w: missing source_url", domain.ErrValidation)
	}
	title := CleanText(raw.String("title"))
	if title == "" {
		return domain.NormalizedJob{}, fmt.Errorf("%w: missing title (url=%s)", domain.ErrValidation, sourceURL)
	}

	j := domain.NormalizedJob{
		SourceURL:       sourceURL,
		Title:           title,
		NormalizedTitle: Title(title),
		CompanyName:     CleanText(raw.String("company")),
		CountryCode:     strings.ToUpper(CleanText(raw.String("country"))),
		Description:     TruncateDescription(CleanText(raw.String("description")), maxDescription),
		PostedDate:      raw.Time("posted_date"),
		Senior:          raw.Bool("senior"),
		Source:          source,
		RawPayload:      map[string]any(raw),
	}
	return j, nil
}
