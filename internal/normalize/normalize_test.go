package normalize_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/domain"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/normalize"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
)

func TestTitle(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Senior First Officer – A320", "senior first officer a320"},
		{"Senior First Officer - A320", "senior first officer a320"},
		{"  B737  Captain!!  ", "b737 captain"},
		{"A&P Mechanic (Line)", "a p mechanic line"},
		{"pilot", "pilot"},
		{"", ""},
	}
	for _, c := range cases {
		if got := normalize.Title(c.in); got != c.want {
			t.Errorf("Title(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTitle_Deterministic(t *testing.T) {
	in := "Senior First   Officer – A320"
	first := normalize.Title(in)
	for i := 0; i < 5; i++ {
		if got := normalize.Title(in); got != first {
			t.Fatalf("Title is not stable: %q vs %q", got, first)
		}
	}
}

func TestCompany(t *testing.T) {
	if got := normalize.Company("  Delta Air Lines "); got != "delta air lines" {
		t.Errorf("Company = %q", got)
	}
}

func TestCleanText(t *testing.T) {
	if got := normalize.CleanText("a b\n  c"); got != "a b c" {
		t.Errorf("CleanText = %q", got)
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("é", 50)
	got := normalize.TruncateDescription(long, 10)
	assert.Equal(t, 10, len([]rune(got)))
	assert.Equal(t, "short", normalize.TruncateDescription("short", 10))
}

func TestJob_OK(t *testing.T) {
	posted := "2026-03-01"
	raw := scrape.RawRecord{
		"source_url":  " https://jobs.example.com/123 ",
		"title":       "Senior First Officer – A320",
		"company":     "Delta Air Lines",
		"country":     "us",
		"description": "Fly the A320 family.",
		"posted_date": posted,
		"senior":      true,
	}

	j, err := normalize.Job(raw, "skyquest", 0)
	require.NoError(t, err)

	assert.Equal(t, "https://jobs.example.com/123", j.SourceURL)
	assert.Equal(t, "Senior First Officer – A320", j.Title)
	assert.Equal(t, "senior first officer a320", j.NormalizedTitle)
	assert.Equal(t, "Delta Air Lines", j.CompanyName)
	assert.Equal(t, "US", j.CountryCode)
	assert.True(t, j.Senior)
	assert.Equal(t, "skyquest", j.Source)
	require.NotNil(t, j.PostedDate)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *j.PostedDate)
	assert.Equal(t, "Senior First Officer – A320", j.RawPayload["title"])
}

func TestJob_MissingFields(t *testing.T) {
	cases := []struct {
		name string
		raw  scrape.RawRecord
	}{
		{"no url", scrape.RawRecord{"title": "Pilot"}},
		{"empty url", scrape.RawRecord{"source_url": "  ", "title": "Pilot"}},
		{"no title", scrape.RawRecord{"source_url": "https://x/1"}},
		{"empty title", scrape.RawRecord{"source_url": "https://x/1", "title": ""}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := normalize.Job(c.raw, "test", 0)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrValidation), "want ErrValidation, got %v", err)
		})
	}
}

func TestJob_TruncatesOverlongDescription(t *testing.T) {
	raw := scrape.RawRecord{
		"source_url":  "https://x/1",
		"title":       "Pilot",
		"description": strings.Repeat("x", 20000),
	}
	j, err := normalize.Job(raw, "test", 0)
	require.NoError(t, err)
	assert.Equal(t, normalize.DefaultMaxDescription, len([]rune(j.Description)))
}
