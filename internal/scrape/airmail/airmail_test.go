package airmail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLooksLikeJobAlert(t *testing.T) {
	assert.True(t, looksLikeJobAlert("Daily Job Alert: 12 new matches"))
	assert.True(t, looksLikeJobAlert("New jobs for you"))
	assert.False(t, looksLikeJobAlert("Your invoice for March"))
}

func TestParseAlertBody(t *testing.T) {
	raw := "Subject: Job Alert\r\n\r\n" +
		"Your matches today:\n" +
		"A320 First Officer | Wizz Air | https://board.example.com/jobs/1\n" +
		"not a job line\n" +
		"B737 Captain | Ryanair | https://board.example.com/jobs/2\n" +
		"Missing URL | Delta | ftp://nope\n"

	date := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	records := parseAlertBody(message{Body: []byte(raw), Date: date, From: "alerts@board.example.com"})

	require.Len(t, records, 2)
	assert.Equal(t, "A320 First Officer", records[0].String("title"))
	assert.Equal(t, "Wizz Air", records[0].String("company"))
	assert.Equal(t, "https://board.example.com/jobs/1", records[0].String("source_url"))
	require.NotNil(t, records[0].Time("posted_date"))
	assert.Equal(t, date, *records[0].Time("posted_date"))
	assert.Equal(t, "B737 Captain", records[1].String("title"))
}

func TestParseAlertBody_NoParsableLines(t *testing.T) {
	records := parseAlertBody(message{Body: []byte("Subject: x\r\n\r\nnothing here")})
	assert.Empty(t, records)
}
