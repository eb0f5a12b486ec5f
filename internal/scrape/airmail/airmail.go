// Package airmail turns job-alert emails from aviation boards into raw
// records. Each alert line has the shape
//
//	<title> | <company> | <url>
//
// which is the digest format the subscribed boards send.
package airmail

import (
	"context"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"github.com/emersion/go-imap/v2"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
)

type Config struct {
	IMAPHost string
	IMAPPort int
	Username string
}

// PasswordFunc resolves the IMAP password (normally the OS keychain via
// secrets.GetAdapterKey; injected for tests).
type PasswordFunc func() (string, error)

type Fetcher struct {
	cfg      Config
	password PasswordFunc
}

func New(cfg Config, password PasswordFunc) *Fetcher {
	return &Fetcher{cfg: cfg, password: password}
}

func (f *Fetcher) Name() string { return "airmail" }

func (f *Fetcher) FetchRawJobs(ctx context.Context, _ scrape.Params) ([]scrape.RawRecord, error) {
	pw, err := f.password()
	if err != nil {
		log.Printf("[airmail] no IMAP password — skipping scrape: %v", err)
		return nil, nil
	}

	addr := fmt.Sprintf("%s:%d", f.cfg.IMAPHost, f.cfg.IMAPPort)
	c, err := dialAndLogin(ctx, addr, f.cfg.Username, pw)
	if err != nil {
		return nil, err
	}
	defer logoutAndClose(c)

	msgs, err := fetchUnseen(ctx, c, 50)
	if err != nil {
		return nil, err
	}

	var (
		out       []scrape.RawRecord
		processed []imap.UID
	)
	for _, m := range msgs {
		if !looksLikeJobAlert(m.Subject) {
			continue
		}
		records := parseAlertBody(m)
		if len(records) == 0 {
			continue
		}
		out = append(out, records...)
		processed = append(processed, m.UID)
	}

	if err := markSeen(c, processed); err != nil {
		// Not fatal: dedup downstream absorbs the re-delivery next poll.
		log.Printf("[airmail] mark seen: %v", err)
	}

	log.Printf("[airmail] %d alert email(s), %d record(s)", len(processed), len(out))
	return out, nil
}

func looksLikeJobAlert(subject string) bool {
	s := strings.ToLower(subject)
	return strings.Contains(s, "job alert") || strings.Contains(s, "new jobs")
}

// parseAlertBody extracts "title | company | url" lines from the plain-text
// part of the alert.
func parseAlertBody(m message) []scrape.RawRecord {
	body := bodyText(m.Body)
	var out []scrape.RawRecord
	for _, line := range strings.Split(body, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		title := strings.TrimSpace(parts[0])
		company := strings.TrimSpace(parts[1])
		url := strings.TrimSpace(parts[2])
		if title == "" || !strings.HasPrefix(url, "http") {
			continue
		}
		rec := scrape.RawRecord{
			"source_url": url,
			"title":      title,
			"company":    company,
			"alert_from": m.From,
		}
		if !m.Date.IsZero() {
			rec["posted_date"] = m.Date
		}
		out = append(out, rec)
	}
	return out
}

// bodyText returns the message body with headers stripped. The alerts are
// plain text; anything else just yields no parsable lines.
func bodyText(raw []byte) string {
	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	if err != nil {
		return string(raw)
	}
	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		n, err := msg.Body.Read(buf)
		b.Write(buf[:n])
		if err != nil {
			break
		}
	}
	return b.String()
}
