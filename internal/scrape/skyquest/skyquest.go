// Package skyquest scrapes the SkyQuest aviation job board (plain HTML
// listing pages). The orchestration core treats it as a black box yielding
// raw records; parsing here is deliberately shallow.
package skyquest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/util"
)

type Config struct {
	BaseURL string // e.g. https://www.skyquestjobs.com
}

type Scraper struct {
	cfg     Config
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, limiter *util.HostLimiter) *Scraper {
	return &Scraper{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (s *Scraper) Name() string { return "skyquest" }

func (s *Scraper) FetchRawJobs(ctx context.Context, params scrape.Params) ([]scrape.RawRecord, error) {
	listURL := strings.TrimRight(s.cfg.BaseURL, "/") + "/jobs"
	if q := params["query"]; q != "" {
		listURL += "?q=" + q
	}

	doc, err := s.fetchDoc(ctx, listURL)
	if err != nil {
		return nil, fmt.Errorf("skyquest list page: %w", err)
	}

	seen := map[string]bool{}
	var out []scrape.RawRecord

	doc.Find("div.job-listing").Each(func(_ int, card *goquery.Selection) {
		a := card.Find("a.job-title").First()
		href, ok := a.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs := href
		if strings.HasPrefix(href, "/") {
			abs = strings.TrimRight(s.cfg.BaseURL, "/") + href
		}
		if seen[abs] {
			return
		}
		seen[abs] = true

		rec := scrape.RawRecord{
			"source_url":  abs,
			"title":       cleanText(a.Text()),
			"company":     cleanText(card.Find(".job-company").First().Text()),
			"country":     cleanText(card.Find(".job-country").First().AttrOr("data-code", "")),
			"description": cleanText(card.Find(".job-summary").First().Text()),
		}
		if d, ok := card.Find("time").First().Attr("datetime"); ok {
			rec["posted_date"] = strings.TrimSpace(d)
		}
		titleLower := strings.ToLower(rec.String("title"))
		rec["senior"] = strings.Contains(titleLower, "senior") || strings.Contains(titleLower, "captain")

		out = append(out, rec)
	})

	return out, nil
}

func (s *Scraper) fetchDoc(ctx context.Context, url string) (*goquery.Document, error) {
	if s.limiter != nil {
		if err := s.limiter.WaitURL(ctx, url); err != nil {
			return nil, err
		}
	}

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	req.Header.Set("User-Agent", "AeroScrap/1.0 (+aggregator)")

	res, err := s.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}

	return goquery.NewDocumentFromReader(res.Body)
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
