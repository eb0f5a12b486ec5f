// Package aeroboard fetches listings from the AeroBoard REST API, a paginated
// JSON feed of aviation vacancies. The API key is read from the OS keychain,
// never from config.
package aeroboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape"
	"github.com/expectexception/ifoa-aeroScrap-backend-sub000/internal/scrape/util"
)

const (
	pageSize = 50
	maxPages = 4
)

type Config struct {
	BaseURL string
	AppID   string
	Country string // "us", "gb", "de", ...
}

// KeyFunc resolves the API key for an app id (normally secrets.GetAdapterKey
// via the keychain; injected for tests).
type KeyFunc func(appID string) (string, error)

type Fetcher struct {
	cfg     Config
	keyFor  KeyFunc
	hc      *http.Client
	limiter *util.HostLimiter
}

func New(cfg Config, keyFor KeyFunc, limiter *util.HostLimiter) *Fetcher {
	return &Fetcher{
		cfg:     cfg,
		keyFor:  keyFor,
		hc:      &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
}

func (f *Fetcher) Name() string { return "aeroboard" }

type apiResponse struct {
	Results []apiResult `json:"results"`
	Count   int         `json:"count"`
}

type apiResult struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Company     struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	CountryCode string `json:"country_code"`
	RedirectURL string `json:"redirect_url"`
	Created     string `json:"created"`
	Seniority   string `json:"seniority"`
}

// FetchRawJobs pages through the feed until it runs dry or maxPages is hit.
// A missing API key skips the scrape gracefully rather than failing the run.
func (f *Fetcher) FetchRawJobs(ctx context.Context, params scrape.Params) ([]scrape.RawRecord, error) {
	key, err := f.keyFor(f.cfg.AppID)
	if err != nil {
		log.Printf("[aeroboard] no API key — skipping scrape: %v", err)
		return nil, nil
	}

	var out []scrape.RawRecord
	for page := 1; page <= maxPages; page++ {
		batch, err := f.fetchPage(ctx, key, params["query"], page)
		if err != nil {
			return out, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			break
		}
		out = append(out, batch...)
		if len(batch) < pageSize {
			break // last page
		}
	}
	return out, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, key, query string, page int) ([]scrape.RawRecord, error) {
	endpoint := fmt.Sprintf("%s/v1/jobs/%s/search/%d",
		strings.TrimRight(f.cfg.BaseURL, "/"), f.cfg.Country, page)

	vals := url.Values{}
	vals.Set("app_id", f.cfg.AppID)
	vals.Set("app_key", key)
	vals.Set("results_per_page", strconv.Itoa(pageSize))
	vals.Set("sort_by", "date")
	if query != "" {
		vals.Set("what", query)
	}
	reqURL := endpoint + "?" + vals.Encode()

	if f.limiter != nil {
		if err := f.limiter.WaitURL(ctx, reqURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("aeroboard returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	records := make([]scrape.RawRecord, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		records = append(records, scrape.RawRecord{
			"external_id": r.ID,
			"source_url":  r.RedirectURL,
			"title":       r.Title,
			"company":     r.Company.DisplayName,
			"country":     r.CountryCode,
			"description": r.Description,
			"posted_date": r.Created,
			"senior":      strings.EqualFold(r.Seniority, "senior"),
		})
	}
	return records, nil
}
