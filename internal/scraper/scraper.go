// Package scraper defines the narrow port through which the rescrape job
// fetches a fresh copy of a changed URL, plus an HTTP-backed
// implementation calling an external scraping service.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/ingest"
)

// Scraper fetches a fresh Document for url.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ingest.Document, error)
}

// HTTP calls an external scrape endpoint that accepts a URL and returns
// page content as JSON; actual page fetching/rendering is an external
// collaborator's concern.
type HTTP struct {
	baseURL string
	client  *http.Client
}

// NewHTTP constructs an HTTP scraper against baseURL.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{baseURL: baseURL, client: &http.Client{Timeout: 60 * time.Second}}
}

type scrapeRequest struct {
	URL string `json:"url"`
}

type scrapeResponse struct {
	URL         string `json:"url"`
	ResolvedURL string `json:"resolved_url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Markdown    string `json:"markdown"`
	StatusCode  int    `json:"status_code"`
	Language    string `json:"language"`
	Country     string `json:"country"`
	IsMobile    bool   `json:"is_mobile"`
}

// Scrape calls the external scrape endpoint for url and adapts its
// response into an ingest.Document. Transport failures and 429/5xx
// responses are TransientRemote, other non-2xx responses PermanentRemote.
// Scrape makes a single attempt and does not retry; the rescrape job does
// not retry it either.
func (h *HTTP) Scrape(ctx context.Context, url string) (ingest.Document, error) {
	body, err := json.Marshal(scrapeRequest{URL: url})
	if err != nil {
		return ingest.Document{}, apperr.Wrap(apperr.KindInternal, "encode scrape request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/scrape", bytes.NewReader(body))
	if err != nil {
		return ingest.Document{}, apperr.Wrap(apperr.KindInternal, "build scrape request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return ingest.Document{}, apperr.Wrap(apperr.KindTransientRemote, "scrape request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return ingest.Document{}, apperr.New(apperr.KindTransientRemote, fmt.Sprintf("scraper returned status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return ingest.Document{}, apperr.New(apperr.KindPermanentRemote, fmt.Sprintf("scraper returned status %d", resp.StatusCode))
	}

	var out scrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ingest.Document{}, apperr.Wrap(apperr.KindPermanentRemote, "decode scrape response", err)
	}

	return ingest.Document{
		URL:         out.URL,
		ResolvedURL: out.ResolvedURL,
		Title:       out.Title,
		Description: out.Description,
		Markdown:    out.Markdown,
		StatusCode:  out.StatusCode,
		Language:    out.Language,
		Country:     out.Country,
		IsMobile:    out.IsMobile,
	}, nil
}
