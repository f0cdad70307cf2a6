package webhook

import (
	"context"
	"encoding/json"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/ingest"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/logging"
)

// firecrawlEnvelope is the common shape every firecrawl event carries;
// Type selects which variant Data actually is.
type firecrawlEnvelope struct {
	Type    string          `json:"type"`
	EventID string          `json:"id"`
	Data    json.RawMessage `json:"data"`
}

// firecrawlPage is one scraped page inside a page-with-data event.
type firecrawlPage struct {
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

var firecrawlPageEventTypes = map[string]bool{
	"page": true, "crawl.page": true, "document": true,
}
var firecrawlLifecycleEventTypes = map[string]bool{
	"started": true, "completed": true, "failed": true,
}

// FirecrawlResponse is the 202 payload returned for every accepted event.
type FirecrawlResponse struct {
	EventType       string   `json:"event_type"`
	EventID         string   `json:"event_id"`
	QueuedJobs      []string `json:"queued_jobs"`
	FailedDocuments int      `json:"failed_documents"`
}

// HandleFirecrawl verifies the signature, decodes the discriminated-union
// payload, and enqueues index_document per page in a page event. Lifecycle
// events (started/completed/failed) are acknowledged without enqueuing
// anything. Unknown event types are rejected as InvalidInput (422).
func HandleFirecrawl(ctx context.Context, secret string, body []byte, signatureHeader string, broker jobs.JobBroker) (FirecrawlResponse, error) {
	if err := VerifySignature(secret, body, signatureHeader); err != nil {
		return FirecrawlResponse{}, err
	}

	var env firecrawlEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return FirecrawlResponse{}, apperr.Wrap(apperr.KindInvalidInput, "decode firecrawl webhook body", err)
	}

	if firecrawlLifecycleEventTypes[env.Type] {
		return FirecrawlResponse{EventType: env.Type, EventID: env.EventID}, nil
	}

	if !firecrawlPageEventTypes[env.Type] {
		return FirecrawlResponse{}, apperr.New(apperr.KindInvalidInput, "unknown firecrawl event type: "+env.Type)
	}

	var pages []firecrawlPage
	if err := json.Unmarshal(env.Data, &pages); err != nil {
		var single firecrawlPage
		if err2 := json.Unmarshal(env.Data, &single); err2 != nil {
			return FirecrawlResponse{}, apperr.Wrap(apperr.KindInvalidInput, "decode firecrawl page data", err)
		}
		pages = []firecrawlPage{single}
	}

	jobIDs := make([]string, 0, len(pages))
	failed := 0
	for _, p := range pages {
		id, err := broker.Enqueue(ctx, ingest.FunctionRef, p, 0)
		if err != nil {
			logging.Log.WithError(err).WithField("url", p.URL).Warn("webhook: failed to enqueue index_document")
			failed++
			continue
		}
		jobIDs = append(jobIDs, id)
	}

	return FirecrawlResponse{
		EventType:       env.Type,
		EventID:         env.EventID,
		QueuedJobs:      jobIDs,
		FailedDocuments: failed,
	}, nil
}
