package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
	"github.com/jmagar/pulse-sub007/internal/rescrape"
)

// changeDetectionPayload is the body a change-detection service posts when
// a watched URL's content diverges from its last known snapshot.
type changeDetectionPayload struct {
	WatchID     string `json:"watch_id"`
	WatchURL    string `json:"watch_url"`
	DetectedAt  string `json:"detected_at"`
	DiffSummary string `json:"diff_summary"`
	SnapshotURL string `json:"snapshot_url"`
}

// ChangeDetectionResponse is the 202 payload returned for an accepted
// change event.
type ChangeDetectionResponse struct {
	Status        string `json:"status"`
	JobID         string `json:"job_id"`
	ChangeEventID int64  `json:"change_event_id"`
	URL           string `json:"url"`
}

// HandleChangeDetection verifies the signature, validates the payload,
// inserts a queued change_event row, enqueues the rescrape job, and writes
// the returned job id back onto the row.
func HandleChangeDetection(ctx context.Context, secret string, body []byte, signatureHeader string, db metadatadb.DB, broker jobs.JobBroker) (ChangeDetectionResponse, error) {
	if err := VerifySignature(secret, body, signatureHeader); err != nil {
		return ChangeDetectionResponse{}, err
	}

	var payload changeDetectionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return ChangeDetectionResponse{}, apperr.Wrap(apperr.KindInvalidInput, "decode change-detection webhook body", err)
	}
	if payload.WatchID == "" || payload.WatchURL == "" || payload.DetectedAt == "" {
		return ChangeDetectionResponse{}, apperr.New(apperr.KindInvalidInput, "watch_id, watch_url, and detected_at are required")
	}
	detectedAt, err := time.Parse(time.RFC3339, payload.DetectedAt)
	if err != nil {
		return ChangeDetectionResponse{}, apperr.Wrap(apperr.KindInvalidInput, "detected_at must be RFC3339", err)
	}

	id, err := db.InsertChangeEvent(ctx, metadatadb.ChangeEvent{
		WatchID:        payload.WatchID,
		WatchURL:       payload.WatchURL,
		DetectedAt:     detectedAt,
		DiffSummary:    payload.DiffSummary,
		SnapshotURL:    payload.SnapshotURL,
		RescrapeStatus: "queued",
	})
	if err != nil {
		return ChangeDetectionResponse{}, err
	}

	jobID, err := broker.Enqueue(ctx, rescrape.FunctionRef, map[string]any{"change_event_id": id}, 0)
	if err != nil {
		return ChangeDetectionResponse{}, err
	}

	if err := db.UpdateChangeEvent(ctx, id, func(e *metadatadb.ChangeEvent) {
		e.RescrapeJobID = jobID
	}); err != nil {
		return ChangeDetectionResponse{}, err
	}

	return ChangeDetectionResponse{
		Status:        "queued",
		JobID:         jobID,
		ChangeEventID: id,
		URL:           payload.WatchURL,
	}, nil
}
