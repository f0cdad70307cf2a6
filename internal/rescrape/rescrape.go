// Package rescrape implements the three-phase transactional job that
// rescrapes a changed URL and reindexes it: a short transaction marks
// the change event in_progress, the external scrape and reindex happen
// with no DB transaction held open, then a second short transaction
// records the final outcome.
package rescrape

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/ingest"
	"github.com/jmagar/pulse-sub007/internal/jobs"
	"github.com/jmagar/pulse-sub007/internal/logging"
	"github.com/jmagar/pulse-sub007/internal/metadatadb"
	"github.com/jmagar/pulse-sub007/internal/scraper"
)

// FunctionRef is the job type name registered with the broker.
const FunctionRef = "rescrape_changed_url"

const maxReasonLen = 200

func truncateReason(reason string) string {
	if len(reason) <= maxReasonLen {
		return reason
	}
	return reason[:maxReasonLen]
}

// Deps are the collaborators the rescrape job needs.
type Deps struct {
	DB      metadatadb.DB
	Scraper scraper.Scraper
	Ingest  ingest.Deps
}

// Run executes the full lifecycle for one change_event id. On any
// failure during the scrape or reindex phases it records
// failed:<reason> on the row and returns an error so the caller (the job
// broker) marks the job failed; on success the row ends completed with
// indexed_at set.
func Run(ctx context.Context, changeEventID int64, deps Deps) error {
	event, err := deps.DB.GetChangeEvent(ctx, changeEventID)
	if err != nil {
		return err
	}

	if err := deps.DB.UpdateChangeEvent(ctx, changeEventID, func(e *metadatadb.ChangeEvent) {
		e.RescrapeStatus = "in_progress"
	}); err != nil {
		return err
	}

	doc, err := deps.Scraper.Scrape(ctx, event.WatchURL)
	if err != nil {
		return fail(ctx, deps.DB, changeEventID, err)
	}

	result := ingest.Index(ctx, doc, deps.Ingest)
	if !result.Success {
		return fail(ctx, deps.DB, changeEventID, apperr.New(apperr.KindPermanentRemote, result.Error))
	}

	now := time.Now()
	if err := deps.DB.UpdateChangeEvent(ctx, changeEventID, func(e *metadatadb.ChangeEvent) {
		e.RescrapeStatus = "completed"
		e.IndexedAt = &now
		if e.ExtraMetadata == nil {
			e.ExtraMetadata = map[string]any{}
		}
		e.ExtraMetadata["chunks_indexed"] = result.ChunksIndexed
	}); err != nil {
		return err
	}
	return nil
}

func fail(ctx context.Context, db metadatadb.DB, changeEventID int64, cause error) error {
	reason := truncateReason(cause.Error())
	now := time.Now()
	updateErr := db.UpdateChangeEvent(ctx, changeEventID, func(e *metadatadb.ChangeEvent) {
		e.RescrapeStatus = "failed:" + reason
		if e.ExtraMetadata == nil {
			e.ExtraMetadata = map[string]any{}
		}
		e.ExtraMetadata["error"] = cause.Error()
		e.ExtraMetadata["failed_at"] = now.Format(time.RFC3339)
	})
	if updateErr != nil {
		logging.Log.WithError(updateErr).WithField("change_event_id", changeEventID).
			Error("rescrape: failed to record failure status")
	}
	return cause
}

// handlerArgs is the job payload shape: the change_event id only.
type handlerArgs struct {
	ChangeEventID int64 `json:"change_event_id"`
}

// NewHandler adapts Run into a jobs.Handler, decoding the change_event id
// from the job's args.
func NewHandler(deps Deps) jobs.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args handlerArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "decode rescrape job args", err)
		}
		if err := Run(ctx, args.ChangeEventID, deps); err != nil {
			return nil, err
		}
		return map[string]any{"change_event_id": args.ChangeEventID, "status": "completed"}, nil
	}
}
