package ingest

import (
	"context"
	"encoding/json"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/jobs"
)

// FunctionRef is the job type name registered with the broker for
// indexing a single scraped document.
const FunctionRef = "index_document"

// handlerArgs mirrors the doc_map payload webhook handlers enqueue.
type handlerArgs struct {
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

// NewHandler adapts Index into a jobs.Handler. Index never returns a Go
// error; any failure is reported in its Result, and that result (not an
// error) is what the handler returns, so the job finishes "finished"
// with a failure payload rather than "failed" -- indexing problems are
// data about one document, not a reason to retry the job machinery.
func NewHandler(deps Deps) jobs.Handler {
	return func(ctx context.Context, raw json.RawMessage) (any, error) {
		var args handlerArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, apperr.Wrap(apperr.KindInvalidInput, "decode index_document job args", err)
		}

		doc := Document{
			URL:         args.URL,
			ResolvedURL: args.ResolvedURL,
			Title:       args.Title,
			Description: args.Description,
			Markdown:    args.Markdown,
			StatusCode:  args.StatusCode,
			Language:    args.Language,
			Country:     args.Country,
			IsMobile:    args.IsMobile,
		}

		result := Index(ctx, doc, deps)
		return map[string]any{
			"success":        result.Success,
			"url":            result.URL,
			"chunks_indexed": result.ChunksIndexed,
			"total_tokens":   result.TotalTokens,
			"error":          result.Error,
			"error_type":     result.ErrorType,
		}, nil
	}
}
