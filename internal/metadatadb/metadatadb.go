// Package metadatadb persists change_event rows tracking the lifecycle of
// externally detected URL changes through queued -> in_progress ->
// completed/failed.
package metadatadb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// ChangeEvent is a durable record of one externally detected URL change
// and the rescrape lifecycle that follows it.
type ChangeEvent struct {
	ID             int64
	WatchID        string
	WatchURL       string
	DetectedAt     time.Time
	DiffSummary    string
	SnapshotURL    string
	RescrapeJobID  string
	RescrapeStatus string // queued | in_progress | completed | failed:<reason>
	IndexedAt      *time.Time
	ExtraMetadata  map[string]any
	CreatedAt      time.Time
}

// DB is the MetadataDB port: narrow, no cross-call transactions required
// by the core.
type DB interface {
	InsertChangeEvent(ctx context.Context, e ChangeEvent) (int64, error)
	GetChangeEvent(ctx context.Context, id int64) (ChangeEvent, error)
	UpdateChangeEvent(ctx context.Context, id int64, mutate func(*ChangeEvent)) error
}

// Postgres adapts the jackc/pgx/v5 pool into the MetadataDB port.
type Postgres struct {
	pool *pgxpool.Pool
}

// New bootstraps the change_events table (best-effort CREATE TABLE IF NOT
// EXISTS) against a pgxpool built from dsn.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "parse database url", err)
	}
	cfg.MaxConns = 8
	cfg.MinConns = 0
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "open database pool", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, apperr.Wrap(apperr.KindTransientRemote, "ping database", err)
	}

	p := &Postgres{pool: pool}
	if err := p.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) bootstrap(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS change_events (
	id              BIGSERIAL PRIMARY KEY,
	watch_id        TEXT NOT NULL,
	watch_url       TEXT NOT NULL,
	detected_at     TIMESTAMPTZ NOT NULL,
	diff_summary    TEXT,
	snapshot_url    TEXT,
	rescrape_job_id TEXT,
	rescrape_status TEXT NOT NULL DEFAULT 'queued',
	indexed_at      TIMESTAMPTZ,
	extra_metadata  JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "bootstrap change_events table", err)
	}
	return nil
}

// InsertChangeEvent creates a new row, defaulting RescrapeStatus to
// "queued" if unset, and returns its id.
func (p *Postgres) InsertChangeEvent(ctx context.Context, e ChangeEvent) (int64, error) {
	if e.RescrapeStatus == "" {
		e.RescrapeStatus = "queued"
	}
	extra, err := json.Marshal(e.ExtraMetadata)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInvalidInput, "encode extra_metadata", err)
	}
	var id int64
	err = p.pool.QueryRow(ctx, `
INSERT INTO change_events (watch_id, watch_url, detected_at, diff_summary, snapshot_url, rescrape_job_id, rescrape_status, extra_metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`,
		e.WatchID, e.WatchURL, e.DetectedAt, nullableString(e.DiffSummary), nullableString(e.SnapshotURL),
		nullableString(e.RescrapeJobID), e.RescrapeStatus, extra,
	).Scan(&id)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransientRemote, "insert change_event", err)
	}
	return id, nil
}

// GetChangeEvent loads one row by id.
func (p *Postgres) GetChangeEvent(ctx context.Context, id int64) (ChangeEvent, error) {
	var e ChangeEvent
	var diffSummary, snapshotURL, rescrapeJobID *string
	var indexedAt *time.Time
	var extra []byte

	err := p.pool.QueryRow(ctx, `
SELECT id, watch_id, watch_url, detected_at, diff_summary, snapshot_url, rescrape_job_id, rescrape_status, indexed_at, extra_metadata, created_at
FROM change_events WHERE id = $1`, id).Scan(
		&e.ID, &e.WatchID, &e.WatchURL, &e.DetectedAt, &diffSummary, &snapshotURL, &rescrapeJobID,
		&e.RescrapeStatus, &indexedAt, &extra, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return ChangeEvent{}, apperr.New(apperr.KindNotFound, "change_event not found")
		}
		return ChangeEvent{}, apperr.Wrap(apperr.KindTransientRemote, "load change_event", err)
	}
	e.DiffSummary = derefString(diffSummary)
	e.SnapshotURL = derefString(snapshotURL)
	e.RescrapeJobID = derefString(rescrapeJobID)
	e.IndexedAt = indexedAt
	if len(extra) > 0 {
		_ = json.Unmarshal(extra, &e.ExtraMetadata)
	}
	return e, nil
}

// UpdateChangeEvent loads the row, applies mutate, and writes it back in
// a single statement — the "short transaction" the rescrape job relies on
// to never hold a connection open across the external scrape call.
func (p *Postgres) UpdateChangeEvent(ctx context.Context, id int64, mutate func(*ChangeEvent)) error {
	e, err := p.GetChangeEvent(ctx, id)
	if err != nil {
		return err
	}
	mutate(&e)

	extra, err := json.Marshal(e.ExtraMetadata)
	if err != nil {
		return apperr.Wrap(apperr.KindInvalidInput, "encode extra_metadata", err)
	}
	_, err = p.pool.Exec(ctx, `
UPDATE change_events
SET rescrape_job_id = $2, rescrape_status = $3, indexed_at = $4, extra_metadata = $5
WHERE id = $1`,
		id, nullableString(e.RescrapeJobID), e.RescrapeStatus, e.IndexedAt, extra,
	)
	if err != nil {
		return apperr.Wrap(apperr.KindTransientRemote, "update change_event", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
