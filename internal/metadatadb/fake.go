package metadatadb

import (
	"context"
	"sync"
	"time"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

// Fake is an in-memory DB for tests.
type Fake struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]ChangeEvent
}

// NewFake constructs an empty in-memory metadata DB.
func NewFake() *Fake {
	return &Fake{rows: make(map[int64]ChangeEvent)}
}

func (f *Fake) InsertChangeEvent(ctx context.Context, e ChangeEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	e.ID = f.nextID
	if e.RescrapeStatus == "" {
		e.RescrapeStatus = "queued"
	}
	e.CreatedAt = time.Now()
	if e.ExtraMetadata == nil {
		e.ExtraMetadata = map[string]any{}
	}
	f.rows[e.ID] = e
	return e.ID, nil
}

func (f *Fake) GetChangeEvent(ctx context.Context, id int64) (ChangeEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return ChangeEvent{}, apperr.New(apperr.KindNotFound, "change_event not found")
	}
	return e, nil
}

func (f *Fake) UpdateChangeEvent(ctx context.Context, id int64, mutate func(*ChangeEvent)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[id]
	if !ok {
		return apperr.New(apperr.KindNotFound, "change_event not found")
	}
	mutate(&e)
	f.rows[id] = e
	return nil
}
