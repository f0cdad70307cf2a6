package jobs

import (
	"context"
	"time"
)

// JobBroker is the narrow port the HTTP surface and webhook handlers
// consume: enqueue opaque payloads and run registered handlers.
type JobBroker interface {
	Enqueue(ctx context.Context, functionRef string, args any, timeout time.Duration) (jobID string, err error)
	Status(ctx context.Context, jobID string) (map[string]string, error)
	Run(ctx context.Context, handlers map[string]Handler) error
}

var _ JobBroker = (*Broker)(nil)
