package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmagar/pulse-sub007/internal/apperr"
)

func marshalArgs(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Fake is an in-memory JobBroker for tests: enqueue records the call,
// handlers are invoked synchronously via Drain rather than a background
// loop.
type Fake struct {
	mu      sync.Mutex
	pending []fakeJob
	status  map[string]map[string]string
}

type fakeJob struct {
	jobID       string
	functionRef string
	args        any
}

// NewFake constructs an empty in-memory broker.
func NewFake() *Fake {
	return &Fake{status: make(map[string]map[string]string)}
}

func (f *Fake) Enqueue(ctx context.Context, functionRef string, args any, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	jobID := uuid.NewString()
	f.pending = append(f.pending, fakeJob{jobID: jobID, functionRef: functionRef, args: args})
	f.status[jobID] = map[string]string{"status": string(StatusQueued)}
	return jobID, nil
}

func (f *Fake) Status(ctx context.Context, jobID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.status[jobID]
	if !ok {
		return nil, apperr.New(apperr.KindNotFound, "no such job")
	}
	out := make(map[string]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

// Run is a no-op for the fake; tests drive execution explicitly via
// Drain so job handling stays synchronous and deterministic.
func (f *Fake) Run(ctx context.Context, handlers map[string]Handler) error {
	return nil
}

// Drain synchronously executes every pending job against handlers,
// mirroring the same success/failure status transitions the real broker
// performs, and returns the number of jobs processed.
func (f *Fake) Drain(ctx context.Context, handlers map[string]Handler) int {
	f.mu.Lock()
	pending := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, job := range pending {
		handler, ok := handlers[job.functionRef]
		if !ok {
			f.setStatus(job.jobID, string(StatusFailed), "", "no handler registered")
			continue
		}
		argsJSON, _ := marshalArgs(job.args)
		result, err := handler(ctx, argsJSON)
		if err != nil {
			f.setStatus(job.jobID, string(StatusFailed), "", err.Error())
			continue
		}
		resultJSON, _ := marshalArgs(result)
		f.setStatus(job.jobID, string(StatusFinished), string(resultJSON), "")
	}
	return len(pending)
}

func (f *Fake) setStatus(jobID, status, result, excInfo string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[jobID] = map[string]string{"status": status, "result": result, "exc_info": excInfo}
}
