// Package jobs implements the named-queue background job system: a
// Redis-backed broker for enqueue/dequeue, and a bounded worker loop that
// dispatches to typed handlers with per-job timeout and status tracking.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jmagar/pulse-sub007/internal/apperr"
	"github.com/jmagar/pulse-sub007/internal/logging"
)

// Status is the lifecycle state of a job record in the broker.
type Status string

const (
	StatusQueued   Status = "queued"
	StatusStarted  Status = "started"
	StatusFinished Status = "finished"
	StatusFailed   Status = "failed"
)

// DefaultTimeout is the per-job execution budget applied when the caller
// does not specify one.
const DefaultTimeout = 10 * time.Minute

// DefaultQueue is the named queue used when the caller does not specify
// one.
const DefaultQueue = "indexing"

// Job is the payload durably queued in Redis: an opaque function
// reference plus its arguments.
type Job struct {
	JobID       string          `json:"job_id"`
	FunctionRef string          `json:"function_ref"`
	Args        json.RawMessage `json:"args"`
	Timeout     time.Duration   `json:"timeout"`
	EnqueuedAt  time.Time       `json:"enqueued_at"`
}

// Handler executes one registered job type.
type Handler func(ctx context.Context, args json.RawMessage) (result any, err error)

// Broker is the named-queue Redis broker: RPUSH to enqueue, BLPOP to
// dequeue, with a status hash per job for result/exc_info tracking.
type Broker struct {
	client *redis.Client
	queue  string
}

// New constructs a Broker from a Redis connection string (e.g.
// redis://host:6379/0) against the default queue name.
func New(redisURL string) (*Broker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, "parse redis url", err)
	}
	client := redis.NewClient(opts)
	return &Broker{client: client, queue: DefaultQueue}, nil
}

// NewWithClient wraps an existing client, e.g. one shared with other
// subsystems or configured with TLS/auth the DSN form can't express.
func NewWithClient(client *redis.Client, queue string) *Broker {
	if queue == "" {
		queue = DefaultQueue
	}
	return &Broker{client: client, queue: queue}
}

func statusKey(jobID string) string { return "job:" + jobID }

// Enqueue marshals args, pushes the job onto the named queue, and records
// a "queued" status row. It returns the stable job id.
func (b *Broker) Enqueue(ctx context.Context, functionRef string, args any, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInvalidInput, "encode job args", err)
	}

	job := Job{
		JobID:       uuid.NewString(),
		FunctionRef: functionRef,
		Args:        raw,
		Timeout:     timeout,
		EnqueuedAt:  time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "encode job envelope", err)
	}

	pipe := b.client.TxPipeline()
	pipe.RPush(ctx, b.queue, data)
	pipe.HSet(ctx, statusKey(job.JobID), map[string]any{"status": string(StatusQueued)})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", apperr.Wrap(apperr.KindTransientRemote, "enqueue job", err)
	}
	return job.JobID, nil
}

// Status returns the current status hash fields for a job id.
func (b *Broker) Status(ctx context.Context, jobID string) (map[string]string, error) {
	m, err := b.client.HGetAll(ctx, statusKey(jobID)).Result()
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransientRemote, "fetch job status", err)
	}
	if len(m) == 0 {
		return nil, apperr.New(apperr.KindNotFound, fmt.Sprintf("no such job %s", jobID))
	}
	return m, nil
}

// dequeue blocks until a job is available or ctx is done.
func (b *Broker) dequeue(ctx context.Context) (Job, error) {
	res, err := b.client.BLPop(ctx, 0, b.queue).Result()
	if err != nil {
		return Job{}, err
	}
	if len(res) < 2 {
		return Job{}, fmt.Errorf("jobs: unexpected BLPOP result shape")
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return Job{}, apperr.Wrap(apperr.KindInternal, "decode job envelope", err)
	}
	return job, nil
}

func (b *Broker) markStarted(ctx context.Context, jobID string) {
	b.client.HSet(ctx, statusKey(jobID), map[string]any{"status": string(StatusStarted)})
}

func (b *Broker) markFinished(ctx context.Context, jobID string, result any) {
	payload, _ := json.Marshal(result)
	b.client.HSet(ctx, statusKey(jobID), map[string]any{
		"status": string(StatusFinished),
		"result": string(payload),
	})
}

func (b *Broker) markFailed(ctx context.Context, jobID string, excInfo string) {
	b.client.HSet(ctx, statusKey(jobID), map[string]any{
		"status":   string(StatusFailed),
		"exc_info": excInfo,
	})
}

// Run repeatedly dequeues jobs and dispatches to the matching registered
// handler until ctx is cancelled. It installs no process-wide signal
// handlers; the caller owns that.
func (b *Broker) Run(ctx context.Context, handlers map[string]Handler) error {
	for {
		job, err := b.dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logging.Log.WithError(err).Warn("jobs: dequeue failed, retrying")
			continue
		}
		b.dispatch(ctx, job, handlers)
	}
}

func (b *Broker) dispatch(ctx context.Context, job Job, handlers map[string]Handler) {
	handler, ok := handlers[job.FunctionRef]
	if !ok {
		b.markFailed(ctx, job.JobID, fmt.Sprintf("no handler registered for %q", job.FunctionRef))
		return
	}

	b.markStarted(ctx, job.JobID)

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	jobCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := handler(jobCtx, job.Args)
	if err != nil {
		b.markFailed(ctx, job.JobID, err.Error())
		return
	}
	b.markFinished(ctx, job.JobID, result)
}
