// Package queue provides the at-least-once job broker behind the ingestion
// pipeline. Queues are consumed by single workers so jobs for the same
// candidate never interleave; failed jobs retry with exponential backoff and
// land in a dead-letter sink when exhausted.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrClosed is returned when enqueueing after Close.
var ErrClosed = errors.New("queue: broker closed")

// ErrRejected marks a job as permanently invalid. A handler error wrapping it
// skips the retry budget and dead-letters the job immediately; retrying a
// malformed payload can never succeed.
var ErrRejected = errors.New("queue: job rejected")

// Job is one unit of work. Payload stays opaque to the broker; handlers
// decode and validate it.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// Decode unmarshals the payload into v.
func (j *Job) Decode(v any) error {
	return json.Unmarshal(j.Payload, v)
}

// Handler processes one job. A nil return acknowledges the job; an error
// triggers a retry, and a dead-letter after the attempt budget. An error
// wrapping ErrRejected dead-letters without retrying.
type Handler func(ctx context.Context, job *Job) error

// Broker is the job transport protocol.
type Broker interface {
	// Enqueue serializes payload and appends it to the named queue,
	// returning the job id.
	Enqueue(ctx context.Context, queue string, payload any) (string, error)

	// Consume registers the handler for a queue and starts its worker.
	// One handler per queue.
	Consume(queue string, h Handler) error

	// Depth returns the number of jobs waiting in a queue.
	Depth(queue string) int

	Close() error
}
