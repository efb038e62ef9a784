package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hireloop/talentsearch/internal/kv"
	"github.com/hireloop/talentsearch/pkg/utils"
)

// DeadLetterIndexKey is the set of dead-letter entry keys, for listing.
const DeadLetterIndexKey = "queue:dead:index"

const defaultBuffer = 1024

// Config bounds the broker's retry behavior.
type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	Buffer      int
}

func (c *Config) ApplyDefaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.BaseBackoff == 0 {
		c.BaseBackoff = 500 * time.Millisecond
	}
	if c.Buffer == 0 {
		c.Buffer = defaultBuffer
	}
}

type deadLetter struct {
	Job      *Job      `json:"job"`
	Error    string    `json:"error"`
	FailedAt time.Time `json:"failed_at"`
}

type queueState struct {
	jobs chan *Job
	pool *ants.Pool
}

// MemoryBroker is the in-process Broker. Each queue gets one buffered channel
// and a single-worker pool, so a queue processes jobs strictly in order.
type MemoryBroker struct {
	store  kv.Store
	logger *zap.Logger
	cfg    Config

	mu     sync.Mutex
	queues map[string]*queueState
	closed bool

	// OnDeadLetter, when set, observes permanently failed jobs.
	OnDeadLetter func(queue string, job *Job, err error)

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewMemoryBroker creates a broker that dead-letters into store.
func NewMemoryBroker(store kv.Store, cfg Config, logger *zap.Logger) *MemoryBroker {
	cfg.ApplyDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &MemoryBroker{
		store:  store,
		logger: logger,
		cfg:    cfg,
		queues: make(map[string]*queueState),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (b *MemoryBroker) state(queue string) *queueState {
	if st, ok := b.queues[queue]; ok {
		return st
	}
	st := &queueState{jobs: make(chan *Job, b.cfg.Buffer)}
	b.queues[queue] = st
	return st
}

// Enqueue appends a job. Jobs enqueued before a consumer attaches wait in
// the buffer.
func (b *MemoryBroker) Enqueue(ctx context.Context, queue string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := &Job{
		ID:         uuid.NewString(),
		Queue:      queue,
		Payload:    data,
		EnqueuedAt: time.Now(),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return "", ErrClosed
	}
	st := b.state(queue)
	b.mu.Unlock()

	select {
	case st.jobs <- job:
		return job.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Consume starts the single worker for a queue.
func (b *MemoryBroker) Consume(queue string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	st := b.state(queue)
	if st.pool != nil {
		return fmt.Errorf("queue %q already has a consumer", queue)
	}
	pool, err := ants.NewPool(1)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	st.pool = pool

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-b.ctx.Done():
				return
			case job, ok := <-st.jobs:
				if !ok {
					return
				}
				// pool size 1: Submit blocks while the previous
				// job runs, keeping the queue ordered
				j := job
				if err := pool.Submit(func() { b.process(j, h) }); err != nil {
					return
				}
			}
		}
	}()
	return nil
}

func (b *MemoryBroker) process(job *Job, h Handler) {
	var rejected error
	err := utils.RetryWithBackoff(b.ctx, b.cfg.MaxAttempts, b.cfg.BaseBackoff, func() error {
		job.Attempts++
		herr := h(b.ctx, job)
		if errors.Is(herr, ErrRejected) {
			// invalid payload: retrying cannot help
			rejected = herr
			return nil
		}
		return herr
	})
	if rejected != nil {
		b.logger.Warn("job rejected, dead-lettering",
			zap.String("queue", job.Queue),
			zap.String("job_id", job.ID),
			zap.Error(rejected))
		b.deadLetter(job, rejected)
		return
	}
	if err == nil {
		return
	}
	if b.ctx.Err() != nil {
		// shutdown interrupted the retries, not a job failure
		return
	}
	b.logger.Error("job exhausted retries, dead-lettering",
		zap.String("queue", job.Queue),
		zap.String("job_id", job.ID),
		zap.Int("attempts", job.Attempts),
		zap.Error(err))
	b.deadLetter(job, err)
}

func (b *MemoryBroker) deadLetter(job *Job, cause error) {
	entry := deadLetter{Job: job, Error: cause.Error(), FailedAt: time.Now()}
	data, err := json.Marshal(entry)
	if err != nil {
		b.logger.Error("dead-letter marshal failed", zap.Error(err))
		return
	}
	key := kv.DeadLetterKey(job.Queue, job.ID)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.store.Set(ctx, key, data, 0); err != nil {
		b.logger.Error("dead-letter write failed", zap.Error(err))
		return
	}
	if err := b.store.SAdd(ctx, DeadLetterIndexKey, key); err != nil {
		b.logger.Error("dead-letter index write failed", zap.Error(err))
	}
	if b.OnDeadLetter != nil {
		b.OnDeadLetter(job.Queue, job, cause)
	}
}

// Depth returns jobs waiting in the buffer, excluding the one in flight.
func (b *MemoryBroker) Depth(queue string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.queues[queue]
	if !ok {
		return 0
	}
	return len(st.jobs)
}

// DeadLetterKeys lists recorded dead-letter entry keys.
func (b *MemoryBroker) DeadLetterKeys(ctx context.Context) ([]string, error) {
	return b.store.SMembers(ctx, DeadLetterIndexKey)
}

// Close stops all workers. In-flight jobs finish; buffered jobs are dropped.
func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()
	b.mu.Lock()
	for _, st := range b.queues {
		if st.pool != nil {
			st.pool.Release()
		}
	}
	b.mu.Unlock()
	return nil
}
