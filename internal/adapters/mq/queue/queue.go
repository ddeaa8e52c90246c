// Package queue holds warm-up jobs between the directory scanner and the workers.
//
// The queue is a bounded channel. Producers choose between a non-blocking
// Enqueue and a blocking Put.
package queue

import (
	"context"
	"sync"

	"github.com/okian/promptmatch/internal/domain/model"
	"github.com/okian/promptmatch/pkg/metrics"
)

const defaultQueueCapacity = 256

// Job is the payload type flowing through the queue.
type Job = model.WarmupJob

// Queue provides bounded enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job without blocking.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Put blocks until the job is queued, the queue closes or ctx is done.
	Put(ctx context.Context, j Job) error

	// Dequeue returns a channel that will receive jobs as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs are still delivered.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int

	mu     sync.RWMutex
	closed bool
	// done is closed alongside jobs so blocked Puts wake up.
	done     chan struct{}
	doneOnce sync.Once
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.jobs <- j:
		q.enqueued()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Put blocks for space. The read lock is held while waiting so Close cannot
// close the channel under a pending send; Close signals done first.
func (q *InMemoryQueue) Put(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		q.enqueued()
		return nil
	case <-q.done:
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

func (q *InMemoryQueue) enqueued() {
	metrics.RecordQueueEnqueue()
	q.report(len(q.jobs))
}

func (q *InMemoryQueue) report(size int) {
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns a channel that will receive jobs as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for j := range q.jobs {
			select {
			case out <- j:
				metrics.RecordQueueDequeue()
				q.report(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	q.report(size)
	return size
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	// Wake blocked Puts before taking the write lock they are holding off.
	q.doneOnce.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
