// Package worker embeds warm-up jobs into the embedding cache in the background.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/promptmatch/internal/adapters/mq/queue"
	"github.com/okian/promptmatch/pkg/logger"
	"github.com/okian/promptmatch/pkg/metrics"
)

const (
	poolShutdownTimeout = 30 * time.Second
)

// Job abstracts what workers read off the queue.
type Job = queue.Job

// Warmer computes and caches the embedding for one image.
// cached is true when the entry already existed.
type Warmer interface {
	WarmImage(ctx context.Context, image []byte) (cached bool, err error)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// Worker processes jobs from the queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// Stats counts processed jobs.
type Stats struct {
	Warmed  int64 `json:"warmed"`
	Cached  int64 `json:"cached"`
	Failed  int64 `json:"failed"`
	Workers int   `json:"workers"`
}

type counters struct {
	warmed atomic.Int64
	cached atomic.Int64
	failed atomic.Int64
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue      Queue
	warmer     Warmer
	name       string
	jobTimeout time.Duration
	counts     *counters
	busy       *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

var _ Worker = (*InMemoryWorker)(nil)

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, w Warmer, opts ...Option) *InMemoryWorker {
	wk := &InMemoryWorker{
		queue:    q,
		warmer:   w,
		name:     "worker",
		counts:   &counters{},
		busy:     &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(wk)
	}
	if wk.name != "worker" {
		wk.logger = wk.logger.Named(wk.name)
	}
	return wk
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Warn(ctx, "warm-up job failed",
					logger.String("job", j.ID),
					logger.String("source", j.Source),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j Job) error {
	w.busy.Add(1)
	start := time.Now()
	defer func() {
		w.busy.Add(-1)
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	cached, err := w.warmer.WarmImage(ctx, j.Image)
	if err != nil {
		w.counts.failed.Add(1)
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "warmup_error")
		return fmt.Errorf("warm %s: %w", j.Source, err)
	}
	if cached {
		w.counts.cached.Add(1)
	} else {
		w.counts.warmed.Add(1)
		w.logger.Debug(ctx, "warmed target image", logger.String("source", j.Source))
	}
	return nil
}

// Pool manages multiple workers sharing one queue and one set of counters.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	counts  *counters
	busy    *atomic.Int64

	logger logger.Logger
}

// NewPool creates a new worker pool. workerCount < 1 means one per CPU.
func NewPool(workerCount int, q Queue, w Warmer, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		counts:  &counters{},
		busy:    &atomic.Int64{},
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range pool.workers {
		wk := NewInMemoryWorker(q, w, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		wk.counts = pool.counts
		wk.busy = pool.busy
		pool.workers[i] = wk
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	metrics.UpdateWorkerIdleCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stats snapshots the pool counters and refreshes the worker gauges.
func (p *Pool) Stats() Stats {
	busy := int(p.busy.Load())
	metrics.UpdateWorkerActiveCount(busy)
	metrics.UpdateWorkerIdleCount(len(p.workers) - busy)
	return Stats{
		Warmed:  p.counts.warmed.Load(),
		Cached:  p.counts.cached.Load(),
		Failed:  p.counts.failed.Load(),
		Workers: len(p.workers),
	}
}

// Wait blocks until every worker has exited, which happens once the queue is
// closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown closes the queue and waits for the workers to finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		close(w.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
