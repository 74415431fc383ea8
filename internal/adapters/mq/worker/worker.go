// Package worker runs analysis jobs from the queue on a fixed pool of
// goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/logger"
	"github.com/okian/gisc/pkg/metrics"
)

// Job abstracts what workers read off the queue.
type Job = model.Job

// Processor evaluates one job. A returned error is fatal to the run.
type Processor interface {
	Process(ctx context.Context, j Job) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, j Job) error

// Process calls f.
func (f ProcessorFunc) Process(ctx context.Context, j Job) error { return f(ctx, j) }

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Job
}

// InMemoryWorker pulls jobs until the queue drains or ctx is done.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string
	logger    logger.Logger
	active    *atomic.Int64
	onError   func(error)
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, processor Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		name:      "worker",
		active:    new(atomic.Int64),
		onError:   func(error) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run processes jobs until the queue is closed and drained or ctx is done.
func (w *InMemoryWorker) Run(ctx context.Context) {
	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, j); err != nil {
				w.logger.Error(ctx, "job failed",
					logger.String("actor", j.Actor),
					logger.String("repo", j.Watch.Repo),
					logger.Error(err),
				)
				w.onError(err)
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j Job) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, j); err != nil {
		metrics.RecordErrorByComponent("worker", "process")
		return fmt.Errorf("%s: job %s/%s: %w", w.name, j.Actor, j.Watch.ID, err)
	}
	return nil
}

// Pool manages a fixed set of workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  logger.Logger

	errOnce sync.Once
	err     error
}

// NewPool creates a pool of workerCount workers; < 1 means NumCPU.
func NewPool(workerCount int, queue Queue, processor Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{workers: make([]*InMemoryWorker, workerCount)}

	active := new(atomic.Int64)
	for i := range p.workers {
		wopts := append([]Option{
			WithName("worker-" + strconv.Itoa(i)),
			withShared(active, p.fail),
		}, opts...)
		p.workers[i] = NewInMemoryWorker(queue, processor, wopts...)
	}
	p.logger = p.workers[0].logger
	metrics.UpdateWorkerCount(workerCount)
	return p
}

func (p *Pool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		if p.cancel != nil {
			p.cancel()
		}
	})
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. The first processor error cancels the
// context handed to the remaining workers.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *InMemoryWorker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has exited and returns the first
// processor error, if any.
func (p *Pool) Wait() error {
	p.wg.Wait()
	if p.cancel != nil {
		p.cancel()
	}
	return p.err
}

// Shutdown cancels the workers and waits for them, bounded by ctx.
func (p *Pool) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}
