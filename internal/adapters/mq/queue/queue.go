// Package queue buffers analysis jobs between the producer and the worker
// pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/gisc/internal/domain/model"
	"github.com/okian/gisc/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Job is the payload type flowing through the queue.
type Job = model.Job

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// EnqueueWait blocks until the job is accepted, ctx is done or the
	// queue is closed.
	EnqueueWait(ctx context.Context, j Job) error

	// Dequeue returns a channel that yields jobs until the queue is closed
	// and drained, or ctx is done.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs are still delivered.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs      chan Job
	done      chan struct{}
	capacity  int
	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ Queue = (*InMemoryQueue)(nil)

// NewInMemoryQueue creates a new in-memory queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	q.done = make(chan struct{})

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) EnqueueWait(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.reject("closed")
		return ErrClosed
	}
	select {
	case q.jobs <- j:
		q.accepted()
		return nil
	case <-q.done:
		q.reject("closed")
		return ErrClosed
	case <-ctx.Done():
		q.reject("context_cancelled")
		return ctx.Err()
	}
}

func (q *InMemoryQueue) accepted() {
	metrics.RecordQueueEnqueue()
	metrics.UpdateQueueSize(len(q.jobs))
}

func (q *InMemoryQueue) reject(reason string) {
	metrics.RecordQueueEnqueueError()
	metrics.RecordErrorByComponent("queue", reason)
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case j, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- j:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.jobs))
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Close wakes blocked producers before closing the channel so no send can
// race the close.
func (q *InMemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
		q.mu.Lock()
		close(q.jobs)
		q.closed = true
		q.mu.Unlock()
	})
	return nil
}
