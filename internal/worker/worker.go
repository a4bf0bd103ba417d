// Package worker runs subtitle jobs on a bounded pool of goroutines pulling
// from an in-process queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ErrQueueFull is returned by Queue.Enqueue when the queue has no free slot
// and the caller did not want to block.
var ErrQueueFull = errors.New("worker: queue full")

// ErrClosed is returned by Queue.Enqueue once the queue has been closed.
var ErrClosed = errors.New("worker: queue closed")

// Job is one unit of work: a subtitle-generation request identified by a
// job ID and the path to its source media, already durably recorded by the
// caller (e.g. in Postgres via internal/store) before it is enqueued.
type Job struct {
	ID         string
	SourcePath string
}

// Enqueuer accepts jobs for background processing. It is kept deliberately
// thin so a broker-backed implementation (e.g. a Redis list or a message
// queue) could replace the in-process Queue without the HTTP layer or the
// pipeline orchestrator needing to change.
type Enqueuer interface {
	Enqueue(ctx context.Context, job Job) error
}

// Runner executes one job end to end. It is expected to be
// [internal/pipeline.Pipeline.Run] adapted to discard the successful
// output, since the worker only needs pass/fail — results are read back
// through the job store.
type Runner func(ctx context.Context, jobID, sourcePath string) error

// Queue is a bounded, in-process, FIFO job queue with a fixed pool of
// worker goroutines. It implements [Enqueuer].
//
// All exported methods are safe for concurrent use.
type Queue struct {
	jobs   chan Job
	run    Runner
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}

	wg sync.WaitGroup
}

// Option configures a Queue during construction.
type Option func(*Queue)

// WithLogger sets the logger used for per-job start/failure messages.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		if l != nil {
			q.logger = l
		}
	}
}

// New creates a Queue with the given capacity (how many jobs may sit
// buffered, waiting for a free worker) and starts concurrency worker
// goroutines, each running jobs by calling run. The workers begin
// processing as soon as New returns.
func New(capacity, concurrency int, run Runner, opts ...Option) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if concurrency < 1 {
		concurrency = 1
	}
	q := &Queue{
		jobs:   make(chan Job, capacity),
		run:    run,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, o := range opts {
		o(q)
	}
	q.start(concurrency)
	return q
}

// start launches the worker goroutines. Unexported: called once from New.
func (q *Queue) start(concurrency int) {
	for i := 0; i < concurrency; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// worker pulls jobs from the channel until it is closed and drained.
func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for job := range q.jobs {
		q.logger.Info("worker: starting job", "worker", id, "job_id", job.ID)
		if err := q.run(context.Background(), job.ID, job.SourcePath); err != nil {
			q.logger.Warn("worker: job failed", "worker", id, "job_id", job.ID, "err", err)
			continue
		}
		q.logger.Info("worker: job completed", "worker", id, "job_id", job.ID)
	}
}

// Enqueue submits job for processing. It blocks until ctx is cancelled, a
// worker frees a slot, or the queue is closed.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	case <-q.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryEnqueue submits job without blocking. It returns [ErrQueueFull] if no
// worker slot is immediately available.
func (q *Queue) TryEnqueue(job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting new jobs and waits for in-flight and already-queued
// jobs to finish. Close is idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	close(q.jobs)
	q.mu.Unlock()

	q.wg.Wait()
	return nil
}

// RunBatch runs jobs concurrently, bounded by concurrency, and returns once
// every job has completed or ctx is cancelled. Unlike Queue, RunBatch does
// not keep workers alive afterward — it is meant for one-shot fan-out (e.g.
// a CLI "reprocess these jobs" command) rather than a long-lived server
// queue. Per-job errors are collected and joined; a context cancellation
// aborts remaining jobs and is returned immediately.
func RunBatch(ctx context.Context, jobs []Job, concurrency int, run Runner) error {
	if concurrency < 1 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var errs []error

	for _, job := range jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := run(gctx, job.ID, job.SourcePath); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("job %q: %w", job.ID, err))
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return errors.Join(errs...)
}
