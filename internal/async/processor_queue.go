package async

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/road-estimator/internal/common"
	"github.com/joseph-ayodele/road-estimator/internal/pipeline"
)

// DocumentProcessor is satisfied by *pipeline.Processor.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, docID uuid.UUID) (pipeline.Outcome, error)
}

// ResultHandler receives every finished job. It runs on the worker goroutine.
type ResultHandler func(job Job, out pipeline.Outcome, err error)

type ProcessorQueue struct {
	proc     DocumentProcessor
	logger   *slog.Logger
	workers  int
	timeout  time.Duration
	base     context.Context
	onResult ResultHandler

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// WithBaseContext parents every job context on ctx, so cancelling it stops
// in-flight work.
func WithBaseContext(ctx context.Context) Option {
	return func(q *ProcessorQueue) {
		if ctx != nil {
			q.base = ctx
		}
	}
}
func WithResultHandler(h ResultHandler) Option {
	return func(q *ProcessorQueue) {
		q.onResult = h
	}
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 10 * time.Minute,
		base:    context.Background(),
		ch:      make(chan Job, 256),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job Job) {
	var (
		out pipeline.Outcome
		err error
	)
	if job.TraceID == "" {
		job.TraceID = uuid.NewString()
	}
	if err = q.base.Err(); err == nil {
		ctx, cancel := context.WithTimeout(common.WithTraceID(q.base, job.TraceID), q.timeout)
		out, err = q.process(ctx, job)
		cancel()
	}
	if out.DocumentID == uuid.Nil {
		out.DocumentID = job.DocumentID
	}

	if err != nil {
		q.logger.Error("processing failed", "worker_id", workerID, "document_id", job.DocumentID, "trace_id", job.TraceID, "error", err)
	} else {
		q.logger.Info("processed document", "worker_id", workerID, "document_id", job.DocumentID, "status", out.Status, "lines", out.Lines)
	}
	if q.onResult != nil {
		q.onResult(job, out, err)
	}
}

// process keeps a panicking document from taking its worker down.
func (q *ProcessorQueue) process(ctx context.Context, job Job) (out pipeline.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("processor panic", "document_id", job.DocumentID, "panic", r)
			err = &panicError{value: r}
		}
	}()
	return q.proc.ProcessDocument(ctx, job.DocumentID)
}

func (q *ProcessorQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "document_id", job.DocumentID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		q.mu.Unlock()
		q.logger.Debug("queued document for processing", "document_id", job.DocumentID)
		return nil
	default:
	}
	q.logger.Warn("queue full, applying backpressure", "document_id", job.DocumentID)
	// hold the lock so Shutdown cannot close the channel under the send
	defer q.mu.Unlock()
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for queued ones to finish or for
// ctx to end.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic while processing document: %v", e.value)
}
