// Package ingest owns the bounded processing queue that sits between file
// discovery and the pipeline. The queue is keyed by recording id: a
// recording has at most one job in the system at a time, whether waiting or
// running, and a waiting or running job can be cancelled by key.
package ingest

import (
	"context"
	"sync"

	"go.uber.org/zap"

	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// Job identifies one unit of pipeline work.
type Job struct {
	RecordingID uint
	Filepath    string
	Filename    string
}

// Processor runs the pipeline for a single job. The context is cancelled
// when the job is cancelled by key or the queue shuts down.
type Processor interface {
	Process(ctx context.Context, job Job) error
}

// ErrAlreadyQueued is returned when a recording already has a waiting or
// running job.
var ErrAlreadyQueued = apperrors.New(apperrors.ErrCodeJobConflict, "recording already queued or processing")

// ErrQueueClosed is returned by Enqueue after Stop.
var ErrQueueClosed = apperrors.New(apperrors.ErrCodeJobConflict, "ingest queue is shut down")

// Queue is a bounded, keyed work queue with a fixed worker pool.
type Queue struct {
	jobs      chan Job
	processor Processor
	workers   int
	logger    *zap.Logger

	mu      sync.Mutex
	waiting map[uint]bool
	running map[uint]context.CancelFunc
	closed  bool

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewQueue creates a queue with the given capacity and worker count.
// Workers below one are clamped to one.
func NewQueue(capacity, workers int, processor Processor, logger *zap.Logger) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue{
		jobs:      make(chan Job, capacity),
		processor: processor,
		workers:   workers,
		logger:    logger,
		waiting:   make(map[uint]bool),
		running:   make(map[uint]context.CancelFunc),
	}
}

// Start launches the worker pool. Workers stop when Stop is called.
func (q *Queue) Start(ctx context.Context) {
	q.baseCtx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.logger.Info("ingest queue started",
		zap.Int("workers", q.workers),
		zap.Int("capacity", cap(q.jobs)))
}

// Stop cancels all running jobs, rejects further enqueues and waits for the
// workers to exit. Jobs still waiting in the channel are discarded.
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	q.logger.Info("ingest queue stopped")
}

// Enqueue adds a job, blocking while the queue is at capacity. It fails
// fast when the recording already has a waiting or running job, and returns
// the context error if ctx is done before a slot opens.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if q.waiting[job.RecordingID] || q.running[job.RecordingID] != nil {
		q.mu.Unlock()
		return ErrAlreadyQueued
	}
	q.waiting[job.RecordingID] = true
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		q.logger.Debug("job enqueued",
			zap.Uint("recording_id", job.RecordingID),
			zap.String("filename", job.Filename))
		return nil
	case <-ctx.Done():
		q.mu.Lock()
		delete(q.waiting, job.RecordingID)
		q.mu.Unlock()
		return ctx.Err()
	}
}

// Cancel removes the recording's job: a waiting job is dropped before it
// runs, a running job has its context cancelled. It reports whether a job
// was found.
func (q *Queue) Cancel(recordingID uint) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.waiting[recordingID] {
		delete(q.waiting, recordingID)
		q.logger.Info("waiting job cancelled", zap.Uint("recording_id", recordingID))
		return true
	}
	if cancel := q.running[recordingID]; cancel != nil {
		cancel()
		q.logger.Info("running job cancelled", zap.Uint("recording_id", recordingID))
		return true
	}
	return false
}

// IsBusy reports whether the recording has a waiting or running job.
func (q *Queue) IsBusy(recordingID uint) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.waiting[recordingID] || q.running[recordingID] != nil
}

// Depth returns the number of jobs waiting in the channel.
func (q *Queue) Depth() int {
	return len(q.jobs)
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	log := q.logger.With(zap.Int("worker", id))

	for {
		select {
		case <-q.baseCtx.Done():
			return
		case job := <-q.jobs:
			q.run(log, job)
		}
	}
}

func (q *Queue) run(log *zap.Logger, job Job) {
	q.mu.Lock()
	if !q.waiting[job.RecordingID] {
		// cancelled while waiting
		q.mu.Unlock()
		return
	}
	delete(q.waiting, job.RecordingID)
	jobCtx, cancel := context.WithCancel(q.baseCtx)
	q.running[job.RecordingID] = cancel
	q.mu.Unlock()

	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.running, job.RecordingID)
		q.mu.Unlock()
	}()

	log.Info("job started",
		zap.Uint("recording_id", job.RecordingID),
		zap.String("filename", job.Filename))

	if err := q.processor.Process(jobCtx, job); err != nil {
		log.Warn("job finished with error",
			zap.Uint("recording_id", job.RecordingID),
			zap.Error(err))
		return
	}
	log.Info("job finished", zap.Uint("recording_id", job.RecordingID))
}
