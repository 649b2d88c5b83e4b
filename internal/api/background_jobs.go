package api

import (
	"context"
	"errors"
	"time"

	"cv-processor/internal/apperr"
	"cv-processor/internal/logger"
	"cv-processor/internal/service"

	"go.uber.org/zap"
)

const (
	defaultQueueSize   = 100
	defaultRetryDelay  = 30 * time.Second
	defaultMaxAttempts = 3
)

// EmbeddingJob is a deferred embedding attempt for one record.
type EmbeddingJob struct {
	Target    service.Target
	ID        string
	Attempt   int
	Timestamp time.Time
}

// RecordEmbedder embeds stored records by id.
type RecordEmbedder interface {
	EmbedCV(ctx context.Context, id string) error
	EmbedJobPosting(ctx context.Context, id string) error
}

type WorkerOptions struct {
	QueueSize   int
	RetryDelay  time.Duration
	MaxAttempts int
}

// EmbeddingWorker retries failed embeddings in the background. Jobs that
// still fail after MaxAttempts are dropped and left for the backfill tool.
type EmbeddingWorker struct {
	cvs    RecordEmbedder
	jobs   RecordEmbedder
	queue  chan EmbeddingJob
	opts   WorkerOptions
	logger *zap.Logger
}

// NewEmbeddingWorker builds a worker. cvs handles CV jobs and jobs handles
// job posting jobs; a single value may serve both.
func NewEmbeddingWorker(cvs, jobs RecordEmbedder, opts WorkerOptions, log *zap.Logger) *EmbeddingWorker {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	} else if opts.RetryDelay == 0 {
		opts.RetryDelay = defaultRetryDelay
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	return &EmbeddingWorker{
		cvs:    cvs,
		jobs:   jobs,
		queue:  make(chan EmbeddingJob, opts.QueueSize),
		opts:   opts,
		logger: logger.OrNop(log),
	}
}

// Enqueue schedules a first retry. It never blocks.
func (w *EmbeddingWorker) Enqueue(target service.Target, id string) bool {
	return w.push(EmbeddingJob{Target: target, ID: id, Attempt: 1, Timestamp: time.Now()})
}

func (w *EmbeddingWorker) push(job EmbeddingJob) bool {
	select {
	case w.queue <- job:
		w.logger.Debug("[EmbeddingWorker] job queued",
			zap.String("target", string(job.Target)),
			zap.String("id", job.ID),
			zap.Int("attempt", job.Attempt),
		)
		return true
	default:
		w.logger.Warn("[EmbeddingWorker] queue full, dropping job",
			zap.String("target", string(job.Target)),
			zap.String("id", job.ID),
		)
		return false
	}
}

// Start processes jobs until ctx is cancelled.
func (w *EmbeddingWorker) Start(ctx context.Context) {
	w.logger.Info("[EmbeddingWorker] started",
		zap.Int("queue_size", w.opts.QueueSize),
		zap.Duration("retry_delay", w.opts.RetryDelay),
	)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("[EmbeddingWorker] stopped", zap.Int("pending", len(w.queue)))
			return
		case job := <-w.queue:
			if !w.wait(ctx) {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *EmbeddingWorker) wait(ctx context.Context) bool {
	if w.opts.RetryDelay == 0 {
		return true
	}
	t := time.NewTimer(w.opts.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (w *EmbeddingWorker) process(ctx context.Context, job EmbeddingJob) {
	var err error
	switch job.Target {
	case service.TargetCV:
		err = w.cvs.EmbedCV(ctx, job.ID)
	case service.TargetJobPosting:
		err = w.jobs.EmbedJobPosting(ctx, job.ID)
	default:
		w.logger.Error("[EmbeddingWorker] unknown target", zap.String("target", string(job.Target)))
		return
	}

	fields := []zap.Field{
		zap.String("target", string(job.Target)),
		zap.String("id", job.ID),
		zap.Int("attempt", job.Attempt),
	}
	switch {
	case err == nil:
		w.logger.Info("[EmbeddingWorker] embedding stored", append(fields, zap.Duration("took", time.Since(job.Timestamp)))...)
	case errors.Is(err, apperr.ErrNotFound):
		w.logger.Warn("[EmbeddingWorker] record gone, dropping job", fields...)
	case ctx.Err() != nil:
		return
	case job.Attempt >= w.opts.MaxAttempts:
		w.logger.Error("[EmbeddingWorker] giving up, record left for backfill", append(fields, zap.Error(err))...)
	default:
		w.logger.Warn("[EmbeddingWorker] attempt failed, requeueing", append(fields, zap.Error(err))...)
		job.Attempt++
		w.push(job)
	}
}
