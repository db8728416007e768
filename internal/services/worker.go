package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ai-evaluator/internal/repositories"
)

// Worker dispatches queued jobs to pipeline executions. Delivery is
// at-least-once: the channel hands each enqueued id to exactly one
// goroutine, and the poller re-enqueues jobs still marked queued (for
// example after a crash before pickup). The pipeline's per-step writes are
// idempotent, so re-running a job id is safe.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueJob(jobID uuid.UUID)
}

type worker struct {
	jobRepo      repositories.JobRepository
	evaluator    EvaluatorService
	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	logger       *zap.Logger
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

func NewWorker(
	jobRepo repositories.JobRepository,
	evaluator EvaluatorService,
	concurrency int,
	pollInterval time.Duration,
	logger *zap.Logger,
) Worker {
	if concurrency <= 0 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}

	return &worker{
		jobRepo:      jobRepo,
		evaluator:    evaluator,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		logger:       logger,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.logger.Info("starting worker", zap.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingJobs(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.logger.Info("stopping worker")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// EnqueueJob implements Worker.
func (w *worker) EnqueueJob(jobID uuid.UUID) {
	select {
	case w.jobQueue <- jobID:
		w.logger.Debug("job enqueued", zap.String("job_id", jobID.String()))
	case <-w.stopChan:
		w.logger.Warn("worker stopped, cannot enqueue job", zap.String("job_id", jobID.String()))
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()

	log := w.logger.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.stopChan:
			log.Debug("worker goroutine stopped")
			return
		case jobID := <-w.jobQueue:
			log.Info("processing job", zap.String("job_id", jobID.String()))
			if err := w.evaluator.EvaluateCandidate(ctx, jobID); err != nil {
				log.Error("job processing failed",
					zap.String("job_id", jobID.String()),
					zap.Error(err))
			}
		}
	}
}

// pollPendingJobs re-delivers jobs that are still queued. A job picked up
// twice converges to the same record state.
func (w *worker) pollPendingJobs(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.jobRepo.FindPending(10)
			if err != nil {
				w.logger.Warn("failed to fetch pending jobs", zap.Error(err))
				continue
			}

			if len(pending) > 0 {
				w.logger.Debug("found pending jobs", zap.Int("count", len(pending)))
			}

			for _, job := range pending {
				w.EnqueueJob(job.ID)
			}
		}
	}
}
