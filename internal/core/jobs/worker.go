package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
)

// Worker polls the delayed-action queue and resumes the engine's dispatcher
// for each entry that has come due
type Worker struct {
	queue  *Queue
	engine *workflow.Engine
	config WorkerConfig
	wg     sync.WaitGroup
}

// NewWorker creates a delayed-action worker
func NewWorker(queue *Queue, engine *workflow.Engine, config WorkerConfig) *Worker {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultWorkerConfig().PollInterval
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultWorkerConfig().Timeout
	}
	if config.Retention <= 0 {
		config.Retention = DefaultWorkerConfig().Retention
	}
	return &Worker{queue: queue, engine: engine, config: config}
}

// Start launches the polling loop; it stops when ctx is cancelled
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
	log.Info().
		Dur("poll_interval", w.config.PollInterval).
		Msg("delayed-action worker started")
}

// Wait blocks until the polling loop has exited
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	cleanup := time.NewTicker(time.Hour)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("delayed-action worker stopping")
			return
		case <-cleanup.C:
			deleted, err := w.queue.DeleteOld(ctx, w.config.Retention)
			if err != nil {
				log.Error().Err(err).Msg("delayed-action cleanup failed")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Msg("purged old delayed actions")
			}
		case <-ticker.C:
			// Drain everything currently due before sleeping again
			for {
				processed, err := w.processNext(ctx)
				if err != nil {
					log.Error().Err(err).Msg("delayed-action worker error")
					break
				}
				if !processed {
					break
				}
			}
		}
	}
}

// processNext claims and runs one due entry; returns false when none are due
func (w *Worker) processNext(ctx context.Context) (bool, error) {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	var delayed workflow.DelayedAction
	if err := json.Unmarshal(job.Payload, &delayed); err != nil {
		markErr := w.queue.MarkFailed(ctx, job.ID, fmt.Errorf("invalid payload: %w", err))
		if markErr != nil {
			log.Error().Err(markErr).Str("job_id", job.ID.String()).Msg("failed to mark job failed")
		}
		return true, nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, w.config.Timeout)
	defer cancel()

	if err := w.engine.RunDelayedAction(jobCtx, &delayed); err != nil {
		log.Warn().Err(err).
			Str("job_id", job.ID.String()).
			Str("execution_id", job.ExecutionID.String()).
			Msg("delayed action failed")
		if markErr := w.queue.MarkFailed(ctx, job.ID, err); markErr != nil {
			log.Error().Err(markErr).Str("job_id", job.ID.String()).Msg("failed to mark job failed")
		}
		return true, nil
	}

	if err := w.queue.MarkCompleted(ctx, job.ID); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to mark job completed")
	}
	return true, nil
}
