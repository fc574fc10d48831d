package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/google/uuid"
	"github.com/nimbuscrm/crm-backend/internal/core/workflow"
)

// Queue is the durable store for delayed workflow actions
type Queue struct {
	db *gorm.DB
}

// NewQueue creates a delayed-action queue
func NewQueue(db *gorm.DB) *Queue {
	return &Queue{db: db}
}

// EnqueueDelayedAction persists a delayed action due at its timestamp.
// Implements workflow.DelayQueue.
func (q *Queue) EnqueueDelayedAction(ctx context.Context, delayed *workflow.DelayedAction) error {
	payload, err := json.Marshal(delayed)
	if err != nil {
		return fmt.Errorf("failed to serialize delayed action: %w", err)
	}

	job := &DelayedActionJob{
		TenantID:    delayed.TenantID,
		WorkflowID:  delayed.WorkflowID,
		ExecutionID: delayed.ExecutionID,
		Payload:     datatypes.JSON(payload),
		Status:      StatusPending,
		DueAt:       delayed.DueAt,
	}

	if err := q.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to enqueue delayed action: %w", err)
	}
	return nil
}

// Dequeue atomically claims the next due pending job, marking it processing
// inside a transaction so two workers cannot pick up the same entry.
// Returns nil when nothing is due.
func (q *Queue) Dequeue(ctx context.Context) (*DelayedActionJob, error) {
	var job DelayedActionJob

	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("status = ? AND due_at <= ?", StatusPending, time.Now()).
			Order("due_at ASC").
			Limit(1).
			First(&job).Error; err != nil {
			return err
		}

		now := time.Now()
		job.Status = StatusProcessing
		job.StartedAt = &now
		return tx.Save(&job).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to dequeue delayed action: %w", err)
	}

	return &job, nil
}

// MarkCompleted finalizes a processed job
func (q *Queue) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	now := time.Now()
	return q.db.WithContext(ctx).Model(&DelayedActionJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       StatusCompleted,
			"completed_at": now,
		}).Error
}

// MarkFailed records a terminal failure; there is no retry
func (q *Queue) MarkFailed(ctx context.Context, jobID uuid.UUID, cause error) error {
	now := time.Now()
	return q.db.WithContext(ctx).Model(&DelayedActionJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":       StatusFailed,
			"error":        cause.Error(),
			"completed_at": now,
		}).Error
}

// DeleteOld removes terminal jobs older than the given duration
func (q *Queue) DeleteOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result := q.db.WithContext(ctx).
		Where("status IN ? AND completed_at < ?", []JobStatus{StatusCompleted, StatusFailed}, cutoff).
		Delete(&DelayedActionJob{})

	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete old delayed actions: %w", result.Error)
	}
	return result.RowsAffected, nil
}
