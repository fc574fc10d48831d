package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// JobStatus is the delayed-action queue state machine. There is no retrying
// state: a failed action is recorded and left for the audit trail, retries
// are not part of the engine's contract.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// DelayedActionJob is one durable queue row for an action deferred by its
// delay_minutes. Payload is the JSON-encoded workflow.DelayedAction snapshot.
type DelayedActionJob struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	TenantID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"tenant_id"`
	WorkflowID  uuid.UUID      `gorm:"type:uuid;not null;index" json:"workflow_id"`
	ExecutionID uuid.UUID      `gorm:"type:uuid;not null;index" json:"execution_id"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Status      JobStatus      `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	DueAt       time.Time      `gorm:"not null;index" json:"due_at"`
	Error       string         `gorm:"type:text" json:"error,omitempty"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// TableName specifies the table name for DelayedActionJob
func (DelayedActionJob) TableName() string {
	return "crm_delayed_actions"
}

// WorkerConfig tunes the polling worker
type WorkerConfig struct {
	PollInterval time.Duration // how often to poll for due actions
	Timeout      time.Duration // per-action execution budget
	Retention    time.Duration // how long terminal jobs are kept
}

// DefaultWorkerConfig returns the default worker configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		PollInterval: 5 * time.Second,
		Timeout:      time.Minute,
		Retention:    7 * 24 * time.Hour,
	}
}
