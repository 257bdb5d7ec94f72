package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusScheduled TaskStatus = "scheduled"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCancelled TaskStatus = "cancelled"
)

type TaskPriority int

const (
	TaskPriorityLow    TaskPriority = 0
	TaskPriorityNormal TaskPriority = 1
	TaskPriorityHigh   TaskPriority = 2
)

// DefaultTaskTimeoutSeconds bounds a handler invocation when the task
// does not set its own timeout.
const DefaultTaskTimeoutSeconds = 3600

type Task struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	TenantID       string          `json:"tenant_id" db:"tenant_id"`
	Type           string          `json:"type" db:"type"`
	Payload        json.RawMessage `json:"payload" db:"payload"`
	Status         TaskStatus      `json:"status" db:"status"`
	Priority       TaskPriority    `json:"priority" db:"priority"`
	ScheduledAt    time.Time       `json:"scheduled_at" db:"scheduled_at"`
	RetryCount     int             `json:"retry_count" db:"retry_count"`
	MaxRetries     int             `json:"max_retries" db:"max_retries"`
	TimeoutSeconds int             `json:"timeout_seconds" db:"timeout_seconds"`
	DependsOn      []uuid.UUID     `json:"depends_on" db:"depends_on"`
	Result         json.RawMessage `json:"result" db:"result"`
	FailureReason  string          `json:"failure_reason,omitempty" db:"failure_reason"`
	Unrecoverable  bool            `json:"-" db:"unrecoverable"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// CanRetry reports whether retry_count < max_retries and the error was
// not marked unrecoverable.
func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries && !t.Unrecoverable
}

// NextBackoff returns 2^retry_count seconds.
func (t *Task) NextBackoff() time.Duration {
	return backoffSeconds(t.RetryCount) * time.Second
}

func backoffSeconds(retryCount int) time.Duration {
	d := time.Duration(1)
	for i := 0; i < retryCount; i++ {
		d *= 2
	}
	return d
}

// WorkflowExecutionStatus is derived from the constituent tasks'
// statuses, never stored as input.
type WorkflowExecutionStatus string

const (
	WorkflowStatusPending   WorkflowExecutionStatus = "pending"
	WorkflowStatusRunning   WorkflowExecutionStatus = "running"
	WorkflowStatusCompleted WorkflowExecutionStatus = "completed"
	WorkflowStatusFailed    WorkflowExecutionStatus = "failed"
	WorkflowStatusCancelled WorkflowExecutionStatus = "cancelled"
)

type WorkflowExecution struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	TenantID   string      `json:"tenant_id" db:"tenant_id"`
	WorkflowID uuid.UUID   `json:"workflow_id" db:"workflow_id"`
	TaskIDs    []uuid.UUID `json:"task_ids" db:"task_ids"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// AggregateStatus derives a workflow execution's status: any Failed ->
// Failed; any Cancelled -> Cancelled; any in-flight -> Running; all
// Completed -> Completed.
func AggregateStatus(statuses []TaskStatus) WorkflowExecutionStatus {
	if len(statuses) == 0 {
		return WorkflowStatusPending
	}
	sawFailed, sawCancelled, sawInFlight, allCompleted := false, false, false, true
	for _, s := range statuses {
		switch s {
		case TaskStatusFailed:
			sawFailed = true
			allCompleted = false
		case TaskStatusCancelled:
			sawCancelled = true
			allCompleted = false
		case TaskStatusPending, TaskStatusScheduled, TaskStatusRunning:
			sawInFlight = true
			allCompleted = false
		case TaskStatusCompleted:
		default:
			allCompleted = false
		}
	}
	switch {
	case sawFailed:
		return WorkflowStatusFailed
	case sawCancelled:
		return WorkflowStatusCancelled
	case sawInFlight:
		return WorkflowStatusRunning
	case allCompleted:
		return WorkflowStatusCompleted
	default:
		return WorkflowStatusRunning
	}
}
