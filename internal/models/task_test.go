package models

import (
	"testing"
	"time"
)

func TestTaskCanRetry(t *testing.T) {
	task := &Task{RetryCount: 1, MaxRetries: 3}
	if !task.CanRetry() {
		t.Fatalf("CanRetry() = false, want true (1 < 3)")
	}

	exhausted := &Task{RetryCount: 3, MaxRetries: 3}
	if exhausted.CanRetry() {
		t.Fatalf("CanRetry() = true, want false once retry_count == max_retries")
	}

	unrecoverable := &Task{RetryCount: 0, MaxRetries: 3, Unrecoverable: true}
	if unrecoverable.CanRetry() {
		t.Fatalf("CanRetry() = true, want false for an unrecoverable task")
	}
}

func TestTaskNextBackoffDoublesPerRetry(t *testing.T) {
	cases := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
	}
	for _, c := range cases {
		task := &Task{RetryCount: c.retryCount}
		if got := task.NextBackoff(); got != c.want {
			t.Errorf("NextBackoff() with retry_count=%d = %v, want %v", c.retryCount, got, c.want)
		}
	}
}

func TestAggregateStatusEmpty(t *testing.T) {
	if got := AggregateStatus(nil); got != WorkflowStatusPending {
		t.Fatalf("AggregateStatus(nil) = %v, want %v", got, WorkflowStatusPending)
	}
}

func TestAggregateStatusAnyFailedWins(t *testing.T) {
	statuses := []TaskStatus{TaskStatusCompleted, TaskStatusFailed, TaskStatusRunning}
	if got := AggregateStatus(statuses); got != WorkflowStatusFailed {
		t.Fatalf("AggregateStatus() = %v, want %v", got, WorkflowStatusFailed)
	}
}

func TestAggregateStatusAnyCancelledWithoutFailure(t *testing.T) {
	statuses := []TaskStatus{TaskStatusCompleted, TaskStatusCancelled}
	if got := AggregateStatus(statuses); got != WorkflowStatusCancelled {
		t.Fatalf("AggregateStatus() = %v, want %v", got, WorkflowStatusCancelled)
	}
}

func TestAggregateStatusInFlightWins(t *testing.T) {
	statuses := []TaskStatus{TaskStatusCompleted, TaskStatusPending}
	if got := AggregateStatus(statuses); got != WorkflowStatusRunning {
		t.Fatalf("AggregateStatus() = %v, want %v", got, WorkflowStatusRunning)
	}
}

func TestAggregateStatusAllCompleted(t *testing.T) {
	statuses := []TaskStatus{TaskStatusCompleted, TaskStatusCompleted}
	if got := AggregateStatus(statuses); got != WorkflowStatusCompleted {
		t.Fatalf("AggregateStatus() = %v, want %v", got, WorkflowStatusCompleted)
	}
}
