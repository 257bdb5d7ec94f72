package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

// SubmitTask writes a Pending (or Scheduled, if scheduled_at is in the
// future) row and issues a NOTIFY so any worker blocked on LISTEN wakes
// immediately.
func (s *Store) SubmitTask(ctx context.Context, t *models.Task) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.MaxRetries == 0 {
		t.MaxRetries = 3
	}
	if t.TimeoutSeconds == 0 {
		t.TimeoutSeconds = models.DefaultTaskTimeoutSeconds
	}
	status := models.TaskStatusPending
	if t.ScheduledAt.After(time.Now()) {
		status = models.TaskStatusScheduled
	}
	t.Status = status

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mdlerr.Database("begin submit task tx", err)
	}
	defer tx.Rollback(ctx)

	const q = `
		INSERT INTO tasks (
			id, tenant_id, type, payload, status, priority, scheduled_at,
			retry_count, max_retries, timeout_seconds, depends_on, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NOW(),NOW())`
	_, err = tx.Exec(ctx, q,
		t.ID, t.TenantID, t.Type, t.Payload, t.Status, t.Priority, t.ScheduledAt,
		t.RetryCount, t.MaxRetries, t.TimeoutSeconds, t.DependsOn,
	)
	if err != nil {
		return mdlerr.Database("insert task", err)
	}

	if _, err := tx.Exec(ctx, `SELECT pg_notify('mindia_new_task', '')`); err != nil {
		return mdlerr.Database("notify new task", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mdlerr.Database("commit submit task tx", err)
	}
	return nil
}

// ClaimTask selects the highest-priority, earliest-scheduled claimable
// task whose dependencies are all Completed, under FOR UPDATE SKIP
// LOCKED so concurrent workers never double-claim, flipping status to
// Running atomically with the select.
func (s *Store) ClaimTask(ctx context.Context) (*models.Task, error) {
	const q = `
		WITH candidate AS (
			SELECT t.id
			FROM tasks t
			WHERE (t.status = 'pending' OR (t.status = 'scheduled' AND t.scheduled_at <= NOW()))
				AND NOT EXISTS (
					SELECT 1 FROM unnest(t.depends_on) dep
					WHERE dep NOT IN (SELECT id FROM tasks WHERE status = 'completed')
				)
			ORDER BY t.priority DESC, t.scheduled_at ASC, t.created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE tasks SET status = 'running', updated_at = NOW()
		WHERE id = (SELECT id FROM candidate)
		RETURNING id, tenant_id, type, payload, status, priority, scheduled_at,
			retry_count, max_retries, timeout_seconds, depends_on, result,
			failure_reason, unrecoverable, created_at, updated_at`

	var t models.Task
	var failureReason *string
	err := s.pool.QueryRow(ctx, q).Scan(
		&t.ID, &t.TenantID, &t.Type, &t.Payload, &t.Status, &t.Priority, &t.ScheduledAt,
		&t.RetryCount, &t.MaxRetries, &t.TimeoutSeconds, &t.DependsOn, &t.Result,
		&failureReason, &t.Unrecoverable, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, mdlerr.Database("claim task", err)
	}
	if failureReason != nil {
		t.FailureReason = *failureReason
	}
	return &t, nil
}

// RevertToPending is used when dispatch cannot proceed (a dependency
// re-check fails, or waiting for a rate-limit token is cancelled); another
// worker picks the task up later.
func (s *Store) RevertToPending(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE tasks SET status = 'pending', updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return mdlerr.Database("revert task to pending", err)
	}
	return nil
}

// DependenciesCompleted re-checks depends_on just before dispatch, since
// time may have passed between the claim and the handler call.
func (s *Store) DependenciesCompleted(ctx context.Context, dependsOn []uuid.UUID) (bool, error) {
	if len(dependsOn) == 0 {
		return true, nil
	}
	const q = `
		SELECT COUNT(*) FROM tasks WHERE id = ANY($1) AND status != 'completed'`
	var incomplete int
	if err := s.pool.QueryRow(ctx, q, dependsOn).Scan(&incomplete); err != nil {
		return false, mdlerr.Database("check task dependencies", err)
	}
	return incomplete == 0, nil
}

func (s *Store) CompleteTask(ctx context.Context, id uuid.UUID, result json.RawMessage) error {
	const q = `UPDATE tasks SET status = 'completed', result = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, result)
	if err != nil {
		return mdlerr.Database("complete task", err)
	}
	return nil
}

// FailTask marks a task terminally failed, used both for unrecoverable
// handler errors and for retry exhaustion.
func (s *Store) FailTask(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE tasks SET status = 'failed', failure_reason = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, reason)
	if err != nil {
		return mdlerr.Database("fail task", err)
	}
	return nil
}

// ScheduleRetry bumps retry_count and reschedules with the exponential
// backoff already computed by the caller, leaving status=Scheduled.
func (s *Store) ScheduleRetry(ctx context.Context, id uuid.UUID, nextAt time.Time) error {
	const q = `
		UPDATE tasks SET status = 'scheduled', scheduled_at = $2, retry_count = retry_count + 1, updated_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, nextAt)
	if err != nil {
		return mdlerr.Database("schedule task retry", err)
	}
	return nil
}

// ReapStale reverts Running tasks whose last update predates the grace
// period back to Pending, covering crashed workers.
func (s *Store) ReapStale(ctx context.Context, gracePeriod time.Duration, limit int) (int, error) {
	const q = `
		UPDATE tasks SET status = 'pending', updated_at = NOW()
		WHERE id IN (
			SELECT id FROM tasks
			WHERE status = 'running' AND updated_at < $1
			LIMIT $2
		)`
	tag, err := s.pool.Exec(ctx, q, time.Now().Add(-gracePeriod), limit)
	if err != nil {
		return 0, mdlerr.Database("reap stale tasks", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) GetTask(ctx context.Context, tenantID string, id uuid.UUID) (*models.Task, error) {
	const q = `
		SELECT id, tenant_id, type, payload, status, priority, scheduled_at,
			retry_count, max_retries, timeout_seconds, depends_on, result,
			failure_reason, unrecoverable, created_at, updated_at
		FROM tasks WHERE tenant_id = $1 AND id = $2`

	var t models.Task
	var failureReason *string
	err := s.pool.QueryRow(ctx, q, tenantID, id).Scan(
		&t.ID, &t.TenantID, &t.Type, &t.Payload, &t.Status, &t.Priority, &t.ScheduledAt,
		&t.RetryCount, &t.MaxRetries, &t.TimeoutSeconds, &t.DependsOn, &t.Result,
		&failureReason, &t.Unrecoverable, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("task")
	}
	if err != nil {
		return nil, mdlerr.Database("get task", err)
	}
	if failureReason != nil {
		t.FailureReason = *failureReason
	}
	return &t, nil
}

func (s *Store) CreateWorkflowExecution(ctx context.Context, e *models.WorkflowExecution) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `
		INSERT INTO workflow_executions (id, tenant_id, workflow_id, task_ids, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`
	_, err := s.pool.Exec(ctx, q, e.ID, e.TenantID, e.WorkflowID, e.TaskIDs)
	if err != nil {
		return mdlerr.Database("insert workflow execution", err)
	}
	return nil
}

// GetWorkflowExecutionStatus derives the execution's status from its
// constituent tasks' current statuses, never from a stored column.
func (s *Store) GetWorkflowExecutionStatus(ctx context.Context, tenantID string, id uuid.UUID) (*models.WorkflowExecution, models.WorkflowExecutionStatus, error) {
	const q = `
		SELECT id, tenant_id, workflow_id, task_ids, created_at, updated_at
		FROM workflow_executions WHERE tenant_id = $1 AND id = $2`

	var e models.WorkflowExecution
	err := s.pool.QueryRow(ctx, q, tenantID, id).Scan(
		&e.ID, &e.TenantID, &e.WorkflowID, &e.TaskIDs, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, "", mdlerr.NotFound("workflow execution")
	}
	if err != nil {
		return nil, "", mdlerr.Database("get workflow execution", err)
	}

	statuses, err := s.TaskStatusesFor(ctx, e.TaskIDs)
	if err != nil {
		return nil, "", err
	}
	return &e, models.AggregateStatus(statuses), nil
}

// TaskStatusesFor feeds workflow-execution status aggregation.
func (s *Store) TaskStatusesFor(ctx context.Context, ids []uuid.UUID) ([]models.TaskStatus, error) {
	const q = `SELECT status FROM tasks WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, q, ids)
	if err != nil {
		return nil, mdlerr.Database("get task statuses", err)
	}
	defer rows.Close()

	var out []models.TaskStatus
	for rows.Next() {
		var st models.TaskStatus
		if err := rows.Scan(&st); err != nil {
			return nil, mdlerr.Database("scan task status", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
