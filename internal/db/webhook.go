package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func (s *Store) ActiveWebhooksFor(ctx context.Context, tenantID string, eventType models.EventType) ([]models.Webhook, error) {
	const q = `
		SELECT id, tenant_id, url, event_type, secret, is_active, max_retries,
			deactivated_at, deactivation_reason, created_at, updated_at
		FROM webhooks
		WHERE tenant_id = $1 AND event_type = $2 AND is_active = true`

	rows, err := s.pool.Query(ctx, q, tenantID, eventType)
	if err != nil {
		return nil, mdlerr.Database("list active webhooks", err)
	}
	defer rows.Close()

	var out []models.Webhook
	for rows.Next() {
		var w models.Webhook
		var reason *string
		if err := rows.Scan(&w.ID, &w.TenantID, &w.URL, &w.EventType, &w.Secret, &w.IsActive, &w.MaxRetries,
			&w.DeactivatedAt, &reason, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, mdlerr.Database("scan webhook row", err)
		}
		if reason != nil {
			w.DeactivationReason = *reason
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) GetWebhook(ctx context.Context, id uuid.UUID) (*models.Webhook, error) {
	const q = `
		SELECT id, tenant_id, url, event_type, secret, is_active, max_retries,
			deactivated_at, deactivation_reason, created_at, updated_at
		FROM webhooks WHERE id = $1`
	var w models.Webhook
	var reason *string
	err := s.pool.QueryRow(ctx, q, id).Scan(&w.ID, &w.TenantID, &w.URL, &w.EventType, &w.Secret, &w.IsActive, &w.MaxRetries,
		&w.DeactivatedAt, &reason, &w.CreatedAt, &w.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("webhook")
	}
	if err != nil {
		return nil, mdlerr.Database("get webhook", err)
	}
	if reason != nil {
		w.DeactivationReason = *reason
	}
	return &w, nil
}

func (s *Store) DeactivateWebhook(ctx context.Context, id uuid.UUID, reason string) error {
	const q = `UPDATE webhooks SET is_active = false, deactivated_at = NOW(), deactivation_reason = $2, updated_at = NOW() WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, reason)
	if err != nil {
		return mdlerr.Database("deactivate webhook", err)
	}
	return nil
}

func (s *Store) CreateWebhookEvent(ctx context.Context, e *models.WebhookEvent) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `
		INSERT INTO webhook_events (id, webhook_id, tenant_id, event_type, payload, status, retry_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`
	_, err := s.pool.Exec(ctx, q, e.ID, e.WebhookID, e.TenantID, e.EventType, e.Payload, e.Status, e.RetryCount)
	if err != nil {
		return mdlerr.Database("insert webhook event", err)
	}
	return nil
}

func (s *Store) MarkWebhookEventSuccess(ctx context.Context, id uuid.UUID, status int, body string) error {
	const q = `
		UPDATE webhook_events SET status = 'success', response_status = $2, response_body = $3,
			sent_at = NOW(), completed_at = NOW()
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, status, body)
	if err != nil {
		return mdlerr.Database("mark webhook event success", err)
	}
	return nil
}

func (s *Store) MarkWebhookEventFailed(ctx context.Context, id uuid.UUID, terminal bool, errMsg string) error {
	status := "retrying"
	var completedAt *time.Time
	if terminal {
		status = "failed"
		now := time.Now()
		completedAt = &now
	}
	const q = `
		UPDATE webhook_events SET status = $2, error_message = $3, sent_at = NOW(), completed_at = COALESCE($4, completed_at)
		WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id, status, errMsg, completedAt)
	if err != nil {
		return mdlerr.Database("mark webhook event failed", err)
	}
	return nil
}

func (s *Store) EnqueueWebhookRetry(ctx context.Context, item *models.WebhookRetryQueueItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	const q = `
		INSERT INTO webhook_retry_queue (id, webhook_event_id, retry_count, next_retry_at, last_error, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (webhook_event_id) DO UPDATE SET
			retry_count = EXCLUDED.retry_count,
			next_retry_at = EXCLUDED.next_retry_at,
			last_error = EXCLUDED.last_error,
			last_attempt_at = NOW()`
	_, err := s.pool.Exec(ctx, q, item.ID, item.WebhookEventID, item.RetryCount, item.NextRetryAt, item.LastError)
	if err != nil {
		return mdlerr.Database("enqueue webhook retry", err)
	}
	return nil
}

func (s *Store) DequeueWebhookRetry(ctx context.Context, webhookEventID uuid.UUID) error {
	const q = `DELETE FROM webhook_retry_queue WHERE webhook_event_id = $1`
	_, err := s.pool.Exec(ctx, q, webhookEventID)
	if err != nil {
		return mdlerr.Database("dequeue webhook retry", err)
	}
	return nil
}

// ClaimDueRetries uses the same FOR UPDATE SKIP LOCKED pattern as
// ClaimTask so multiple worker processes can drive the retry queue
// concurrently: claimed rows get next_retry_at pushed five minutes out, so
// another claimer skips them until redelivery reschedules or dequeues them.
type DueRetry struct {
	Item    models.WebhookRetryQueueItem
	Event   models.WebhookEvent
	Webhook models.Webhook
}

func (s *Store) ClaimDueRetries(ctx context.Context, limit int) ([]DueRetry, error) {
	const q = `
		WITH candidates AS (
			SELECT webhook_event_id FROM webhook_retry_queue
			WHERE next_retry_at <= NOW()
			ORDER BY next_retry_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $1
		), claimed AS (
			UPDATE webhook_retry_queue q
			SET next_retry_at = NOW() + INTERVAL '5 minutes'
			FROM candidates c
			WHERE q.webhook_event_id = c.webhook_event_id
			RETURNING q.*
		)
		SELECT
			rq.id, rq.webhook_event_id, rq.retry_count, rq.next_retry_at, rq.last_error, rq.last_attempt_at, rq.created_at,
			ev.id, ev.webhook_id, ev.tenant_id, ev.event_type, ev.payload, ev.status, ev.retry_count,
			ev.response_status, ev.response_body, ev.error_message, ev.sent_at, ev.completed_at, ev.created_at,
			wh.id, wh.tenant_id, wh.url, wh.event_type, wh.secret, wh.is_active, wh.max_retries,
			wh.deactivated_at, wh.deactivation_reason, wh.created_at, wh.updated_at
		FROM claimed rq
		JOIN webhook_events ev ON ev.id = rq.webhook_event_id
		JOIN webhooks wh ON wh.id = ev.webhook_id`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, mdlerr.Database("claim due webhook retries", err)
	}
	defer rows.Close()

	var out []DueRetry
	for rows.Next() {
		var d DueRetry
		var lastError, deactivationReason *string
		var responseStatus *int
		var responseBody, errMsg *string
		if err := rows.Scan(
			&d.Item.ID, &d.Item.WebhookEventID, &d.Item.RetryCount, &d.Item.NextRetryAt, &lastError, &d.Item.LastAttemptAt, &d.Item.CreatedAt,
			&d.Event.ID, &d.Event.WebhookID, &d.Event.TenantID, &d.Event.EventType, &d.Event.Payload, &d.Event.Status, &d.Event.RetryCount,
			&responseStatus, &responseBody, &errMsg, &d.Event.SentAt, &d.Event.CompletedAt, &d.Event.CreatedAt,
			&d.Webhook.ID, &d.Webhook.TenantID, &d.Webhook.URL, &d.Webhook.EventType, &d.Webhook.Secret, &d.Webhook.IsActive, &d.Webhook.MaxRetries,
			&d.Webhook.DeactivatedAt, &deactivationReason, &d.Webhook.CreatedAt, &d.Webhook.UpdatedAt,
		); err != nil {
			return nil, mdlerr.Database("scan due webhook retry", err)
		}
		if lastError != nil {
			d.Item.LastError = *lastError
		}
		if deactivationReason != nil {
			d.Webhook.DeactivationReason = *deactivationReason
		}
		d.Event.ResponseStatus = responseStatus
		if responseBody != nil {
			d.Event.ResponseBody = *responseBody
		}
		if errMsg != nil {
			d.Event.ErrorMessage = *errMsg
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) MarkWebhookEventRetrying(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE webhook_events SET status = 'retrying', retry_count = retry_count + 1 WHERE id = $1`
	_, err := s.pool.Exec(ctx, q, id)
	if err != nil {
		return mdlerr.Database("mark webhook event retrying", err)
	}
	return nil
}
