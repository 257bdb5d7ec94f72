package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

const userAgent = "Mindia-Webhook/1.0"

// Engine drives fan-out and delivery. MaxConcurrent caps outbound HTTP
// the same way the task-worker semaphore caps handler invocations.
type Engine struct {
	Store         *db.Store
	Client        *http.Client
	Guard         *SSRFGuard
	Log           *zap.SugaredLogger
	MaxConcurrent int

	sem chan struct{}
}

func NewEngine(store *db.Store, client *http.Client, guard *SSRFGuard, log *zap.SugaredLogger, maxConcurrent int) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = 50
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		Store:         store,
		Client:        client,
		Guard:         guard,
		Log:           log,
		MaxConcurrent: maxConcurrent,
		sem:           make(chan struct{}, maxConcurrent),
	}
}

// TriggerEvent finds the active webhooks for (tenant_id, event_type),
// composes the canonical payload, inserts a WebhookEvent row, and spawns
// a bounded delivery per subscriber.
func (e *Engine) TriggerEvent(ctx context.Context, tenantID string, eventType models.EventType, data models.WebhookPayloadData, initiator models.WebhookInitiator) {
	hooks, err := e.Store.ActiveWebhooksFor(ctx, tenantID, eventType)
	if err != nil {
		e.Log.Warnf("webhook: list subscribers failed: %v", err)
		return
	}

	for _, hook := range hooks {
		hook := hook
		payload := models.WebhookPayload{
			Hook: models.WebhookPayloadHook{
				ID:        uuid.New(),
				Event:     eventType,
				Target:    hook.URL,
				Project:   tenantID,
				CreatedAt: time.Now(),
			},
			Data:      data,
			Initiator: initiator,
		}
		body, err := json.Marshal(payload)
		if err != nil {
			e.Log.Warnf("webhook: marshal payload failed: %v", err)
			continue
		}

		event := &models.WebhookEvent{
			WebhookID: hook.ID,
			TenantID:  tenantID,
			EventType: eventType,
			Payload:   body,
			Status:    models.WebhookEventStatusPending,
		}
		if err := e.Store.CreateWebhookEvent(ctx, event); err != nil {
			e.Log.Warnf("webhook: create event failed: %v", err)
			continue
		}

		select {
		case e.sem <- struct{}{}:
			go func() {
				defer func() { <-e.sem }()
				e.deliver(context.Background(), hook, event, body)
			}()
		default:
			e.Log.Warnf("webhook: delivery semaphore saturated, delivering inline for event %s", event.ID)
			e.deliver(ctx, hook, event, body)
		}
	}
}

// deliver runs a single attempt: SSRF check, sign, POST, record outcome,
// enqueue a retry on failure.
func (e *Engine) deliver(ctx context.Context, hook models.Webhook, event *models.WebhookEvent, body []byte) {
	if err := e.Guard.Validate(hook.URL); err != nil {
		e.recordFailure(ctx, event, err.Error())
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		e.recordFailure(ctx, event, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", "v1="+Sign(body, hook.Secret))
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		e.recordFailure(ctx, event, err.Error())
		return
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err := e.Store.MarkWebhookEventSuccess(ctx, event.ID, resp.StatusCode, string(respBody)); err != nil {
			e.Log.Warnf("webhook: mark success failed: %v", err)
		}
		if err := e.Store.DequeueWebhookRetry(ctx, event.ID); err != nil {
			e.Log.Warnf("webhook: dequeue retry failed: %v", err)
		}
		return
	}

	e.recordFailure(ctx, event, fmt.Sprintf("non-2xx response: %d", resp.StatusCode))
}

func (e *Engine) recordFailure(ctx context.Context, event *models.WebhookEvent, errMsg string) {
	if err := e.Store.MarkWebhookEventFailed(ctx, event.ID, false, errMsg); err != nil {
		e.Log.Warnf("webhook: mark failed failed: %v", err)
	}
	item := &models.WebhookRetryQueueItem{
		WebhookEventID: event.ID,
		RetryCount:     0,
		NextRetryAt:    time.Now().Add(models.NextRetryDelay(0)),
		LastError:      errMsg,
	}
	if err := e.Store.EnqueueWebhookRetry(ctx, item); err != nil {
		e.Log.Warnf("webhook: enqueue retry failed: %v", err)
	}
}
