package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

// RetryDriver periodically claims due retries and redelivers them,
// applying the escalating backoff schedule and deactivating webhooks
// whose retries are exhausted. Its ticker-loop shape matches Pool.Run
// and Reaper.Run.
type RetryDriver struct {
	Store     *db.Store
	Client    *http.Client
	Guard     *SSRFGuard
	Log       *zap.SugaredLogger
	BatchSize int

	triggerCh chan struct{}
}

func NewRetryDriver(store *db.Store, client *http.Client, guard *SSRFGuard, log *zap.SugaredLogger) *RetryDriver {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RetryDriver{
		Store:     store,
		Client:    client,
		Guard:     guard,
		Log:       log,
		BatchSize: 50,
		triggerCh: make(chan struct{}, 1),
	}
}

func (d *RetryDriver) Trigger() {
	select {
	case d.triggerCh <- struct{}{}:
	default:
	}
}

func (d *RetryDriver) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runOnce(ctx)
		case <-d.triggerCh:
			d.runOnce(ctx)
		}
	}
}

func (d *RetryDriver) runOnce(ctx context.Context) {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 50
	}
	due, err := d.Store.ClaimDueRetries(ctx, batch)
	if err != nil {
		d.Log.Warnf("webhook: claim due retries failed: %v", err)
		return
	}
	for _, item := range due {
		d.redeliver(ctx, item)
	}
}

// redeliver skips deactivated webhooks, marks the event Retrying,
// attempts delivery, and on failure either reschedules per
// models.NextRetryDelay or deactivates the webhook once retry_count+1
// reaches max_retries.
func (d *RetryDriver) redeliver(ctx context.Context, due db.DueRetry) {
	hook := due.Webhook
	if !hook.IsActive {
		if err := d.Store.DequeueWebhookRetry(ctx, due.Event.ID); err != nil {
			d.Log.Warnf("webhook: dequeue retry for deactivated webhook failed: %v", err)
		}
		return
	}

	if err := d.Store.MarkWebhookEventRetrying(ctx, due.Event.ID); err != nil {
		d.Log.Warnf("webhook: mark retrying failed: %v", err)
	}

	status, respBody, deliverErr := d.attempt(ctx, hook, due.Event.Payload)
	if deliverErr == nil && status >= 200 && status < 300 {
		if err := d.Store.MarkWebhookEventSuccess(ctx, due.Event.ID, status, respBody); err != nil {
			d.Log.Warnf("webhook: mark success failed: %v", err)
		}
		if err := d.Store.DequeueWebhookRetry(ctx, due.Event.ID); err != nil {
			d.Log.Warnf("webhook: dequeue retry failed: %v", err)
		}
		return
	}

	errMsg := respBody
	if deliverErr != nil {
		errMsg = deliverErr.Error()
	}

	nextRetryCount := due.Item.RetryCount + 1
	if nextRetryCount >= hook.MaxRetries {
		reason := fmt.Sprintf("Max retries (%d) exceeded", hook.MaxRetries)
		if err := d.Store.DeactivateWebhook(ctx, hook.ID, reason); err != nil {
			d.Log.Warnf("webhook: deactivate failed: %v", err)
		}
		terminalMsg := fmt.Sprintf("Max retries exceeded: %s", errMsg)
		if err := d.Store.MarkWebhookEventFailed(ctx, due.Event.ID, true, terminalMsg); err != nil {
			d.Log.Warnf("webhook: mark terminally failed failed: %v", err)
		}
		if err := d.Store.DequeueWebhookRetry(ctx, due.Event.ID); err != nil {
			d.Log.Warnf("webhook: dequeue retry failed: %v", err)
		}
		return
	}

	if err := d.Store.MarkWebhookEventFailed(ctx, due.Event.ID, false, errMsg); err != nil {
		d.Log.Warnf("webhook: mark failed failed: %v", err)
	}
	item := &models.WebhookRetryQueueItem{
		WebhookEventID: due.Event.ID,
		RetryCount:     nextRetryCount,
		NextRetryAt:    time.Now().Add(models.NextRetryDelay(nextRetryCount)),
		LastError:      errMsg,
	}
	if err := d.Store.EnqueueWebhookRetry(ctx, item); err != nil {
		d.Log.Warnf("webhook: enqueue next retry failed: %v", err)
	}
}

func (d *RetryDriver) attempt(ctx context.Context, hook models.Webhook, body []byte) (int, string, error) {
	if err := d.Guard.Validate(hook.URL); err != nil {
		return 0, "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if hook.Secret != "" {
		req.Header.Set("X-Webhook-Signature", "v1="+Sign(body, hook.Secret))
	}

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, string(respBody), nil
}
