// Package notify wires the upload pipeline's pluggable Notifier to the
// webhook engine and the task queue: a successful direct upload fires a
// file.uploaded webhook and, when enabled, submits embedding/moderation
// tasks; a completed presigned upload fires only the webhook.
package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/webhook"
)

const (
	TaskTypeGenerateEmbedding = "generate_embedding"
	TaskTypeModerateContent   = "moderate_content"
)

// EventTrigger is the webhook fan-out surface, satisfied by
// *webhook.Engine.
type EventTrigger interface {
	TriggerEvent(ctx context.Context, tenantID string, eventType models.EventType, data models.WebhookPayloadData, initiator models.WebhookInitiator)
}

// TaskSubmitter is the queue submission surface, satisfied by *db.Store.
type TaskSubmitter interface {
	SubmitTask(ctx context.Context, t *models.Task) error
}

type UploadNotifier struct {
	Store            *db.Store
	Events           EventTrigger
	Tasks            TaskSubmitter
	Log              *zap.SugaredLogger
	SemanticSearchOn bool
	ModerationOn     bool
}

func NewUploadNotifier(store *db.Store, engine *webhook.Engine, log *zap.SugaredLogger, semanticSearchOn, moderationOn bool) *UploadNotifier {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UploadNotifier{Store: store, Events: engine, Tasks: store, Log: log, SemanticSearchOn: semanticSearchOn, ModerationOn: moderationOn}
}

// NotifyUploaded implements upload.Notifier for the direct-upload path:
// webhook fan-out plus the embedding/moderation task submissions.
// Failures here must never fail the upload, so every error is logged,
// not returned.
func (n *UploadNotifier) NotifyUploaded(ctx context.Context, m *models.Media) {
	n.NotifyUploadedWebhookOnly(ctx, m)

	if n.SemanticSearchOn {
		n.submitTask(ctx, m.TenantID, TaskTypeGenerateEmbedding, map[string]any{
			"media_id": m.ID, "kind": m.Kind,
		})
	}
	if n.ModerationOn {
		n.submitTask(ctx, m.TenantID, TaskTypeModerateContent, map[string]any{
			"media_id": m.ID, "kind": m.Kind,
		})
	}
}

// NotifyUploadedWebhookOnly fires the file.uploaded webhook without
// queueing any processing tasks, the variant presigned-upload completion
// uses: embedding/moderation for those objects belongs to later
// processing, not to the completion call.
func (n *UploadNotifier) NotifyUploadedWebhookOnly(ctx context.Context, m *models.Media) {
	n.Events.TriggerEvent(ctx, m.TenantID, models.EventFileUploaded, mediaToPayload(m), models.WebhookInitiator{InitiatorType: "user"})
}

// NotifyTaskOutcome implements queue.OutcomeNotifier: a completed or
// terminally-failed task whose payload names a media_id fires
// file.processed or file.failed respectively. Tasks unrelated to a
// specific media row (sweeps) are ignored.
func (n *UploadNotifier) NotifyTaskOutcome(ctx context.Context, task *models.Task, failureReason string) {
	var payload struct {
		MediaID uuid.UUID `json:"media_id"`
	}
	if err := json.Unmarshal(task.Payload, &payload); err != nil || payload.MediaID == uuid.Nil {
		return
	}

	m, err := n.Store.GetMedia(ctx, task.TenantID, payload.MediaID)
	if err != nil {
		n.Log.Warnf("notify: load media %s for task outcome failed: %v", payload.MediaID, err)
		return
	}

	event := models.EventFileProcessed
	data := mediaToPayload(m)
	if failureReason != "" {
		event = models.EventFileFailed
		data.ErrorMessage = failureReason
	}
	n.Events.TriggerEvent(ctx, m.TenantID, event, data, models.WebhookInitiator{InitiatorType: "system"})
}

// NotifyDeleted fires file.deleted, used by the media-deletion handlers.
func (n *UploadNotifier) NotifyDeleted(ctx context.Context, m *models.Media) {
	data := mediaToPayload(m)
	now := m.DeletedAt
	data.DeletedAt = now
	n.Events.TriggerEvent(ctx, m.TenantID, models.EventFileDeleted, data, models.WebhookInitiator{InitiatorType: "user"})
}

func (n *UploadNotifier) submitTask(ctx context.Context, tenantID, taskType string, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.Log.Warnf("notify: marshal task payload failed: %v", err)
		return
	}
	task := &models.Task{
		TenantID: tenantID,
		Type:     taskType,
		Payload:  body,
		Priority: models.TaskPriorityNormal,
	}
	if err := n.Tasks.SubmitTask(ctx, task); err != nil {
		n.Log.Warnf("notify: submit %s task failed: %v", taskType, err)
	}
}

func mediaToPayload(m *models.Media) models.WebhookPayloadData {
	data := models.WebhookPayloadData{
		ID:               m.ID,
		Filename:         m.OriginalFilename,
		ContentType:      m.ContentType,
		FileSize:         m.SizeBytes,
		EntityType:       m.Kind,
		UploadedAt:       m.UploadedAt,
		ProcessingStatus: m.ProcessingStatus,
		ErrorMessage:     m.ProcessingError,
	}
	return data
}
