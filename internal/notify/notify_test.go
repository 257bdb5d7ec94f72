package notify

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/models"
)

type captureTrigger struct {
	events []models.EventType
}

func (c *captureTrigger) TriggerEvent(ctx context.Context, tenantID string, eventType models.EventType, data models.WebhookPayloadData, initiator models.WebhookInitiator) {
	c.events = append(c.events, eventType)
}

type captureSubmitter struct {
	types []string
}

func (c *captureSubmitter) SubmitTask(ctx context.Context, t *models.Task) error {
	c.types = append(c.types, t.Type)
	return nil
}

func testMedia() *models.Media {
	return &models.Media{
		ID:       uuid.New(),
		TenantID: "acme",
		Kind:     models.MediaKindImage,
	}
}

func TestNotifyUploadedSubmitsEnabledTasks(t *testing.T) {
	events := &captureTrigger{}
	tasks := &captureSubmitter{}
	n := &UploadNotifier{Events: events, Tasks: tasks, SemanticSearchOn: true, ModerationOn: true}

	n.NotifyUploaded(context.Background(), testMedia())

	if len(events.events) != 1 || events.events[0] != models.EventFileUploaded {
		t.Fatalf("events = %v, want exactly one file.uploaded", events.events)
	}
	if len(tasks.types) != 2 {
		t.Fatalf("submitted tasks = %v, want embedding and moderation", tasks.types)
	}
	want := map[string]bool{TaskTypeGenerateEmbedding: true, TaskTypeModerateContent: true}
	for _, tt := range tasks.types {
		if !want[tt] {
			t.Fatalf("unexpected task type %q", tt)
		}
	}
}

func TestNotifyUploadedSkipsDisabledTasks(t *testing.T) {
	events := &captureTrigger{}
	tasks := &captureSubmitter{}
	n := &UploadNotifier{Events: events, Tasks: tasks}

	n.NotifyUploaded(context.Background(), testMedia())

	if len(events.events) != 1 {
		t.Fatalf("events = %v, want exactly one", events.events)
	}
	if len(tasks.types) != 0 {
		t.Fatalf("submitted tasks = %v, want none with both toggles off", tasks.types)
	}
}

func TestNotifyUploadedWebhookOnlyNeverSubmitsTasks(t *testing.T) {
	events := &captureTrigger{}
	tasks := &captureSubmitter{}
	n := &UploadNotifier{Events: events, Tasks: tasks, SemanticSearchOn: true, ModerationOn: true}

	n.NotifyUploadedWebhookOnly(context.Background(), testMedia())

	if len(events.events) != 1 || events.events[0] != models.EventFileUploaded {
		t.Fatalf("events = %v, want exactly one file.uploaded", events.events)
	}
	if len(tasks.types) != 0 {
		t.Fatalf("submitted tasks = %v, want none even with both toggles on", tasks.types)
	}
}
