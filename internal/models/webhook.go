package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type WebhookEventStatus string

const (
	WebhookEventStatusPending  WebhookEventStatus = "pending"
	WebhookEventStatusSuccess  WebhookEventStatus = "success"
	WebhookEventStatusFailed   WebhookEventStatus = "failed"
	WebhookEventStatusRetrying WebhookEventStatus = "retrying"
)

// EventType enumerates the fan-out events the core emits over a media
// row's lifecycle.
type EventType string

const (
	EventFileUploaded  EventType = "file.uploaded"
	EventFileDeleted   EventType = "file.deleted"
	EventFileProcessed EventType = "file.processed"
	EventFileFailed    EventType = "file.failed"
)

type Webhook struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	TenantID           string     `json:"tenant_id" db:"tenant_id"`
	URL                string     `json:"url" db:"url"`
	EventType          EventType  `json:"event_type" db:"event_type"`
	Secret             string     `json:"-" db:"secret"`
	IsActive           bool       `json:"is_active" db:"is_active"`
	MaxRetries         int        `json:"max_retries" db:"max_retries"`
	DeactivatedAt      *time.Time `json:"deactivated_at" db:"deactivated_at"`
	DeactivationReason string     `json:"deactivation_reason,omitempty" db:"deactivation_reason"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

type WebhookEvent struct {
	ID             uuid.UUID          `json:"id" db:"id"`
	WebhookID      uuid.UUID          `json:"webhook_id" db:"webhook_id"`
	TenantID       string             `json:"tenant_id" db:"tenant_id"`
	EventType      EventType          `json:"event_type" db:"event_type"`
	Payload        json.RawMessage    `json:"payload" db:"payload"`
	Status         WebhookEventStatus `json:"status" db:"status"`
	RetryCount     int                `json:"retry_count" db:"retry_count"`
	ResponseStatus *int               `json:"response_status" db:"response_status"`
	ResponseBody   string             `json:"response_body,omitempty" db:"response_body"`
	ErrorMessage   string             `json:"error_message,omitempty" db:"error_message"`
	SentAt         *time.Time         `json:"sent_at" db:"sent_at"`
	CompletedAt    *time.Time         `json:"completed_at" db:"completed_at"`
	CreatedAt      time.Time          `json:"created_at" db:"created_at"`
}

type WebhookRetryQueueItem struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	WebhookEventID uuid.UUID  `json:"webhook_event_id" db:"webhook_event_id"`
	RetryCount     int        `json:"retry_count" db:"retry_count"`
	NextRetryAt    time.Time  `json:"next_retry_at" db:"next_retry_at"`
	LastError      string     `json:"last_error,omitempty" db:"last_error"`
	LastAttemptAt  *time.Time `json:"last_attempt_at" db:"last_attempt_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// WebhookPayload is the canonical wire shape: {hook, data, initiator}.
type WebhookPayload struct {
	Hook      WebhookPayloadHook `json:"hook"`
	Data      WebhookPayloadData `json:"data"`
	Initiator WebhookInitiator   `json:"initiator"`
}

type WebhookPayloadHook struct {
	ID        uuid.UUID `json:"id"`
	Event     EventType `json:"event"`
	Target    string    `json:"target"`
	Project   string    `json:"project"`
	CreatedAt time.Time `json:"created_at"`
}

type WebhookPayloadData struct {
	ID               uuid.UUID        `json:"id"`
	Filename         string           `json:"filename"`
	URL              string           `json:"url"`
	ContentType      string           `json:"content_type"`
	FileSize         int64            `json:"file_size"`
	EntityType       MediaKind        `json:"entity_type"`
	UploadedAt       time.Time        `json:"uploaded_at"`
	DeletedAt        *time.Time       `json:"deleted_at,omitempty"`
	StoredAt         *time.Time       `json:"stored_at,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status"`
	ErrorMessage     string           `json:"error_message,omitempty"`
}

type WebhookInitiator struct {
	InitiatorType string `json:"initiator_type"`
	ID            string `json:"id"`
}

// RetrySchedule escalates 1m, 5m, 10m, 30m, 60m, then 1h repeated,
// indexed by retry_count prior to the attempt.
var RetrySchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	10 * time.Minute,
	30 * time.Minute,
	60 * time.Minute,
}

func NextRetryDelay(retryCount int) time.Duration {
	if retryCount < len(RetrySchedule) {
		return RetrySchedule[retryCount]
	}
	return time.Hour
}
