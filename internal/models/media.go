package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MediaKind discriminates the tagged Media variant. The header fields
// live in the media table; kind-specific fields live in a JSON column
// keyed by MediaKind.
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindVideo    MediaKind = "video"
	MediaKindAudio    MediaKind = "audio"
	MediaKindDocument MediaKind = "document"
)

func (k MediaKind) Valid() bool {
	switch k {
	case MediaKindImage, MediaKindVideo, MediaKindAudio, MediaKindDocument:
		return true
	}
	return false
}

type StoreBehavior string

const (
	StoreBehaviorOff  StoreBehavior = "0"
	StoreBehaviorOn   StoreBehavior = "1"
	StoreBehaviorAuto StoreBehavior = "auto"
)

func (b StoreBehavior) Valid() bool {
	switch b {
	case StoreBehaviorOff, StoreBehaviorOn, StoreBehaviorAuto:
		return true
	}
	return false
}

type ProcessingStatus string

const (
	ProcessingStatusPending    ProcessingStatus = "pending"
	ProcessingStatusProcessing ProcessingStatus = "processing"
	ProcessingStatusReady      ProcessingStatus = "ready"
	ProcessingStatusFailed     ProcessingStatus = "failed"
)

// StorageLocation records where a media object's bytes live, keyed by
// storage_id from the media row.
type StorageLocation struct {
	ID      uuid.UUID `json:"id" db:"id"`
	Backend string    `json:"backend" db:"backend"` // "local" | "s3"
	Key     string    `json:"key" db:"key"`
	URL     string    `json:"url" db:"url"`
}

// ImageAttrs, VideoAttrs, AudioAttrs, DocumentAttrs are the kind-specific
// payloads persisted in the media.attributes JSON column.
type ImageAttrs struct {
	Width  *int `json:"width,omitempty"`
	Height *int `json:"height,omitempty"`
}

type VideoAttrs struct {
	Width            *int             `json:"width,omitempty"`
	Height           *int             `json:"height,omitempty"`
	DurationSeconds  *float64         `json:"duration_seconds,omitempty"`
	BitrateKbps      *int             `json:"bitrate_kbps,omitempty"`
	HLSPlaylistKey   *string          `json:"hls_playlist_key,omitempty"`
	ProcessingStatus ProcessingStatus `json:"processing_status,omitempty"`
}

type AudioAttrs struct {
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
	BitrateKbps     *int     `json:"bitrate_kbps,omitempty"`
	SampleRateHz    *int     `json:"sample_rate_hz,omitempty"`
	Channels        *int     `json:"channels,omitempty"`
}

type DocumentAttrs struct {
	PageCount *int `json:"page_count,omitempty"`
}

// Metadata holds the two namespaces: user endpoints may only read/write
// "user", plugin executions only "plugins.{name}".
type Metadata struct {
	User    json.RawMessage `json:"user"`
	Plugins json.RawMessage `json:"plugins"`
}

// Media is the common header plus kind-specific attributes, modeled as a
// tagged variant rather than downcast subtypes; callers use Kind plus
// the matching *Attrs accessor instead of type assertions.
type Media struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	TenantID          string           `json:"tenant_id" db:"tenant_id"`
	Kind              MediaKind        `json:"kind" db:"kind"`
	OriginalFilename  string           `json:"original_filename" db:"original_filename"`
	SanitizedFilename string           `json:"sanitized_filename" db:"sanitized_filename"`
	ContentType       string           `json:"content_type" db:"content_type"`
	SizeBytes         int64            `json:"size_bytes" db:"size_bytes"`
	StorageID         uuid.UUID        `json:"storage_id" db:"storage_id"`
	FolderID          *uuid.UUID       `json:"folder_id" db:"folder_id"`
	StoreBehavior     StoreBehavior    `json:"store_behavior" db:"store_behavior"`
	StorePermanently  bool             `json:"store_permanently" db:"store_permanently"`
	ExpiresAt         *time.Time       `json:"expires_at" db:"expires_at"`
	Metadata          Metadata         `json:"metadata" db:"metadata"`
	Attributes        json.RawMessage  `json:"attributes" db:"attributes"`
	ProcessingStatus  ProcessingStatus `json:"processing_status" db:"processing_status"`
	ProcessingError   string           `json:"error_message,omitempty" db:"error_message"`
	UploadedAt        time.Time        `json:"uploaded_at" db:"uploaded_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time       `json:"deleted_at" db:"deleted_at"`
}

// Validate checks the retention invariant: store_permanently implies no
// expiry.
func (m *Media) Validate() error {
	if m.StorePermanently && m.ExpiresAt != nil {
		return errInvariant("store_permanently media cannot have expires_at")
	}
	return nil
}

type invariantError string

func (e invariantError) Error() string { return string(e) }

func errInvariant(msg string) error { return invariantError(msg) }

// ImageAttrs unmarshals the kind-specific payload; callers must check
// Kind first.
func (m *Media) ImageAttrs() (*ImageAttrs, error) {
	var a ImageAttrs
	if len(m.Attributes) == 0 {
		return &a, nil
	}
	return &a, json.Unmarshal(m.Attributes, &a)
}

func (m *Media) VideoAttrs() (*VideoAttrs, error) {
	var a VideoAttrs
	if len(m.Attributes) == 0 {
		return &a, nil
	}
	return &a, json.Unmarshal(m.Attributes, &a)
}

func (m *Media) AudioAttrs() (*AudioAttrs, error) {
	var a AudioAttrs
	if len(m.Attributes) == 0 {
		return &a, nil
	}
	return &a, json.Unmarshal(m.Attributes, &a)
}

func (m *Media) DocumentAttrs() (*DocumentAttrs, error) {
	var a DocumentAttrs
	if len(m.Attributes) == 0 {
		return &a, nil
	}
	return &a, json.Unmarshal(m.Attributes, &a)
}

// Folder carries the hierarchy invariants: same-tenant parent, unique
// sibling names, no cycles, non-empty folders cannot be deleted.
type Folder struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	TenantID  string     `json:"tenant_id" db:"tenant_id"`
	Name      string     `json:"name" db:"name"`
	ParentID  *uuid.UUID `json:"parent_id" db:"parent_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}

// Embedding is upserted on (entity_id, entity_kind) collisions.
type Embedding struct {
	ID          uuid.UUID `json:"id" db:"id"`
	TenantID    string    `json:"tenant_id" db:"tenant_id"`
	EntityID    uuid.UUID `json:"entity_id" db:"entity_id"`
	EntityKind  string    `json:"entity_kind" db:"entity_kind"`
	Description string    `json:"description" db:"description"`
	Vector      []float32 `json:"vector" db:"vector"`
	Model       string    `json:"model" db:"model"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
