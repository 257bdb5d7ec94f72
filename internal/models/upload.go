package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type PresignedSessionStatus string

const (
	PresignedSessionPending   PresignedSessionStatus = "pending"
	PresignedSessionCompleted PresignedSessionStatus = "completed"
	PresignedSessionExpired   PresignedSessionStatus = "expired"
)

// PresignedUploadSession tracks the two-phase upload flow from URL
// issuance to completion.
type PresignedUploadSession struct {
	ID             uuid.UUID              `json:"upload_id" db:"id"`
	TenantID       string                 `json:"-" db:"tenant_id"`
	StorageKey     string                 `json:"s3_key" db:"storage_key"`
	Filename       string                 `json:"filename" db:"filename"`
	ContentType    string                 `json:"content_type" db:"content_type"`
	DeclaredSize   int64                  `json:"file_size" db:"declared_size"`
	Kind           MediaKind              `json:"media_type" db:"kind"`
	StoreBehavior  StoreBehavior          `json:"store" db:"store_behavior"`
	ExpiresAt      time.Time              `json:"expires_at" db:"expires_at"`
	Status         PresignedSessionStatus `json:"-" db:"status"`
	ChunkSizeBytes *int64                 `json:"chunk_size_bytes,omitempty" db:"chunk_size_bytes"`
	ChunkCount     *int                   `json:"chunk_count,omitempty" db:"chunk_count"`
	ClientMetadata json.RawMessage        `json:"-" db:"client_metadata"`
	MediaID        *uuid.UUID             `json:"-" db:"media_id"`
	CreatedAt      time.Time              `json:"-" db:"created_at"`
}

func (s *PresignedUploadSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
