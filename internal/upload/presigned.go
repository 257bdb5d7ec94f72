package upload

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/storage"
)

// PresignedPhase1Result is the wire shape phase 1 returns:
// {upload_id, presigned_url, s3_key, expires_at}.
type PresignedPhase1Result struct {
	UploadID     uuid.UUID
	PresignedURL string
	S3Key        string
	ExpiresAt    time.Time
}

const presignedUploadExpiry = 15 * time.Minute

// PresignedPhase1 requires an S3 backend, validates kind and store
// behavior, mints ids, requests a presigned PUT, and persists the
// session row.
func (s *Service) PresignedPhase1(ctx context.Context, tenantID string, kind models.MediaKind, filename, contentType string, declaredSize int64, storeBehavior models.StoreBehavior) (*PresignedPhase1Result, error) {
	if s.Backend.Type() != storage.BackendS3 {
		return nil, mdlerr.InvalidInput("presigned uploads require an S3-compatible storage backend")
	}
	if !kind.Valid() {
		return nil, mdlerr.InvalidInput("unknown media kind")
	}
	if !storeBehavior.Valid() {
		return nil, mdlerr.InvalidInput("invalid store behavior")
	}

	uploadID := uuid.New()
	fileID := uuid.New()
	ext := extOf(filename)
	key := "uploads/" + fileID.String() + "." + ext

	expiry := s.Config.PresignExpiry
	if expiry == 0 {
		expiry = presignedUploadExpiry
	}
	url, err := s.Backend.PresignPut(ctx, key, contentType, expiry)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(expiry)
	sess := &models.PresignedUploadSession{
		ID:            uploadID,
		TenantID:      tenantID,
		StorageKey:    key,
		Filename:      filename,
		ContentType:   contentType,
		DeclaredSize:  declaredSize,
		Kind:          kind,
		StoreBehavior: storeBehavior,
		ExpiresAt:     expiresAt,
	}
	if err := s.Store.CreatePresignedSession(ctx, sess); err != nil {
		return nil, err
	}

	return &PresignedPhase1Result{
		UploadID:     uploadID,
		PresignedURL: url,
		S3Key:        key,
		ExpiresAt:    expiresAt,
	}, nil
}

// PresignedPhase2 looks the session up, checks pending/unexpired,
// verifies the object landed, resolves store behavior, creates the media
// row, marks the session completed, and fans out the same webhook as
// direct upload. Embedding/moderation tasks are deliberately not queued
// here; later processing owns them.
func (s *Service) PresignedPhase2(ctx context.Context, tenantID string, uploadID uuid.UUID) (*models.Media, error) {
	sess, err := s.Store.GetPresignedSession(ctx, tenantID, uploadID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.PresignedSessionPending {
		return nil, mdlerr.InvalidInput("presigned session is not pending")
	}
	if sess.IsExpired(time.Now()) {
		return nil, mdlerr.InvalidInput("presigned session has expired")
	}

	exists, err := s.Backend.Exists(ctx, sess.StorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, mdlerr.InvalidInput("uploaded object not found at the presigned key")
	}

	size, err := s.Backend.ContentLength(ctx, sess.StorageKey)
	if err != nil {
		return nil, err
	}

	storePermanently, expiresAt := resolveStoreBehavior(sess.StoreBehavior)

	fileID := parseFileIDFromKey(sess.StorageKey)

	m := &models.Media{
		ID:                fileID,
		TenantID:          tenantID,
		Kind:              sess.Kind,
		OriginalFilename:  sess.Filename,
		SanitizedFilename: sanitizeFilename(sess.Filename, fileID, extOf(sess.Filename)),
		ContentType:       sess.ContentType,
		SizeBytes:         size,
		StoreBehavior:     sess.StoreBehavior,
		StorePermanently:  storePermanently,
		ExpiresAt:         expiresAt,
		ProcessingStatus:  models.ProcessingStatusPending,
	}

	loc := &models.StorageLocation{Backend: string(s.Backend.Type()), Key: sess.StorageKey}
	if pu, ok := s.Backend.(publicURLer); ok {
		loc.URL = pu.PublicURL(sess.StorageKey)
	}

	if err := s.Store.CreateMediaWithStorage(ctx, m, loc); err != nil {
		return nil, err
	}

	if err := s.Store.CompletePresignedSession(ctx, tenantID, uploadID, m.ID); err != nil {
		return nil, err
	}

	if s.Notifier != nil {
		s.Notifier.NotifyUploadedWebhookOnly(ctx, m)
	}

	return m, nil
}

// parseFileIDFromKey recovers the UUID embedded in the storage key,
// falling back to a fresh one when the key does not carry it.
func parseFileIDFromKey(key string) uuid.UUID {
	base := key
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		base = key[idx+1:]
	}
	if dot := strings.LastIndex(base, "."); dot >= 0 {
		base = base[:dot]
	}
	if id, err := uuid.Parse(base); err == nil {
		return id
	}
	return uuid.New()
}
