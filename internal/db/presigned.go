package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func (s *Store) CreatePresignedSession(ctx context.Context, sess *models.PresignedUploadSession) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	sess.Status = models.PresignedSessionPending
	const q = `
		INSERT INTO presigned_upload_sessions (
			id, tenant_id, storage_key, filename, content_type, declared_size, kind,
			store_behavior, expires_at, status, chunk_size_bytes, chunk_count,
			client_metadata, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())`
	_, err := s.pool.Exec(ctx, q,
		sess.ID, sess.TenantID, sess.StorageKey, sess.Filename, sess.ContentType, sess.DeclaredSize, sess.Kind,
		sess.StoreBehavior, sess.ExpiresAt, sess.Status, sess.ChunkSizeBytes, sess.ChunkCount, sess.ClientMetadata,
	)
	if err != nil {
		return mdlerr.Database("create presigned session", err)
	}
	return nil
}

// GetPresignedSession looks up by (tenant_id, upload_id).
func (s *Store) GetPresignedSession(ctx context.Context, tenantID string, uploadID uuid.UUID) (*models.PresignedUploadSession, error) {
	const q = `
		SELECT id, tenant_id, storage_key, filename, content_type, declared_size, kind,
			store_behavior, expires_at, status, chunk_size_bytes, chunk_count,
			client_metadata, media_id, created_at
		FROM presigned_upload_sessions WHERE tenant_id = $1 AND id = $2`

	var sess models.PresignedUploadSession
	err := s.pool.QueryRow(ctx, q, tenantID, uploadID).Scan(
		&sess.ID, &sess.TenantID, &sess.StorageKey, &sess.Filename, &sess.ContentType, &sess.DeclaredSize, &sess.Kind,
		&sess.StoreBehavior, &sess.ExpiresAt, &sess.Status, &sess.ChunkSizeBytes, &sess.ChunkCount,
		&sess.ClientMetadata, &sess.MediaID, &sess.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("presigned upload session")
	}
	if err != nil {
		return nil, mdlerr.Database("get presigned session", err)
	}
	return &sess, nil
}

func (s *Store) CompletePresignedSession(ctx context.Context, tenantID string, uploadID, mediaID uuid.UUID) error {
	const q = `
		UPDATE presigned_upload_sessions SET status = 'completed', media_id = $3
		WHERE tenant_id = $1 AND id = $2 AND status = 'pending'`
	tag, err := s.pool.Exec(ctx, q, tenantID, uploadID, mediaID)
	if err != nil {
		return mdlerr.Database("complete presigned session", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.InvalidInput("presigned session is not pending")
	}
	return nil
}

// ExpirePresignedSessions sweeps sessions whose expiry has passed and
// are still pending, driven by the recurring sweep task.
func (s *Store) ExpirePresignedSessions(ctx context.Context, limit int) (int, error) {
	const q = `
		UPDATE presigned_upload_sessions SET status = 'expired'
		WHERE id IN (
			SELECT id FROM presigned_upload_sessions
			WHERE status = 'pending' AND expires_at <= NOW()
			LIMIT $1
		)`
	tag, err := s.pool.Exec(ctx, q, limit)
	if err != nil {
		return 0, mdlerr.Database("expire presigned sessions", err)
	}
	return int(tag.RowsAffected()), nil
}
