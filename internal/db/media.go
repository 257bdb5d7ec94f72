package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

// CreateMediaWithStorage inserts the storage_locations row and the media
// row in one transaction so neither can exist without the other. The
// caller is still responsible for deleting the uploaded bytes if this
// call itself fails (see internal/upload).
func (s *Store) CreateMediaWithStorage(ctx context.Context, m *models.Media, loc *models.StorageLocation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mdlerr.Database("begin create media tx", err)
	}
	defer tx.Rollback(ctx)

	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO storage_locations (id, backend, key, url)
		VALUES ($1, $2, $3, $4)`,
		loc.ID, loc.Backend, loc.Key, loc.URL,
	)
	if err != nil {
		return mdlerr.Database("insert storage location", err)
	}

	m.StorageID = loc.ID
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO media (
			id, tenant_id, kind, original_filename, sanitized_filename, content_type,
			size_bytes, storage_id, folder_id, store_behavior, store_permanently,
			expires_at, metadata_user, metadata_plugins, attributes, processing_status,
			uploaded_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NOW(), NOW()
		)`,
		m.ID, m.TenantID, m.Kind, m.OriginalFilename, m.SanitizedFilename, m.ContentType,
		m.SizeBytes, m.StorageID, m.FolderID, m.StoreBehavior, m.StorePermanently,
		m.ExpiresAt, m.Metadata.User, m.Metadata.Plugins, m.Attributes, m.ProcessingStatus,
	)
	if err != nil {
		return mdlerr.Database("insert media", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mdlerr.Database("commit create media tx", err)
	}
	return nil
}

// GetMedia enforces tenant isolation at the query itself: a row
// belonging to another tenant simply does not match the WHERE clause, so
// the caller cannot distinguish "wrong tenant" from "does not exist";
// both return NotFound.
func (s *Store) GetMedia(ctx context.Context, tenantID string, id uuid.UUID) (*models.Media, error) {
	const q = `
		SELECT id, tenant_id, kind, original_filename, sanitized_filename, content_type,
			size_bytes, storage_id, folder_id, store_behavior, store_permanently,
			expires_at, metadata_user, metadata_plugins, attributes, processing_status,
			error_message, uploaded_at, updated_at, deleted_at
		FROM media
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`

	var m models.Media
	var errMsg *string
	err := s.pool.QueryRow(ctx, q, tenantID, id).Scan(
		&m.ID, &m.TenantID, &m.Kind, &m.OriginalFilename, &m.SanitizedFilename, &m.ContentType,
		&m.SizeBytes, &m.StorageID, &m.FolderID, &m.StoreBehavior, &m.StorePermanently,
		&m.ExpiresAt, &m.Metadata.User, &m.Metadata.Plugins, &m.Attributes, &m.ProcessingStatus,
		&errMsg, &m.UploadedAt, &m.UpdatedAt, &m.DeletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("media")
	}
	if err != nil {
		return nil, mdlerr.Database("get media", err)
	}
	if errMsg != nil {
		m.ProcessingError = *errMsg
	}
	return &m, nil
}

func (s *Store) GetStorageLocation(ctx context.Context, id uuid.UUID) (*models.StorageLocation, error) {
	const q = `SELECT id, backend, key, url FROM storage_locations WHERE id = $1`
	var loc models.StorageLocation
	err := s.pool.QueryRow(ctx, q, id).Scan(&loc.ID, &loc.Backend, &loc.Key, &loc.URL)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("storage location")
	}
	if err != nil {
		return nil, mdlerr.Database("get storage location", err)
	}
	return &loc, nil
}

// ListMedia scopes by tenant in the WHERE clause; a foreign tenant's
// list call never includes another tenant's rows.
func (s *Store) ListMedia(ctx context.Context, tenantID string, kind models.MediaKind, folderID *uuid.UUID, limit, offset int) ([]models.Media, error) {
	const q = `
		SELECT id, tenant_id, kind, original_filename, sanitized_filename, content_type,
			size_bytes, storage_id, folder_id, store_behavior, store_permanently,
			expires_at, metadata_user, metadata_plugins, attributes, processing_status,
			error_message, uploaded_at, updated_at, deleted_at
		FROM media
		WHERE tenant_id = $1 AND kind = $2 AND deleted_at IS NULL
			AND ($3::uuid IS NULL OR folder_id = $3)
		ORDER BY uploaded_at DESC
		LIMIT $4 OFFSET $5`

	rows, err := s.pool.Query(ctx, q, tenantID, kind, folderID, limit, offset)
	if err != nil {
		return nil, mdlerr.Database("list media", err)
	}
	defer rows.Close()

	var out []models.Media
	for rows.Next() {
		var m models.Media
		var errMsg *string
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.Kind, &m.OriginalFilename, &m.SanitizedFilename, &m.ContentType,
			&m.SizeBytes, &m.StorageID, &m.FolderID, &m.StoreBehavior, &m.StorePermanently,
			&m.ExpiresAt, &m.Metadata.User, &m.Metadata.Plugins, &m.Attributes, &m.ProcessingStatus,
			&errMsg, &m.UploadedAt, &m.UpdatedAt, &m.DeletedAt,
		); err != nil {
			return nil, mdlerr.Database("scan media row", err)
		}
		if errMsg != nil {
			m.ProcessingError = *errMsg
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SoftDeleteMedia implements delete-by-tenant-scope; a foreign tenant's
// delete call matches zero rows and the repository reports NotFound,
// exactly like GetMedia.
func (s *Store) SoftDeleteMedia(ctx context.Context, tenantID string, id uuid.UUID) error {
	const q = `UPDATE media SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, tenantID, id)
	if err != nil {
		return mdlerr.Database("delete media", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("media")
	}
	return nil
}

// BatchDeleteMedia executes an already-validated batch;
// upload.BatchDelete enforces the per-request id ceiling before reaching
// here.
func (s *Store) BatchDeleteMedia(ctx context.Context, tenantID string, ids []uuid.UUID) (int, error) {
	const q = `UPDATE media SET deleted_at = NOW(), updated_at = NOW()
		WHERE tenant_id = $1 AND id = ANY($2) AND deleted_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, tenantID, ids)
	if err != nil {
		return 0, mdlerr.Database("batch delete media", err)
	}
	return int(tag.RowsAffected()), nil
}

// MergeUserMetadata patches the user namespace while leaving the plugins
// namespace untouched in the same statement.
func (s *Store) MergeUserMetadata(ctx context.Context, tenantID string, id uuid.UUID, patch json.RawMessage) error {
	const q = `
		UPDATE media SET
			metadata_user = COALESCE(metadata_user, '{}'::jsonb) || $3::jsonb,
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, tenantID, id, patch)
	if err != nil {
		return mdlerr.Database("merge user metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("media")
	}
	return nil
}

// MergePluginMetadata is the plugins-namespace counterpart; user
// endpoints must never call this.
func (s *Store) MergePluginMetadata(ctx context.Context, tenantID string, id uuid.UUID, pluginName string, patch json.RawMessage) error {
	const q = `
		UPDATE media SET
			metadata_plugins = jsonb_set(
				COALESCE(metadata_plugins, '{}'::jsonb), $3, COALESCE(metadata_plugins->$4, '{}'::jsonb) || $5::jsonb
			),
			updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`
	path := []string{pluginName}
	tag, err := s.pool.Exec(ctx, q, tenantID, id, path, pluginName, patch)
	if err != nil {
		return mdlerr.Database("merge plugin metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("media")
	}
	return nil
}

// UpdateProcessingStatus is used by task handlers (e.g. moderation,
// embedding) to report outcome back onto the media row.
func (s *Store) UpdateProcessingStatus(ctx context.Context, tenantID string, id uuid.UUID, status models.ProcessingStatus, errMsg string) error {
	const q = `UPDATE media SET processing_status = $3, error_message = NULLIF($4, ''), updated_at = NOW()
		WHERE tenant_id = $1 AND id = $2`
	tag, err := s.pool.Exec(ctx, q, tenantID, id, status, errMsg)
	if err != nil {
		return mdlerr.Database("update processing status", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("media")
	}
	return nil
}

// ExpireMedia reclaims media whose expires_at has passed, invoked from the
// media_expiry_sweep queue task (queue.MediaExpirySweepHandler).
func (s *Store) ExpireMedia(ctx context.Context, limit int) ([]uuid.UUID, error) {
	const q = `
		UPDATE media SET deleted_at = NOW(), updated_at = NOW()
		WHERE expires_at IS NOT NULL AND expires_at <= NOW() AND deleted_at IS NULL
		AND id IN (SELECT id FROM media WHERE expires_at <= NOW() AND deleted_at IS NULL LIMIT $1)
		RETURNING id`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, mdlerr.Database("expire media", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, mdlerr.Database("scan expired media id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
