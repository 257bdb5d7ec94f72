package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func (s *Store) CreateFolder(ctx context.Context, f *models.Folder) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.ParentID != nil {
		if _, err := s.GetFolder(ctx, f.TenantID, *f.ParentID); err != nil {
			return err
		}
	}

	exists, err := s.folderNameTaken(ctx, f.TenantID, f.ParentID, f.Name, uuid.Nil)
	if err != nil {
		return err
	}
	if exists {
		return mdlerr.InvalidInput("a folder with this name already exists among its siblings")
	}

	const q = `
		INSERT INTO folders (id, tenant_id, name, parent_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())`
	_, err = s.pool.Exec(ctx, q, f.ID, f.TenantID, f.Name, f.ParentID)
	if err != nil {
		return mdlerr.Database("create folder", err)
	}
	return nil
}

func (s *Store) GetFolder(ctx context.Context, tenantID string, id uuid.UUID) (*models.Folder, error) {
	const q = `
		SELECT id, tenant_id, name, parent_id, created_at, updated_at
		FROM folders WHERE tenant_id = $1 AND id = $2`
	var f models.Folder
	err := s.pool.QueryRow(ctx, q, tenantID, id).Scan(&f.ID, &f.TenantID, &f.Name, &f.ParentID, &f.CreatedAt, &f.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("folder")
	}
	if err != nil {
		return nil, mdlerr.Database("get folder", err)
	}
	return &f, nil
}

func (s *Store) folderNameTaken(ctx context.Context, tenantID string, parentID *uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	const q = `
		SELECT EXISTS(
			SELECT 1 FROM folders
			WHERE tenant_id = $1 AND name = $2 AND id != $5
				AND ($3::uuid IS NULL AND parent_id IS NULL OR parent_id = $3)
		)`
	var exists bool
	err := s.pool.QueryRow(ctx, q, tenantID, name, parentID, parentID, excludeID).Scan(&exists)
	if err != nil {
		return false, mdlerr.Database("check folder name uniqueness", err)
	}
	return exists, nil
}

// isDescendant walks the parent chain of candidateDescendant looking for
// folderID, used to reject moves that would create a cycle.
func (s *Store) isDescendant(ctx context.Context, tenantID string, folderID, candidateDescendant uuid.UUID) (bool, error) {
	current := candidateDescendant
	for {
		f, err := s.GetFolder(ctx, tenantID, current)
		if err != nil {
			if mdlerr.Is(err, mdlerr.KindNotFound) {
				return false, nil
			}
			return false, err
		}
		if f.ParentID == nil {
			return false, nil
		}
		if *f.ParentID == folderID {
			return true, nil
		}
		current = *f.ParentID
	}
}

// MoveFolder re-parents a folder, enforcing the same-tenant-parent,
// unique-sibling-name, and no-cycle invariants.
func (s *Store) MoveFolder(ctx context.Context, tenantID string, id uuid.UUID, newParentID *uuid.UUID) error {
	if newParentID != nil {
		parent, err := s.GetFolder(ctx, tenantID, *newParentID)
		if err != nil {
			return err
		}
		if parent.TenantID != tenantID {
			return mdlerr.NotFound("folder")
		}
		if *newParentID == id {
			return mdlerr.InvalidInput("a folder cannot be its own parent")
		}
		cycle, err := s.isDescendant(ctx, tenantID, id, *newParentID)
		if err != nil {
			return err
		}
		if cycle {
			return mdlerr.InvalidInput("cannot move a folder under its own descendant")
		}
	}

	f, err := s.GetFolder(ctx, tenantID, id)
	if err != nil {
		return err
	}
	taken, err := s.folderNameTaken(ctx, tenantID, newParentID, f.Name, id)
	if err != nil {
		return err
	}
	if taken {
		return mdlerr.InvalidInput("a folder with this name already exists among the new siblings")
	}

	const q = `UPDATE folders SET parent_id = $3, updated_at = NOW() WHERE tenant_id = $1 AND id = $2`
	tag, err := s.pool.Exec(ctx, q, tenantID, id, newParentID)
	if err != nil {
		return mdlerr.Database("move folder", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("folder")
	}
	return nil
}

// DeleteFolder refuses to delete folders that still hold media or
// subfolders.
func (s *Store) DeleteFolder(ctx context.Context, tenantID string, id uuid.UUID) error {
	var mediaCount, childCount int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media WHERE tenant_id = $1 AND folder_id = $2 AND deleted_at IS NULL`, tenantID, id).Scan(&mediaCount)
	if err != nil {
		return mdlerr.Database("count folder media", err)
	}
	err = s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM folders WHERE tenant_id = $1 AND parent_id = $2`, tenantID, id).Scan(&childCount)
	if err != nil {
		return mdlerr.Database("count subfolders", err)
	}
	if mediaCount > 0 || childCount > 0 {
		return mdlerr.InvalidInput("folder is not empty")
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM folders WHERE tenant_id = $1 AND id = $2`, tenantID, id)
	if err != nil {
		return mdlerr.Database("delete folder", err)
	}
	if tag.RowsAffected() == 0 {
		return mdlerr.NotFound("folder")
	}
	return nil
}

func (s *Store) ListFolders(ctx context.Context, tenantID string, parentID *uuid.UUID) ([]models.Folder, error) {
	const q = `
		SELECT id, tenant_id, name, parent_id, created_at, updated_at
		FROM folders
		WHERE tenant_id = $1 AND (($2::uuid IS NULL AND parent_id IS NULL) OR parent_id = $2)
		ORDER BY name`
	rows, err := s.pool.Query(ctx, q, tenantID, parentID)
	if err != nil {
		return nil, mdlerr.Database("list folders", err)
	}
	defer rows.Close()

	var out []models.Folder
	for rows.Next() {
		var f models.Folder
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Name, &f.ParentID, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, mdlerr.Database("scan folder row", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
