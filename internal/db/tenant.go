package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
)

func (s *Store) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	const q = `SELECT id, name, status, created_at FROM tenants WHERE id = $1`
	var t models.Tenant
	err := s.pool.QueryRow(ctx, q, id).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("tenant")
	}
	if err != nil {
		return nil, mdlerr.Database("get tenant", err)
	}
	return &t, nil
}

// ListActiveTenantIDs returns every tenant whose status is active, used by
// the scheduler to fan the recurring sweep tasks out across tenants.
func (s *Store) ListActiveTenantIDs(ctx context.Context) ([]string, error) {
	const q = `SELECT id FROM tenants WHERE status = $1 ORDER BY id`
	rows, err := s.pool.Query(ctx, q, models.TenantStatusActive)
	if err != nil {
		return nil, mdlerr.Database("list active tenants", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, mdlerr.Database("scan tenant id", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	const q = `INSERT INTO tenants (id, name, status, created_at) VALUES ($1, $2, $3, NOW())`
	_, err := s.pool.Exec(ctx, q, t.ID, t.Name, t.Status)
	if err != nil {
		return mdlerr.Database("create tenant", err)
	}
	return nil
}

// LookupAPIKey resolves a bearer key to its owning tenant. Token parsing
// lives in the HTTP layer; the repository only serves the hash lookup.
func (s *Store) LookupAPIKey(ctx context.Context, keyHash string) (*models.APIKey, error) {
	const q = `SELECT id, tenant_id, key_hash, created_at, revoked_at FROM api_keys WHERE key_hash = $1`
	var k models.APIKey
	err := s.pool.QueryRow(ctx, q, keyHash).Scan(&k.ID, &k.TenantID, &k.KeyHash, &k.CreatedAt, &k.RevokedAt)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("api key")
	}
	if err != nil {
		return nil, mdlerr.Database("lookup api key", err)
	}
	return &k, nil
}
