package db

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/vector"
)

// UpsertEmbedding resolves (entity_id, entity_kind) collisions with
// ON CONFLICT ... DO UPDATE, replacing the stored vector in place.
func (s *Store) UpsertEmbedding(ctx context.Context, e *models.Embedding) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	const q = `
		INSERT INTO embeddings (id, tenant_id, entity_id, entity_kind, description, vector, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (entity_id, entity_kind) DO UPDATE SET
			description = EXCLUDED.description,
			vector = EXCLUDED.vector,
			model = EXCLUDED.model,
			updated_at = NOW()
		RETURNING id`

	vec := vector.Vector(e.Vector)
	return s.pool.QueryRow(ctx, q,
		e.ID, e.TenantID, e.EntityID, e.EntityKind, e.Description, vec, e.Model,
	).Scan(&e.ID)
}

func (s *Store) GetEmbedding(ctx context.Context, tenantID string, entityID uuid.UUID, entityKind string) (*models.Embedding, error) {
	const q = `
		SELECT id, tenant_id, entity_id, entity_kind, description, vector, model, created_at, updated_at
		FROM embeddings WHERE tenant_id = $1 AND entity_id = $2 AND entity_kind = $3`

	var e models.Embedding
	var vec vector.Vector
	err := s.pool.QueryRow(ctx, q, tenantID, entityID, entityKind).Scan(
		&e.ID, &e.TenantID, &e.EntityID, &e.EntityKind, &e.Description, &vec, &e.Model, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, mdlerr.NotFound("embedding")
	}
	if err != nil {
		return nil, mdlerr.Database("get embedding", err)
	}
	e.Vector = []float32(vec)
	return &e, nil
}

// SimilaritySearch orders by cosine distance, applying the similarity
// floor as a WHERE clause so offset/limit pagination remains correct
// (filtering post-hoc would make page 2 skip the wrong rows).
type SimilarityResult struct {
	EntityID   uuid.UUID
	EntityKind string
	Similarity float64
}

func (s *Store) SimilaritySearch(ctx context.Context, tenantID string, query vector.Vector, entityKind string, minSimilarity float64, limit, offset int) ([]SimilarityResult, error) {
	const q = `
		SELECT entity_id, entity_kind, 1 - (vector <=> $2) AS similarity
		FROM embeddings
		WHERE tenant_id = $1
			AND ($5 = '' OR entity_kind = $5)
			AND 1 - (vector <=> $2) >= $3
		ORDER BY vector <=> $2
		LIMIT $4 OFFSET $6`

	rows, err := s.pool.Query(ctx, q, tenantID, query, minSimilarity, limit, entityKind, offset)
	if err != nil {
		return nil, mdlerr.Database("similarity search", err)
	}
	defer rows.Close()

	var out []SimilarityResult
	for rows.Next() {
		var r SimilarityResult
		if err := rows.Scan(&r.EntityID, &r.EntityKind, &r.Similarity); err != nil {
			return nil, mdlerr.Database("scan similarity row", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
