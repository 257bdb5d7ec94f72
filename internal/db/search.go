package db

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/vector"
)

// MaxMetadataFilters bounds the filter count a single search request may
// carry; 20 keeps the generated SQL's parameter count well under
// Postgres's bound-parameter ceiling.
const MaxMetadataFilters = 20

var metadataKeyChars = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,128}$`)

type FilterOp string

const (
	FilterEq       FilterOp = "eq"
	FilterMin      FilterOp = "min"
	FilterMax      FilterOp = "max"
	FilterContains FilterOp = "contains"
)

// MetadataFilter targets a single key inside the media.metadata_user
// namespace.
type MetadataFilter struct {
	Key   string
	Op    FilterOp
	Value string
}

// MetadataSearchResult pairs a matching media row with its similarity:
// 1.0 for pure metadata matches.
type MetadataSearchResult struct {
	Media      models.Media
	Similarity float64
}

func metadataWhereClauses(filters []MetadataFilter, startArg int) (clauses []string, args []any, err error) {
	if len(filters) > MaxMetadataFilters {
		return nil, nil, mdlerr.New(mdlerr.KindMetadataFilterLimitExceeded, "Too many metadata filters")
	}
	arg := startArg
	for _, f := range filters {
		// the key is interpolated into the JSON path, so it must never
		// carry quoting characters regardless of what the caller validated
		if !metadataKeyChars.MatchString(f.Key) {
			return nil, nil, mdlerr.New(mdlerr.KindInvalidMetadataKey, "invalid metadata filter key")
		}
		path := "metadata_user->>'" + f.Key + "'"
		switch f.Op {
		case FilterEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", path, arg))
			args = append(args, f.Value)
		case FilterMin:
			clauses = append(clauses, fmt.Sprintf("(%s)::numeric >= $%d", path, arg))
			args = append(args, f.Value)
		case FilterMax:
			clauses = append(clauses, fmt.Sprintf("(%s)::numeric <= $%d", path, arg))
			args = append(args, f.Value)
		case FilterContains:
			clauses = append(clauses, fmt.Sprintf("%s ILIKE $%d", path, arg))
			args = append(args, "%"+f.Value+"%")
		default:
			return nil, nil, mdlerr.InvalidInput("unknown metadata filter operator")
		}
		arg++
	}
	return clauses, args, nil
}

// SearchMediaByMetadata is the pure-metadata strategy: SQL filter on the
// user metadata namespace, scoped by tenant/entity/folder.
func (s *Store) SearchMediaByMetadata(ctx context.Context, tenantID string, filters []MetadataFilter, entityType models.MediaKind, folderID *uuid.UUID, limit, offset int) ([]MetadataSearchResult, error) {
	clauses, args, err := metadataWhereClauses(filters, 4)
	if err != nil {
		return nil, err
	}

	where := []string{"tenant_id = $1", "deleted_at IS NULL", "($2 = '' OR kind = $2)", "($3::uuid IS NULL OR folder_id = $3)"}
	where = append(where, clauses...)

	limitArg := len(args) + 4
	offsetArg := len(args) + 5
	q := `
		SELECT id, tenant_id, kind, original_filename, sanitized_filename, content_type,
			size_bytes, storage_id, folder_id, store_behavior, store_permanently,
			expires_at, metadata_user, metadata_plugins, attributes, processing_status,
			error_message, uploaded_at, updated_at, deleted_at
		FROM media
		WHERE ` + strings.Join(where, " AND ") + fmt.Sprintf(`
		ORDER BY uploaded_at DESC
		LIMIT $%d OFFSET $%d`, limitArg, offsetArg)

	allArgs := append([]any{tenantID, string(entityType), folderID}, args...)
	allArgs = append(allArgs, limit, offset)

	rows, err := s.pool.Query(ctx, q, allArgs...)
	if err != nil {
		return nil, mdlerr.Database("search media by metadata", err)
	}
	defer rows.Close()

	var out []MetadataSearchResult
	for rows.Next() {
		var m models.Media
		var errMsg *string
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.Kind, &m.OriginalFilename, &m.SanitizedFilename, &m.ContentType,
			&m.SizeBytes, &m.StorageID, &m.FolderID, &m.StoreBehavior, &m.StorePermanently,
			&m.ExpiresAt, &m.Metadata.User, &m.Metadata.Plugins, &m.Attributes, &m.ProcessingStatus,
			&errMsg, &m.UploadedAt, &m.UpdatedAt, &m.DeletedAt,
		); err != nil {
			return nil, mdlerr.Database("scan searched media row", err)
		}
		if errMsg != nil {
			m.ProcessingError = *errMsg
		}
		out = append(out, MetadataSearchResult{Media: m, Similarity: 1.0})
	}
	return out, rows.Err()
}

// SearchMediaCombined is the combined strategy: metadata filters narrow
// the candidate set, joined against embeddings for the similarity
// ordering and floor, in a single statement.
func (s *Store) SearchMediaCombined(ctx context.Context, tenantID string, filters []MetadataFilter, entityType models.MediaKind, folderID *uuid.UUID, queryVec []float32, minSimilarity float64, limit, offset int) ([]MetadataSearchResult, error) {
	clauses, args, err := metadataWhereClauses(filters, 6)
	if err != nil {
		return nil, err
	}

	where := []string{"m.tenant_id = $1", "m.deleted_at IS NULL", "($2 = '' OR m.kind = $2)", "($3::uuid IS NULL OR m.folder_id = $3)", "1 - (e.vector <=> $4) >= $5"}
	where = append(where, clauses...)

	limitArg := len(args) + 6
	offsetArg := len(args) + 7
	q := `
		SELECT m.id, m.tenant_id, m.kind, m.original_filename, m.sanitized_filename, m.content_type,
			m.size_bytes, m.storage_id, m.folder_id, m.store_behavior, m.store_permanently,
			m.expires_at, m.metadata_user, m.metadata_plugins, m.attributes, m.processing_status,
			m.error_message, m.uploaded_at, m.updated_at, m.deleted_at,
			1 - (e.vector <=> $4) AS similarity
		FROM media m
		JOIN embeddings e ON e.entity_id = m.id AND e.entity_kind = 'media' AND e.tenant_id = m.tenant_id
		WHERE ` + strings.Join(where, " AND ") + fmt.Sprintf(`
		ORDER BY e.vector <=> $4
		LIMIT $%d OFFSET $%d`, limitArg, offsetArg)

	allArgs := append([]any{tenantID, string(entityType), folderID, vector.Vector(queryVec), minSimilarity}, args...)
	allArgs = append(allArgs, limit, offset)

	rows, err := s.pool.Query(ctx, q, allArgs...)
	if err != nil {
		return nil, mdlerr.Database("combined search", err)
	}
	defer rows.Close()

	var out []MetadataSearchResult
	for rows.Next() {
		var m models.Media
		var errMsg *string
		var similarity float64
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.Kind, &m.OriginalFilename, &m.SanitizedFilename, &m.ContentType,
			&m.SizeBytes, &m.StorageID, &m.FolderID, &m.StoreBehavior, &m.StorePermanently,
			&m.ExpiresAt, &m.Metadata.User, &m.Metadata.Plugins, &m.Attributes, &m.ProcessingStatus,
			&errMsg, &m.UploadedAt, &m.UpdatedAt, &m.DeletedAt, &similarity,
		); err != nil {
			return nil, mdlerr.Database("scan combined search row", err)
		}
		if errMsg != nil {
			m.ProcessingError = *errMsg
		}
		out = append(out, MetadataSearchResult{Media: m, Similarity: similarity})
	}
	return out, rows.Err()
}
