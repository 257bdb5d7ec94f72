// Package search implements combined metadata-filter and
// vector-similarity search, delegating SQL execution to internal/db and
// query-embedding generation to a pluggable Embedder collaborator.
package search

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
	"github.com/jeremybastin1207/mindia-go/internal/models"
	"github.com/jeremybastin1207/mindia-go/internal/vector"
)

type Mode string

const (
	ModeMetadata Mode = "metadata"
	ModeSemantic Mode = "semantic"
	ModeBoth     Mode = "both"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeMetadata, ModeSemantic, ModeBoth:
		return true
	}
	return false
}

// Embedder generates a query embedding normalized to the database vector
// dimension; the model client behind it is supplied by the application.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Request is the search input contract.
type Request struct {
	Query         string
	EntityType    models.MediaKind
	FolderID      *uuid.UUID
	Limit         int
	Offset        int
	MinSimilarity float64
	Mode          Mode
	Filters       []db.MetadataFilter
}

// Result is a single search hit; similarity is always 1.0 for pure
// metadata matches.
type Result struct {
	Media      models.Media
	Similarity float64
}

type Service struct {
	Store    *db.Store
	Embedder Embedder
}

// validate applies the per-mode validation rules: metadata mode needs a
// filter, semantic and combined modes need a query or a filter.
func (r *Request) validate() error {
	if !r.Mode.Valid() {
		return mdlerr.InvalidInput("unknown search_mode")
	}
	if r.Limit <= 0 || r.Limit > 100 {
		return mdlerr.InvalidInput("limit must be in (0, 100]")
	}
	if r.Offset < 0 {
		return mdlerr.InvalidInput("offset must be >= 0")
	}
	if r.MinSimilarity < 0 || r.MinSimilarity > 1 {
		return mdlerr.InvalidInput("min_similarity must be in [0, 1]")
	}
	switch r.Mode {
	case ModeMetadata:
		if len(r.Filters) == 0 {
			return mdlerr.InvalidInput("metadata search requires at least one metadata filter")
		}
	case ModeSemantic:
		if r.Query == "" && len(r.Filters) == 0 {
			return mdlerr.InvalidInput("semantic search requires q or metadata filters")
		}
	case ModeBoth:
		if r.Query == "" && len(r.Filters) == 0 {
			return mdlerr.InvalidInput("combined search requires q or metadata filters")
		}
	}
	return nil
}

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-]{1,128}$`)

// ParseMetadataFilters decodes the four query-parameter shapes:
// metadata.KEY (exact), metadata_min.KEY (range lower), metadata_max.KEY
// (range upper), metadata_contains.KEY (substring).
func ParseMetadataFilters(values url.Values) ([]db.MetadataFilter, error) {
	shapes := []struct {
		prefix string
		op     db.FilterOp
	}{
		{"metadata_min.", db.FilterMin},
		{"metadata_max.", db.FilterMax},
		{"metadata_contains.", db.FilterContains},
		{"metadata.", db.FilterEq},
	}

	var filters []db.MetadataFilter
	for param, vals := range values {
		if len(vals) == 0 {
			continue
		}
		for _, shape := range shapes {
			if !strings.HasPrefix(param, shape.prefix) {
				continue
			}
			rawKey := strings.TrimPrefix(param, shape.prefix)
			key, err := url.QueryUnescape(rawKey)
			if err != nil || key == "" {
				return nil, mdlerr.InvalidInput("invalid metadata filter key")
			}
			if !metadataKeyPattern.MatchString(key) {
				return nil, mdlerr.InvalidInput("invalid metadata filter key")
			}
			filters = append(filters, db.MetadataFilter{Key: key, Op: shape.op, Value: vals[0]})
			break
		}
	}
	return filters, nil
}

// Run executes the request against one of the three strategies, mapping
// repository error substrings to dedicated kinds.
func (s *Service) Run(ctx context.Context, tenantID string, req Request) ([]Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	switch req.Mode {
	case ModeMetadata:
		rows, err := s.Store.SearchMediaByMetadata(ctx, tenantID, req.Filters, req.EntityType, req.FolderID, req.Limit, req.Offset)
		if err != nil {
			return nil, mapSearchError(err)
		}
		return toResults(rows), nil

	case ModeSemantic:
		vec, err := s.embed(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		rows, err := s.Store.SimilaritySearch(ctx, tenantID, vector.Vector(vec), "media", req.MinSimilarity, req.Limit, req.Offset)
		if err != nil {
			return nil, mapSearchError(err)
		}
		out := make([]Result, 0, len(rows))
		for _, r := range rows {
			m, err := s.Store.GetMedia(ctx, tenantID, r.EntityID)
			if err != nil {
				continue
			}
			out = append(out, Result{Media: *m, Similarity: r.Similarity})
		}
		return out, nil

	case ModeBoth:
		vec, err := s.embed(ctx, req.Query)
		if err != nil {
			return nil, err
		}
		rows, err := s.Store.SearchMediaCombined(ctx, tenantID, req.Filters, req.EntityType, req.FolderID, vec, req.MinSimilarity, req.Limit, req.Offset)
		if err != nil {
			return nil, mapSearchError(err)
		}
		return toResults(rows), nil
	}

	return nil, mdlerr.InvalidInput("unknown search_mode")
}

func (s *Service) embed(ctx context.Context, query string) ([]float32, error) {
	if s.Embedder == nil {
		return nil, mdlerr.New(mdlerr.KindInternal, "semantic search requires an embedding model, not yet implemented")
	}
	vec, err := s.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, mdlerr.Wrap(mdlerr.KindInternal, "generate query embedding", err)
	}
	return vec, nil
}

func toResults(rows []db.MetadataSearchResult) []Result {
	out := make([]Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, Result{Media: r.Media, Similarity: r.Similarity})
	}
	return out
}

// mapSearchError maps repository errors carrying "Too many metadata
// filters" or "not yet implemented" to dedicated kinds; everything else
// is Internal.
func mapSearchError(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Too many metadata filters"):
		return mdlerr.New(mdlerr.KindMetadataFilterLimitExceeded, "Too many metadata filters")
	case strings.Contains(msg, "not yet implemented"):
		return mdlerr.New(mdlerr.KindInternal, "not yet implemented")
	default:
		if mdErr, ok := mdlerr.As(err); ok {
			return mdErr
		}
		return mdlerr.Internal("search", err)
	}
}
