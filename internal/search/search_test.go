package search

import (
	"context"
	"net/url"
	"testing"

	"github.com/jeremybastin1207/mindia-go/internal/db"
	"github.com/jeremybastin1207/mindia-go/internal/mdlerr"
)

func TestParseMetadataFiltersExactShape(t *testing.T) {
	values := url.Values{"metadata.category": {"landscape"}}
	filters, err := ParseMetadataFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 1 {
		t.Fatalf("len(filters) = %d, want 1", len(filters))
	}
	if filters[0].Key != "category" || filters[0].Op != db.FilterEq || filters[0].Value != "landscape" {
		t.Fatalf("unexpected filter: %+v", filters[0])
	}
}

func TestParseMetadataFiltersAllShapes(t *testing.T) {
	values := url.Values{
		"metadata.category":         {"landscape"},
		"metadata_min.width":        {"800"},
		"metadata_max.width":        {"4000"},
		"metadata_contains.caption": {"sunset"},
	}
	filters, err := ParseMetadataFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 4 {
		t.Fatalf("len(filters) = %d, want 4", len(filters))
	}

	byOp := map[db.FilterOp]bool{}
	for _, f := range filters {
		byOp[f.Op] = true
	}
	for _, op := range []db.FilterOp{db.FilterEq, db.FilterMin, db.FilterMax, db.FilterContains} {
		if !byOp[op] {
			t.Errorf("missing filter with op %v", op)
		}
	}
}

func TestParseMetadataFiltersRejectsInvalidKey(t *testing.T) {
	values := url.Values{"metadata.bad key!": {"x"}}
	if _, err := ParseMetadataFilters(values); err == nil {
		t.Fatalf("expected an error for a metadata key containing disallowed characters")
	}
}

func TestParseMetadataFiltersIgnoresUnrelatedParams(t *testing.T) {
	values := url.Values{"limit": {"10"}, "q": {"sunset"}}
	filters, err := ParseMetadataFilters(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(filters) != 0 {
		t.Fatalf("len(filters) = %d, want 0", len(filters))
	}
}

func TestRunRejectsUnknownMode(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), "default", Request{Mode: "bogus", Limit: 10})
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput, got %v", err)
	}
}

func TestRunRejectsOutOfRangeLimit(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), "default", Request{Mode: ModeMetadata, Limit: 0, Filters: []db.MetadataFilter{{Key: "x", Op: db.FilterEq, Value: "y"}}})
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for limit=0, got %v", err)
	}
}

func TestRunRejectsMetadataModeWithoutFilters(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), "default", Request{Mode: ModeMetadata, Limit: 10})
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for metadata search with no filters, got %v", err)
	}
}

func TestRunRejectsSemanticModeWithoutQueryOrFilters(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), "default", Request{Mode: ModeSemantic, Limit: 10})
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for semantic search with no query or filters, got %v", err)
	}
}

func TestRunRejectsOutOfRangeSimilarity(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), "default", Request{Mode: ModeSemantic, Limit: 10, Query: "sunset", MinSimilarity: 1.5})
	if !mdlerr.Is(err, mdlerr.KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for out-of-range min_similarity, got %v", err)
	}
}
