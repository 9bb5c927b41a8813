package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
)

func TestSearch_BuildsQuery(t *testing.T) {
	repo, ms := newTestRepo(t)
	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}

	q := compile(t, `{"collection": "docs", "tenant": "acme", "top": 5,
		"query_embedding": [1, 0, 0], "having_all": {"language": "go"}}`, level.Exactly(2))
	if _, err := repo.Search(context.Background(), testCollection(), q); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.IndexName != "chunkdex:docs:t:acme:idx" {
		t.Errorf("IndexName = %q", got.IndexName)
	}
	if got.VectorField != "__vec_default" {
		t.Errorf("VectorField = %q", got.VectorField)
	}
	if got.K != 5 {
		t.Errorf("K = %d, want 5", got.K)
	}
	if got.LevelField != "hierarchy_level" {
		t.Errorf("LevelField = %q", got.LevelField)
	}
	if n, ok := got.Levels.Level(); !ok || n != 2 {
		t.Errorf("Levels = %v", got.Levels)
	}
	if got.FieldTypes["language"] != db.IndexFieldTag {
		t.Errorf("FieldTypes[language] = %v", got.FieldTypes["language"])
	}
	if got.Filters.IsEmpty() {
		t.Error("expected filters")
	}
	if len(got.Vector) != 3 {
		t.Errorf("Vector len = %d", len(got.Vector))
	}
}

func TestSearch_ParsesHits(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 2, Entries: []db.SearchEntry{
			{Key: "chunkdex:docs:c:a", Distance: 0.1, Fields: map[string]string{"$": chunkJSON(t, "a", 1)}},
			{Key: "chunkdex:docs:c:b", Distance: 0.4, Fields: map[string]string{"$": chunkJSON(t, "b", 2)}},
		}}, nil
	}

	q := compile(t, `{"collection": "docs", "query_embedding": [1, 0, 0]}`, level.All)
	hits, err := repo.Search(context.Background(), testCollection(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID() != "a" || hits[0].Distance() != 0.1 {
		t.Errorf("hit 0 = %s/%v", hits[0].ID(), hits[0].Distance())
	}
	if hits[1].Chunk().Level() != 2 {
		t.Errorf("hit 1 level = %d", hits[1].Chunk().Level())
	}
	if hits[0].Chunk().Filename() != "a.md" {
		t.Errorf("filename = %q", hits[0].Chunk().Filename())
	}
	if len(hits[0].Chunk().Vectors()) != 0 {
		t.Error("vectors should be stripped without include_vector")
	}
}

func TestSearch_IncludeVector(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "chunkdex:docs:c:a", Distance: 0, Fields: map[string]string{"$": chunkJSON(t, "a", 0)}},
		}}, nil
	}

	q := compile(t, `{"collection": "docs", "include_vector": true, "query_embedding": [1, 0, 0]}`, level.All)
	hits, err := repo.Search(context.Background(), testCollection(), q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	vecs := hits[0].Chunk().Vectors()
	if len(vecs) != 1 {
		t.Fatalf("expected only the searched vector, got %d", len(vecs))
	}
	if _, ok := vecs["default"]; !ok {
		t.Error("expected default vector")
	}
}

func TestSearch_MissingDocument(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Total: 1, Entries: []db.SearchEntry{
			{Key: "chunkdex:docs:c:a", Distance: 0, Fields: map[string]string{}},
		}}, nil
	}

	q := compile(t, `{"collection": "docs", "query_embedding": [1, 0, 0]}`, level.All)
	if _, err := repo.Search(context.Background(), testCollection(), q); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, &db.Error{Op: db.OpSearch, Err: db.ErrIndexNotFound}
	}

	q := compile(t, `{"collection": "docs", "query_embedding": [1, 0, 0]}`, level.All)
	_, err := repo.Search(context.Background(), testCollection(), q)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSearch_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(_ context.Context, _ *db.KNNQuery) (*db.SearchResult, error) {
		return nil, fmt.Errorf("connection refused")
	}

	q := compile(t, `{"collection": "docs", "query_embedding": [1, 0, 0]}`, level.All)
	_, err := repo.Search(context.Background(), testCollection(), q)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected plain error, got %v", err)
	}
}

func TestMaxDepth(t *testing.T) {
	repo, ms := newTestRepo(t)
	var got *db.MaxQuery
	ms.maxNumericFn = func(_ context.Context, q *db.MaxQuery) (float64, bool, error) {
		got = q
		return 3, true, nil
	}

	depth, err := repo.MaxDepth(context.Background(), "docs", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depth != 3 {
		t.Errorf("depth = %d, want 3", depth)
	}
	if got.IndexName != "chunkdex:docs:idx" || got.KeyPrefix != "chunkdex:docs:c:" {
		t.Errorf("query = %+v", got)
	}
	if got.Field != "hierarchy_level" || got.JSONPath != "$.hierarchy_level" {
		t.Errorf("field = %q path = %q", got.Field, got.JSONPath)
	}
}

func TestMaxDepth_EmptyPartition(t *testing.T) {
	repo, _ := newTestRepo(t)
	depth, err := repo.MaxDepth(context.Background(), "docs", "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if depth != 0 {
		t.Errorf("depth = %d, want 0", depth)
	}
}

func TestMaxDepth_Error(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.maxNumericFn = func(_ context.Context, _ *db.MaxQuery) (float64, bool, error) {
		return 0, false, fmt.Errorf("boom")
	}
	if _, err := repo.MaxDepth(context.Background(), "docs", ""); err == nil {
		t.Fatal("expected error")
	}
}
