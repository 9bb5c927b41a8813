package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/query"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn        func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	maxNumericFn       func(ctx context.Context, q *db.MaxQuery) (float64, bool, error)
	supportsTextSearch bool
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) MaxNumeric(ctx context.Context, q *db.MaxQuery) (float64, bool, error) {
	if m.maxNumericFn != nil {
		return m.maxNumericFn(ctx, q)
	}
	return 0, false, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.supportsTextSearch
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, layout.NewKeyspace("chunkdex:")), ms
}

func testCollection() domcol.Collection {
	return domcol.Reconstruct(
		"docs",
		[]field.Field{field.Reconstruct("language", field.Tag)},
		[]domcol.Vector{domcol.ReconstructVector("default", 3, method.Cosine)},
		false, 1700000000000, 1,
	)
}

func compile(t *testing.T, raw string, levels level.Selection) *query.Compiled {
	t.Helper()
	p, err := request.ParseParams([]byte(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	req, err := request.NewResolver(request.Params{}).Resolve(p)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	q, err := query.Compile(req, levels, 100)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return &q
}

func chunkJSON(t *testing.T, id string, level int) string {
	t.Helper()
	c := chunk.Reconstruct(id, "text "+id, level, 0, 10, "", "a.md",
		map[string]any{"language": "go"},
		map[string][]float32{"default": {1, 0, 0}, "other": {0, 1, 0}})
	raw, err := layout.EncodeChunk(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}
