package collection

import (
	"context"
	"testing"

	"github.com/kailas-cloud/chunkdex/internal/db"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
)

const testVectorDim = 1024

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn             func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn          func(ctx context.Context, key string) (map[string]string, error)
	delFn              func(ctx context.Context, key string) error
	existsFn           func(ctx context.Context, key string) (bool, error)
	createIndexFn      func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn      func(ctx context.Context, name string) (bool, error)
	supportsTextSearch bool
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) SupportsTextSearch(_ context.Context) bool {
	return m.supportsTextSearch
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, layout.NewKeyspace("chunkdex:"))
	return repo, ms
}

func testCollection(t *testing.T, multiTenancy bool) domcol.Collection {
	t.Helper()
	return domcol.Reconstruct(
		"test-collection",
		[]field.Field{
			field.Reconstruct("language", field.Tag),
			field.Reconstruct("priority", field.Numeric),
		},
		[]domcol.Vector{domcol.ReconstructVector("default", testVectorDim, method.Cosine)},
		multiTenancy,
		1700000000000,
		1,
	)
}

func rebuildWithMethod(col domcol.Collection, m method.Method) domcol.Collection {
	return domcol.Reconstruct(
		col.Name(), col.Fields(),
		[]domcol.Vector{domcol.ReconstructVector("default", testVectorDim, m)},
		col.MultiTenancy(), col.CreatedAt(), col.Revision(),
	)
}
