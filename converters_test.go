package chunkdex

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
)

type mockCollections struct {
	createFn       func(ctx context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error)
	getFn          func(ctx context.Context, name string) (domcol.Collection, error)
	createTenantFn func(ctx context.Context, name, tenant string, idempotent bool) error
	getOrCreateFn  func(ctx context.Context, spec collectionuc.Spec, tenant string) (domcol.Collection, error)
}

func (m *mockCollections) Create(
	ctx context.Context, spec collectionuc.Spec, idempotent bool,
) (domcol.Collection, error) {
	return m.createFn(ctx, spec, idempotent)
}

func (m *mockCollections) Get(ctx context.Context, name string) (domcol.Collection, error) {
	return m.getFn(ctx, name)
}

func (m *mockCollections) CreateTenant(ctx context.Context, name, tenant string, idempotent bool) error {
	return m.createTenantFn(ctx, name, tenant, idempotent)
}

func (m *mockCollections) GetOrCreate(
	ctx context.Context, spec collectionuc.Spec, tenant string,
) (domcol.Collection, error) {
	return m.getOrCreateFn(ctx, spec, tenant)
}

type mockPersister struct {
	fn func(ctx context.Context, collection, tenant string, doc chunk.Document) (int, int, error)
}

func (m *mockPersister) Persist(
	ctx context.Context, collection, tenant string, doc chunk.Document,
) (inserted, replaced int, err error) {
	return m.fn(ctx, collection, tenant, doc)
}

func storedCollection() domcol.Collection {
	return domcol.Reconstruct("docs",
		[]field.Field{field.Reconstruct("language", field.Tag), field.Reconstruct("year", field.Numeric)},
		[]domcol.Vector{
			domcol.ReconstructVector("default", 3, method.Cosine),
			domcol.ReconstructVector("title", 2, method.Dot),
		},
		true, 1700000000000, 2)
}

func TestCollectionSpec(t *testing.T) {
	spec, err := collectionSpec("docs", []CollectionOption{
		WithField("language", FieldTag),
		WithVector("", 3, ""),
		WithVector("title", 2, MethodL2Squared),
		MultiTenant(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Name != "docs" || !spec.MultiTenancy || len(spec.Fields) != 1 {
		t.Errorf("spec = %+v", spec)
	}
	if len(spec.Vectors) != 2 {
		t.Fatalf("vectors = %d", len(spec.Vectors))
	}
	def := spec.Vectors[0]
	if def.Name() != domcol.DefaultVector || def.Method() != method.Cosine {
		t.Errorf("default vector = %s %s", def.Name(), def.Method())
	}
	if spec.Vectors[1].Method() != method.L2Squared {
		t.Errorf("title method = %s", spec.Vectors[1].Method())
	}
}

func TestCollectionSpec_Invalid(t *testing.T) {
	tests := []struct {
		name string
		opts []CollectionOption
	}{
		{"bad field type", []CollectionOption{WithField("x", "blob"), WithVector("", 3, "")}},
		{"zero dimensions", []CollectionOption{WithVector("", 0, "")}},
		{"unknown method", []CollectionOption{WithVector("", 3, "jaccard")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := collectionSpec("docs", tt.opts); !errors.Is(err, ErrInvalidSchema) {
				t.Fatalf("err = %v, want ErrInvalidSchema", err)
			}
		})
	}
}

func TestFromInternalCollection(t *testing.T) {
	info := fromInternalCollection(storedCollection())
	if info.Name != "docs" || !info.MultiTenancy || info.CreatedAt != 1700000000000 || info.Revision != 2 {
		t.Errorf("info = %+v", info)
	}
	if len(info.Fields) != 2 || info.Fields[1] != (FieldInfo{Name: "year", Type: FieldNumeric}) {
		t.Errorf("fields = %+v", info.Fields)
	}
	if len(info.Vectors) != 2 || info.Vectors[1] != (VectorInfo{Name: "title", Dimensions: 2, Method: MethodDot}) {
		t.Errorf("vectors = %+v", info.Vectors)
	}
}

func testDocument() Document {
	return Document{
		Filename: "guide.md",
		Metadata: map[string]any{"language": "en"},
		Chunks: []Chunk{
			{ID: "root", Content: "Guide", Level: 0, SpanStart: 0, SpanEnd: 5,
				Vectors: map[string][]float32{"default": {1, 0, 0}}},
			{ID: "sec", Content: "Section", Level: 1, SpanStart: 6, SpanEnd: 13, ParentID: "root",
				Vectors: map[string][]float32{"default": {0, 1, 0}}},
		},
	}
}

func TestToInternalDocument(t *testing.T) {
	d, err := toInternalDocument(testDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chunks := d.Chunks()
	if len(chunks) != 2 {
		t.Fatalf("chunks = %d", len(chunks))
	}
	sec := chunks[1]
	if sec.Filename() != "guide.md" || sec.ParentID() != "root" || sec.Metadata()["language"] != "en" {
		t.Errorf("chunk = %+v", sec)
	}
}

func TestToInternalDocument_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		doc   func() Document
		field string
	}{
		{"negative level", func() Document {
			d := testDocument()
			d.Chunks[1].Level = -1
			return d
		}, "chunks"},
		{"empty content", func() Document {
			d := testDocument()
			d.Chunks[0].Content = ""
			return d
		}, "chunks"},
		{"missing filename", func() Document {
			d := testDocument()
			d.Filename = ""
			return d
		}, "document"},
		{"no chunks", func() Document {
			return Document{Filename: "x.md"}
		}, "document"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := toInternalDocument(tt.doc())
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Fatalf("err = %v, want validation error on %s", err, tt.field)
			}
		})
	}
}

func TestClient_CreateCollection(t *testing.T) {
	var gotIdempotent = true
	c := &Client{logger: zap.NewNop(), colls: &mockCollections{
		createFn: func(_ context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error) {
			gotIdempotent = idempotent
			if spec.Name != "docs" {
				t.Errorf("name = %s", spec.Name)
			}
			return storedCollection(), nil
		},
	}}

	info, err := c.CreateCollection(context.Background(), "docs", WithVector("", 3, MethodCosine))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotIdempotent {
		t.Error("CreateCollection must not be idempotent")
	}
	if info.Name != "docs" {
		t.Errorf("info = %+v", info)
	}
}

func TestClient_CreateCollection_Exists(t *testing.T) {
	c := &Client{logger: zap.NewNop(), colls: &mockCollections{
		createFn: func(context.Context, collectionuc.Spec, bool) (domcol.Collection, error) {
			return domcol.Collection{}, domain.ErrAlreadyExists
		},
	}}
	_, err := c.CreateCollection(context.Background(), "docs", WithVector("", 3, ""))
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v", err)
	}
}

func TestClient_EnsureCollection(t *testing.T) {
	var gotTenant string
	c := &Client{logger: zap.NewNop(), colls: &mockCollections{
		getOrCreateFn: func(_ context.Context, _ collectionuc.Spec, tenant string) (domcol.Collection, error) {
			gotTenant = tenant
			return storedCollection(), nil
		},
	}}
	if _, err := c.EnsureCollection(context.Background(), "docs", "acme", WithVector("", 3, ""), MultiTenant()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotTenant != "acme" {
		t.Errorf("tenant = %q", gotTenant)
	}
}

func TestClient_CreateTenant_Idempotent(t *testing.T) {
	c := &Client{logger: zap.NewNop(), colls: &mockCollections{
		createTenantFn: func(_ context.Context, name, tenant string, idempotent bool) error {
			if name != "docs" || tenant != "acme" || !idempotent {
				t.Errorf("CreateTenant(%s, %s, %v)", name, tenant, idempotent)
			}
			return nil
		},
	}}
	if err := c.CreateTenant(context.Background(), "docs", "acme"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Persist(t *testing.T) {
	c := &Client{logger: zap.NewNop(), docs: &mockPersister{
		fn: func(_ context.Context, collection, tenant string, doc chunk.Document) (int, int, error) {
			if collection != "docs" || tenant != "" || doc.Filename() != "guide.md" {
				t.Errorf("Persist(%s, %q, %s)", collection, tenant, doc.Filename())
			}
			return 1, 1, nil
		},
	}}
	res, err := c.Persist(context.Background(), "docs", "", testDocument())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != (PersistResult{Inserted: 1, Replaced: 1}) {
		t.Errorf("result = %+v", res)
	}
}

func TestClient_Persist_InvalidDocument(t *testing.T) {
	c := &Client{logger: zap.NewNop(), docs: &mockPersister{
		fn: func(context.Context, string, string, chunk.Document) (int, int, error) {
			t.Fatal("persist must not run")
			return 0, 0, nil
		},
	}}
	if _, err := c.Persist(context.Background(), "docs", "", Document{Filename: "x.md"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v", err)
	}
}
