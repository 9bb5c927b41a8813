package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/chunkdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
)

type mockSearch struct {
	requestFn func(ctx context.Context, payload []byte) (*searchuc.Response, error)
	textFn    func(ctx context.Context, text string) (*searchuc.Response, error)
}

func (m *mockSearch) SearchRequest(ctx context.Context, payload []byte) (*searchuc.Response, error) {
	return m.requestFn(ctx, payload)
}

func (m *mockSearch) SearchText(ctx context.Context, text string) (*searchuc.Response, error) {
	return m.textFn(ctx, text)
}

type mockCollections struct {
	createFn       func(ctx context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error)
	getFn          func(ctx context.Context, name string) (domcol.Collection, error)
	createTenantFn func(ctx context.Context, name, tenant string, idempotent bool) error
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

type mockDocuments struct {
	persistFn func(ctx context.Context, collection, tenant string, doc chunk.Document) (int, int, error)
}

func (m *mockDocuments) Persist(
	ctx context.Context, collection, tenant string, doc chunk.Document,
) (int, int, error) {
	return m.persistFn(ctx, collection, tenant, doc)
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type fixture struct {
	search  *mockSearch
	colls   *mockCollections
	docs    *mockDocuments
	health  *mockHealth
	handler http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		search: &mockSearch{},
		colls:  &mockCollections{},
		docs:   &mockDocuments{},
		health: &mockHealth{},
	}
	srv := NewServer(f.colls, f.docs, f.search, f.health, zap.NewNop())
	f.handler = HandlerWithOptions(srv, ChiServerOptions{ErrorHandlerFunc: ParamErrorHandler})
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func testCollection() domcol.Collection {
	return domcol.Reconstruct("docs",
		[]field.Field{field.Reconstruct("language", field.Tag)},
		[]domcol.Vector{domcol.ReconstructVector("default", 3, method.Cosine)},
		false, 1700000000000, 1)
}

func TestSearch_GroupsResponse(t *testing.T) {
	f := newFixture(t)
	root := chunk.Reconstruct("root", "Intro", 0, 0, 5, "", "a.md", map[string]any{"lang": "en"}, nil)
	leaf := chunk.Reconstruct("leaf", "Body", 1, 6, 10, "root", "a.md", map[string]any{"lang": "en"},
		map[string][]float32{"default": {0.1, 0.2, 0.3}})
	matched := result.New(leaf, 0.12)

	var got []byte
	f.search.requestFn = func(_ context.Context, payload []byte) (*searchuc.Response, error) {
		got = payload
		return &searchuc.Response{
			Documents: []result.Group{{
				Filename: "a.md",
				Metadata: map[string]any{"lang": "en"},
				Hits:     []result.Hit{matched, matched.WithChunk(root, result.RoleParent)},
			}},
			Warnings: []result.Warning{{Code: result.WarnParentLookup, ChunkID: "x", Message: "gone"}},
		}, nil
	}

	rr := f.do(http.MethodPost, "/search", `[0.1,0.2,0.3]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if string(got) != `[0.1,0.2,0.3]` {
		t.Errorf("payload = %s", got)
	}

	resp := decode[SearchResponse](t, rr)
	if len(resp.Documents) != 1 || len(resp.Documents[0].Chunks) != 2 {
		t.Fatalf("unexpected documents: %+v", resp.Documents)
	}
	doc := resp.Documents[0]
	if doc.Filename != "a.md" || doc.DocumentMetadata["lang"] != "en" {
		t.Errorf("document = %+v", doc)
	}
	c := doc.Chunks[0]
	if c.ChunkID != "leaf" || c.OriginalSpan != [2]int{6, 10} || c.HierarchyLevel != 1 ||
		c.ParentID == nil || *c.ParentID != "root" || c.Role != "match" || c.Distance != 0.12 {
		t.Errorf("match chunk = %+v", c)
	}
	if len(c.Embedding) != 3 {
		t.Errorf("embedding = %v", c.Embedding)
	}
	p := doc.Chunks[1]
	if p.ChunkID != "root" || p.ParentID != nil || p.Role != "parent" || p.Embedding != nil {
		t.Errorf("parent chunk = %+v", p)
	}
	if len(resp.Warnings) != 1 || resp.Warnings[0].Code != result.WarnParentLookup {
		t.Errorf("warnings = %+v", resp.Warnings)
	}
}

func TestSearch_EmptyResultHasArrays(t *testing.T) {
	f := newFixture(t)
	f.search.requestFn = func(_ context.Context, _ []byte) (*searchuc.Response, error) {
		return &searchuc.Response{}, nil
	}

	rr := f.do(http.MethodPost, "/search", `{"collection":"docs"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != `{"documents":[],"warnings":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestSearch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   ErrorResponseCode
	}{
		{"validation", domain.NewValidationError("top", "must be positive"),
			http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{"wrapped validation", fmt.Errorf("filter schema: %w", domain.ErrValidation),
			http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{"not found", fmt.Errorf("search: %w", domain.ErrNotFound),
			http.StatusNotFound, ErrorResponseCodeNotFound},
		{"dim mismatch", domain.ErrVectorDimMismatch,
			http.StatusBadRequest, ErrorResponseCodeVectorDimMismatch},
		{"provider", fmt.Errorf("vectorize query: %w", domain.ErrEmbeddingProviderError),
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError},
		{"internal", errors.New("connection reset"),
			http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.search.requestFn = func(_ context.Context, _ []byte) (*searchuc.Response, error) {
				return nil, tt.err
			}

			rr := f.do(http.MethodPost, "/search", `{}`)
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			resp := decode[ErrorResponse](t, rr)
			if resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
			if tt.code == ErrorResponseCodeInternalError && resp.Message != "internal error" {
				t.Errorf("internal message leaked: %q", resp.Message)
			}
		})
	}
}

func TestSearchText(t *testing.T) {
	f := newFixture(t)
	var got string
	f.search.textFn = func(_ context.Context, text string) (*searchuc.Response, error) {
		got = text
		return &searchuc.Response{}, nil
	}

	rr := f.do(http.MethodPost, "/search/text", "  how are chunks stored?\n")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got != "how are chunks stored?" {
		t.Errorf("text = %q", got)
	}
}

func TestSearchText_EmptyBody(t *testing.T) {
	f := newFixture(t)
	f.search.textFn = func(_ context.Context, _ string) (*searchuc.Response, error) {
		t.Fatal("search must not run")
		return nil, nil
	}

	rr := f.do(http.MethodPost, "/search/text", "   ")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestPutCollection(t *testing.T) {
	f := newFixture(t)
	var (
		gotSpec       collectionuc.Spec
		gotIdempotent bool
	)
	f.colls.createFn = func(_ context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error) {
		gotSpec, gotIdempotent = spec, idempotent
		return domcol.New(spec.Name, spec.Fields, spec.Vectors, spec.MultiTenancy)
	}

	body := `{"fields":[{"name":"language","type":"tag"}],` +
		`"vectors":[{"dimensions":3},{"name":"title","dimensions":2,"method":"dot"}],"multi_tenancy":true}`
	rr := f.do(http.MethodPut, "/collections/docs?idempotent=true", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if !gotIdempotent || gotSpec.Name != "docs" || !gotSpec.MultiTenancy {
		t.Errorf("spec = %+v, idempotent = %v", gotSpec, gotIdempotent)
	}
	if len(gotSpec.Vectors) != 2 || gotSpec.Vectors[0].Name() != "default" ||
		gotSpec.Vectors[0].Method() != method.Cosine || gotSpec.Vectors[1].Method() != method.Dot {
		t.Errorf("vectors = %+v", gotSpec.Vectors)
	}

	resp := decode[Collection](t, rr)
	if resp.Name != "docs" || len(resp.Fields) != 1 || len(resp.Vectors) != 2 || !resp.MultiTenancy {
		t.Errorf("response = %+v", resp)
	}
}

func TestPutCollection_BadInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
		body   string
		code   ErrorResponseCode
	}{
		{"malformed json", "/collections/docs", `{`, ErrorResponseCodeBadRequest},
		{"bad field type", "/collections/docs", `{"fields":[{"name":"x","type":"blob"}],"vectors":[{"dimensions":3}]}`,
			ErrorResponseCodeValidationFailed},
		{"bad dimensions", "/collections/docs", `{"vectors":[{"dimensions":0}]}`, ErrorResponseCodeValidationFailed},
		{"bad idempotent", "/collections/docs?idempotent=maybe", `{"vectors":[{"dimensions":3}]}`,
			ErrorResponseCodeBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.colls.createFn = func(context.Context, collectionuc.Spec, bool) (domcol.Collection, error) {
				t.Fatal("create must not run")
				return domcol.Collection{}, nil
			}

			rr := f.do(http.MethodPut, tt.target, tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Code != tt.code {
				t.Errorf("code = %s, want %s", resp.Code, tt.code)
			}
		})
	}
}

func TestPutCollection_Conflict(t *testing.T) {
	f := newFixture(t)
	f.colls.createFn = func(context.Context, collectionuc.Spec, bool) (domcol.Collection, error) {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", domain.ErrAlreadyExists)
	}

	rr := f.do(http.MethodPut, "/collections/docs", `{"vectors":[{"dimensions":3}]}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGetCollection(t *testing.T) {
	f := newFixture(t)
	f.colls.getFn = func(_ context.Context, name string) (domcol.Collection, error) {
		if name != "docs" {
			return domcol.Collection{}, domain.ErrNotFound
		}
		return testCollection(), nil
	}

	rr := f.do(http.MethodGet, "/collections/docs", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decode[Collection](t, rr)
	if resp.Vectors[0].Dimensions != 3 || resp.Vectors[0].Method != "cosine" || resp.Revision != 1 {
		t.Errorf("response = %+v", resp)
	}

	if rr := f.do(http.MethodGet, "/collections/other", ""); rr.Code != http.StatusNotFound {
		t.Errorf("missing collection status = %d", rr.Code)
	}
}

func TestPutTenant(t *testing.T) {
	f := newFixture(t)
	var gotCol, gotTenant string
	var gotIdempotent bool
	f.colls.createTenantFn = func(_ context.Context, name, tenant string, idempotent bool) error {
		gotCol, gotTenant, gotIdempotent = name, tenant, idempotent
		return nil
	}

	rr := f.do(http.MethodPut, "/collections/docs/tenants/acme", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
	if gotCol != "docs" || gotTenant != "acme" || gotIdempotent {
		t.Errorf("got %s/%s idempotent=%v", gotCol, gotTenant, gotIdempotent)
	}
}

func TestPersistDocument(t *testing.T) {
	f := newFixture(t)
	var (
		gotTenant string
		gotDoc    chunk.Document
	)
	f.docs.persistFn = func(_ context.Context, _, tenant string, doc chunk.Document) (int, int, error) {
		gotTenant, gotDoc = tenant, doc
		return 1, 1, nil
	}

	body := `{"filename":"a.md","document_metadata":{"language":"en"},"chunks":[
		{"chunk_id":"root","content":"Intro","hierarchy_level":0,"original_span":[0,5],"embedding":[1,0,0]},
		{"chunk_id":"leaf","content":"Body","hierarchy_level":1,"original_span":[6,10],"parent_id":"root",
		 "vectors":{"default":[0,1,0]}}
	]}`
	rr := f.do(http.MethodPost, "/collections/docs/documents?tenant=acme", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if resp := decode[PersistResponse](t, rr); resp.Inserted != 1 || resp.Replaced != 1 {
		t.Errorf("response = %+v", resp)
	}
	if gotTenant != "acme" || gotDoc.Filename() != "a.md" || len(gotDoc.Chunks()) != 2 {
		t.Fatalf("tenant = %q doc = %+v", gotTenant, gotDoc)
	}
	if v, ok := gotDoc.Chunks()[0].Vector("default"); !ok || v[0] != 1 {
		t.Errorf("embedding shorthand not mapped: %v", v)
	}
	if gotDoc.Chunks()[1].Metadata()["language"] != "en" {
		t.Errorf("metadata not stamped: %v", gotDoc.Chunks()[1].Metadata())
	}
}

func TestPersistDocument_BadInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no filename", `{"chunks":[{"content":"x","original_span":[0,1]}]}`},
		{"no chunks", `{"filename":"a.md","chunks":[]}`},
		{"orphan parent", `{"filename":"a.md","chunks":[{"content":"x","parent_id":"nope","original_span":[0,1]}]}`},
		{"embedding twice", `{"filename":"a.md","chunks":[{"content":"x","original_span":[0,1],` +
			`"embedding":[1],"vectors":{"default":[1]}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.docs.persistFn = func(context.Context, string, string, chunk.Document) (int, int, error) {
				t.Fatal("persist must not run")
				return 0, 0, nil
			}

			rr := f.do(http.MethodPost, "/collections/docs/documents", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rr.Code)
			}
			if resp := decode[ErrorResponse](t, rr); resp.Code != ErrorResponseCodeValidationFailed {
				t.Errorf("code = %s", resp.Code)
			}
		})
	}
}

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		status healthuc.Status
		want   int
	}{
		{healthuc.Healthy, http.StatusOK},
		{healthuc.Degraded, http.StatusOK},
		{healthuc.Unhealthy, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			f.health.report = healthuc.Report{
				Status:     tt.status,
				Checks:     map[string]healthuc.CheckResult{healthuc.ComponentStore: healthuc.CheckOK},
				TextSearch: true,
			}

			rr := f.do(http.MethodGet, "/health", "")
			if rr.Code != tt.want {
				t.Fatalf("status = %d, want %d", rr.Code, tt.want)
			}
			resp := decode[HealthResponse](t, rr)
			if resp.Status != string(tt.status) || resp.Checks["store"] != "ok" || !resp.TextSearch || resp.Version == "" {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}
