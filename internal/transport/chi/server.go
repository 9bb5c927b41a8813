package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
	logpkg "github.com/kailas-cloud/chunkdex/internal/logger"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
	healthuc "github.com/kailas-cloud/chunkdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
	"github.com/kailas-cloud/chunkdex/internal/version"
)

// Request body limits.
const (
	maxSearchBody   = 8 << 20
	maxDocumentBody = 64 << 20
)

// SearchService runs searches.
type SearchService interface {
	SearchRequest(ctx context.Context, payload []byte) (*searchuc.Response, error)
	SearchText(ctx context.Context, text string) (*searchuc.Response, error)
}

// CollectionService manages collections and tenants.
type CollectionService interface {
	Create(ctx context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error)
	Get(ctx context.Context, name string) (domcol.Collection, error)
	CreateTenant(ctx context.Context, name, tenant string, idempotent bool) error
}

// DocumentService persists chunked documents.
type DocumentService interface {
	Persist(ctx context.Context, collection, tenant string, doc chunk.Document) (inserted, replaced int, err error)
}

// HealthService reports component health.
type HealthService interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server implements ServerInterface.
type Server struct {
	collections   CollectionService
	documents     DocumentService
	search        SearchService
	health        HealthService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	collections CollectionService,
	documents DocumentService,
	search SearchService,
	health HealthService,
	logger *zap.Logger,
) *Server {
	s := &Server{
		collections: collections,
		documents:   documents,
		search:      search,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorResponseCodeValidationFailed, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound, true),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, ErrorResponseCodeAlreadyExists, true),
		sentinelHandler(domain.ErrVectorDimMismatch, http.StatusBadRequest, ErrorResponseCodeVectorDimMismatch, true),
		sentinelHandler(domain.ErrUnsupportedMethod, http.StatusBadRequest, ErrorResponseCodeUnsupportedMethod, true),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, ErrorResponseCodeValidationFailed, true),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, ErrorResponseCodeEmbeddingProviderError, false),
	}
	return s
}

// Search handles POST /search. The body is a request object or a bare
// embedding array.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSearchBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := s.search.SearchRequest(r.Context(), body)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(resp))
}

// SearchText handles POST /search/text. The body is the raw query text.
func (s *Server) SearchText(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSearchBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "Query text is required")
		return
	}

	resp, err := s.search.SearchText(r.Context(), text)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse(resp))
}

// PutCollection handles PUT /collections/{collection}.
func (s *Server) PutCollection(
	w http.ResponseWriter, r *http.Request, collection CollectionName, params PutCollectionParams,
) {
	var req CollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	spec, err := specFromRequest(collection, req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	col, err := s.collections.Create(r.Context(), spec, deref(params.Idempotent))
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionToResponse(col))
}

// GetCollection handles GET /collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request, collection CollectionName) {
	col, err := s.collections.Get(r.Context(), collection)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToResponse(col))
}

// PutTenant handles PUT /collections/{collection}/tenants/{tenant}.
func (s *Server) PutTenant(
	w http.ResponseWriter, r *http.Request, collection CollectionName, tenant TenantName, params PutTenantParams,
) {
	if err := s.collections.CreateTenant(r.Context(), collection, tenant, deref(params.Idempotent)); err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PersistDocument handles POST /collections/{collection}/documents.
func (s *Server) PersistDocument(
	w http.ResponseWriter, r *http.Request, collection CollectionName, params PersistDocumentParams,
) {
	var req DocumentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxDocumentBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	doc, err := documentFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, err.Error())
		return
	}

	inserted, replaced, err := s.documents.Persist(r.Context(), collection, deref(params.Tenant), doc)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, PersistResponse{Inserted: inserted, Replaced: replaced})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:     string(report.Status),
		Checks:     checks,
		TextSearch: report.TextSearch,
		Version:    version.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ParamErrorHandler answers requests whose parameters failed to bind.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid parameter "+pe.ParamName)
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid request")
}

func validationHandler(w http.ResponseWriter, err error) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, ve.Error())
	return true
}

// sentinelHandler returns an errorHandler that matches a single sentinel
// error. With detailed set the full error text reaches the client, otherwise
// only the sentinel text does.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContextOr(ctx, s.logger)
	log.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func specFromRequest(name string, req CollectionRequest) (collectionuc.Spec, error) {
	fields := make([]field.Field, 0, len(req.Fields))
	for _, f := range req.Fields {
		fd, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return collectionuc.Spec{}, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields = append(fields, fd)
	}

	vectors := make([]domcol.Vector, 0, len(req.Vectors))
	for _, v := range req.Vectors {
		vec, err := domcol.NewVector(v.Name, v.Dimensions, method.Method(v.Method))
		if err != nil {
			return collectionuc.Spec{}, fmt.Errorf("vector %q: %w", v.Name, err)
		}
		vectors = append(vectors, vec)
	}

	return collectionuc.Spec{
		Name:         name,
		Fields:       fields,
		Vectors:      vectors,
		MultiTenancy: req.MultiTenancy,
	}, nil
}

func collectionToResponse(c domcol.Collection) Collection {
	fields := make([]FieldDefinition, len(c.Fields()))
	for i, f := range c.Fields() {
		fields[i] = FieldDefinition{Name: f.Name(), Type: string(f.FieldType())}
	}
	vectors := make([]VectorDefinition, len(c.Vectors()))
	for i, v := range c.Vectors() {
		vectors[i] = VectorDefinition{Name: v.Name(), Dimensions: v.Dim(), Method: string(v.Method())}
	}
	return Collection{
		Name:         c.Name(),
		Fields:       fields,
		Vectors:      vectors,
		MultiTenancy: c.MultiTenancy(),
		CreatedAt:    c.CreatedAt(),
		Revision:     c.Revision(),
	}
}

func documentFromRequest(req DocumentRequest) (chunk.Document, error) {
	chunks := make([]chunk.Chunk, 0, len(req.Chunks))
	for i, cr := range req.Chunks {
		vectors := cr.Vectors
		if len(cr.Embedding) > 0 {
			if vectors == nil {
				vectors = make(map[string][]float32, 1)
			}
			if _, ok := vectors[domcol.DefaultVector]; ok {
				return chunk.Document{}, fmt.Errorf("chunk %d: embedding and vectors.%s are both set",
					i, domcol.DefaultVector)
			}
			vectors[domcol.DefaultVector] = cr.Embedding
		}
		c, err := chunk.New(cr.ChunkID, cr.Content, cr.HierarchyLevel,
			cr.OriginalSpan[0], cr.OriginalSpan[1], cr.ParentID, vectors)
		if err != nil {
			return chunk.Document{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		chunks = append(chunks, c)
	}
	doc, err := chunk.NewDocument(req.Filename, req.Metadata, chunks)
	if err != nil {
		return chunk.Document{}, fmt.Errorf("document: %w", err)
	}
	return doc, nil
}

func searchResponse(resp *searchuc.Response) SearchResponse {
	out := SearchResponse{
		Documents: make([]DocumentResult, len(resp.Documents)),
		Warnings:  make([]Warning, len(resp.Warnings)),
	}
	for i, g := range resp.Documents {
		chunks := make([]ChunkResult, len(g.Hits))
		for j, h := range g.Hits {
			chunks[j] = hitToResponse(h)
		}
		meta := g.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		out.Documents[i] = DocumentResult{Filename: g.Filename, DocumentMetadata: meta, Chunks: chunks}
	}
	for i, w := range resp.Warnings {
		out.Warnings[i] = Warning{Code: w.Code, ChunkID: w.ChunkID, Message: w.Message}
	}
	return out
}

func hitToResponse(h result.Hit) ChunkResult {
	c := h.Chunk()
	start, end := c.Span()
	cr := ChunkResult{
		ChunkID:        c.ID(),
		Content:        c.Content(),
		OriginalSpan:   [2]int{start, end},
		HierarchyLevel: c.Level(),
		Distance:       h.Distance(),
		Role:           string(h.Role()),
	}
	if p := c.ParentID(); p != "" {
		cr.ParentID = &p
	}
	// at most one vector survives the search
	for _, v := range c.Vectors() {
		cr.Embedding = v
	}
	return cr
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
