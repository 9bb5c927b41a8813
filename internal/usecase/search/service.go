package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/parent"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/query"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
	"github.com/kailas-cloud/chunkdex/internal/logger"
	"github.com/kailas-cloud/chunkdex/internal/metrics"
)

// Invocation variants, used as metric labels.
const (
	VariantRequest = "request"
	VariantVector  = "vector"
	VariantText    = "text"
)

// DefaultMaxCandidates bounds KNN when top is unbounded.
const DefaultMaxCandidates = 1000

// Response is the grouped outcome of one search.
type Response struct {
	Documents []result.Group
	Warnings  []result.Warning
}

// Hits returns every hit across documents in response order.
func (r *Response) Hits() []result.Hit {
	var out []result.Hit
	for _, d := range r.Documents {
		out = append(out, d.Hits...)
	}
	return out
}

// Service resolves, validates and runs hierarchical chunk searches.
type Service struct {
	resolver      *request.Resolver
	exec          Executor
	colls         CollectionReader
	parents       ParentReader
	embed         Embedder
	depths        *DepthCache
	maxCandidates int
}

// Option configures a Service.
type Option func(*Service)

// WithEmbedder enables the text variant.
func WithEmbedder(e Embedder) Option {
	return func(s *Service) { s.embed = e }
}

// WithDepthCache caches depth probes across requests.
func WithDepthCache(c *DepthCache) Option {
	return func(s *Service) { s.depths = c }
}

// WithMaxCandidates sets the KNN size used when top is unbounded.
func WithMaxCandidates(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCandidates = n
		}
	}
}

// New creates a search service.
func New(
	resolver *request.Resolver, exec Executor, colls CollectionReader, parents ParentReader, opts ...Option,
) *Service {
	s := &Service{
		resolver:      resolver,
		exec:          exec,
		colls:         colls,
		parents:       parents,
		maxCandidates: DefaultMaxCandidates,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SearchRequest runs a JSON request payload. A bare JSON array is taken as
// the query embedding with every other parameter from config.
func (s *Service) SearchRequest(ctx context.Context, payload []byte) (*Response, error) {
	params, err := request.ParseParams(payload)
	if err != nil {
		s.observe(VariantRequest, time.Now(), err)
		return nil, err //nolint:wrapcheck // validation error carries the field
	}
	return s.run(ctx, VariantRequest, params)
}

// SearchText embeds text and searches with config parameters only.
func (s *Service) SearchText(ctx context.Context, text string) (*Response, error) {
	start := time.Now()
	if s.embed == nil {
		err := fmt.Errorf("%w: text search is not configured", domain.ErrEmbeddingProviderError)
		s.observe(VariantText, start, err)
		return nil, err
	}
	emb, err := s.embed.Embed(ctx, text)
	if err != nil {
		err = fmt.Errorf("vectorize query: %w", err)
		s.observe(VariantText, start, err)
		return nil, err
	}
	return s.run(ctx, VariantText, request.Params{}.WithEmbedding(emb.Embedding))
}

// Search runs params with vector as the query embedding. A nil vector keeps
// the embedding carried by params.
func (s *Service) Search(ctx context.Context, params request.Params, vector []float32) (*Response, error) {
	if vector != nil {
		params = params.WithEmbedding(vector)
	}
	return s.run(ctx, VariantVector, params)
}

func (s *Service) run(ctx context.Context, variant string, params request.Params) (*Response, error) {
	start := time.Now()
	resp, err := s.search(ctx, params)
	s.observe(variant, start, err)
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	for _, w := range resp.Warnings {
		metrics.SearchWarningsTotal.WithLabelValues(w.Code).Inc()
		log.Warn("Search warning",
			zap.String("code", w.Code),
			zap.String("chunk_id", w.ChunkID),
			zap.String("message", w.Message),
		)
	}
	return resp, nil
}

func (s *Service) search(ctx context.Context, params request.Params) (*Response, error) {
	req, err := s.resolver.Resolve(params)
	if err != nil {
		return nil, fmt.Errorf("resolve parameters: %w", err)
	}

	col, err := s.validate(ctx, &req)
	if err != nil {
		return nil, err
	}
	ctx = logger.With(ctx, zap.String("collection", col.Name()), zap.String("tenant", req.Tenant()))

	var warnings []result.Warning
	probe := s.depths.Probe(s.exec, req.Collection(), req.Tenant())
	levels, err := level.Resolve(ctx, req.OperationLevel(), probe)
	switch {
	case errors.Is(err, domain.ErrBackendLookup):
		warnings = append(warnings, result.Warning{
			Code:    result.WarnDepthProbe,
			Message: fmt.Sprintf("searching all levels: %v", err),
		})
		levels = level.All
	case err != nil:
		return nil, fmt.Errorf("resolve hierarchy level: %w", err)
	}

	q, err := query.Compile(req, levels, s.maxCandidates)
	if err != nil {
		return nil, fmt.Errorf("compile query: %w", err)
	}
	logger.FromContext(ctx).Debug("Executing search", zap.Stringer("query", &q))

	hits, err := s.exec.Search(ctx, col, &q)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	if h, ok := req.Horizon(); ok {
		hits = withinHorizon(hits, h)
	}
	hits = autoLimit(hits, req.AutoLimit())

	lookup := &partitionLookup{reader: s.parents, collection: req.Collection(), tenant: req.Tenant()}
	if req.IncludeVector() {
		lookup.keepVector = req.VectorName()
	}
	hits, pw := parent.Expand(ctx, hits, req.ParentStrategy(), lookup, parent.Options{Dedupe: req.DedupeParents()})
	warnings = append(warnings, pw...)

	metrics.SearchHits.Observe(float64(len(hits)))
	return &Response{Documents: result.GroupByFilename(hits), Warnings: warnings}, nil
}

// validate checks the resolved request against the stored schema. Every
// check runs before the backend search.
func (s *Service) validate(ctx context.Context, req *request.Request) (domcol.Collection, error) {
	col, err := s.colls.Get(ctx, req.Collection())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domcol.Collection{}, domain.NewValidationError(request.KeyCollection,
				"%q does not exist", req.Collection())
		}
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}

	if err := s.validateTenant(ctx, col, req.Tenant()); err != nil {
		return domcol.Collection{}, err
	}

	vec, ok := col.Vector(req.VectorName())
	if !ok {
		return domcol.Collection{}, domain.NewValidationError(request.KeyVectorName,
			"collection %q has no vector %q", col.Name(), req.VectorName())
	}
	switch m := req.Method(); {
	case m == method.Hamming || m == method.Manhattan:
		return domcol.Collection{}, domain.NewValidationError(request.KeyMethod,
			"%q is not supported by this backend", m)
	case m != vec.Method():
		return domcol.Collection{}, domain.NewValidationError(request.KeyMethod,
			"vector %q uses %q, got %q", vec.Name(), vec.Method(), m)
	}
	if n := len(req.QueryEmbedding()); n > 0 && n != vec.Dim() {
		return domcol.Collection{}, domain.NewValidationError(request.KeyQueryEmbedding,
			"has %d dimensions, vector %q expects %d", n, vec.Name(), vec.Dim())
	}

	if err := req.Filter().Validate(col); err != nil {
		return domcol.Collection{}, fmt.Errorf("filter schema: %w", err)
	}
	return col, nil
}

func (s *Service) validateTenant(ctx context.Context, col domcol.Collection, tenant string) error {
	switch {
	case col.MultiTenancy() && tenant == "":
		return domain.NewValidationError(request.KeyTenant,
			"collection %q is multi-tenant and needs a tenant", col.Name())
	case !col.MultiTenancy() && tenant != "":
		return domain.NewValidationError(request.KeyTenant,
			"collection %q is not multi-tenant", col.Name())
	case tenant == "":
		return nil
	}

	ok, err := s.colls.TenantExists(ctx, col.Name(), tenant)
	if err != nil {
		return fmt.Errorf("check tenant: %w", err)
	}
	if !ok {
		return domain.NewValidationError(request.KeyTenant,
			"tenant %q does not exist in %q", tenant, col.Name())
	}
	return nil
}

func (s *Service) observe(variant string, start time.Time, err error) {
	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		status = "invalid"
	default:
		status = "error"
	}
	metrics.SearchRequestsTotal.WithLabelValues(variant, status).Inc()
	metrics.SearchDuration.WithLabelValues(variant).Observe(time.Since(start).Seconds())
}

// partitionLookup binds a ParentReader to one collection and tenant.
// Parents carry at most keepVector, like matched hits.
type partitionLookup struct {
	reader     ParentReader
	collection string
	tenant     string
	keepVector string
}

func (l *partitionLookup) Parents(ctx context.Context, ids []string) (map[string]chunk.Chunk, error) {
	if l.reader == nil {
		return nil, fmt.Errorf("%w: no parent reader", domain.ErrBackendLookup)
	}
	m, err := l.reader.Parents(ctx, l.collection, l.tenant, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackendLookup, err)
	}
	for id, c := range m {
		m[id] = c.OnlyVector(l.keepVector)
	}
	return m, nil
}
