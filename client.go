package chunkdex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/config"
	"github.com/kailas-cloud/chunkdex/internal/db"
	dbRedis "github.com/kailas-cloud/chunkdex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/chunkdex/internal/db/valkey"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
	"github.com/kailas-cloud/chunkdex/internal/metrics"
	chunkrepo "github.com/kailas-cloud/chunkdex/internal/repository/chunk"
	collectionrepo "github.com/kailas-cloud/chunkdex/internal/repository/collection"
	"github.com/kailas-cloud/chunkdex/internal/repository/embcache"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
	searchrepo "github.com/kailas-cloud/chunkdex/internal/repository/search"
	openaiEmb "github.com/kailas-cloud/chunkdex/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/chunkdex/internal/usecase/document"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultKeyPrefix        = "chunkdex:"
	defaultDepthCacheSize   = 256
	defaultDepthCacheTTL    = 30 * time.Second
)

type searcher interface {
	SearchRequest(ctx context.Context, payload []byte) (*searchuc.Response, error)
	SearchText(ctx context.Context, text string) (*searchuc.Response, error)
	Search(ctx context.Context, params request.Params, vector []float32) (*searchuc.Response, error)
}

type collectionManager interface {
	Create(ctx context.Context, spec collectionuc.Spec, idempotent bool) (domcol.Collection, error)
	Get(ctx context.Context, name string) (domcol.Collection, error)
	CreateTenant(ctx context.Context, name, tenant string, idempotent bool) error
	GetOrCreate(ctx context.Context, spec collectionuc.Spec, tenant string) (domcol.Collection, error)
}

type persister interface {
	Persist(ctx context.Context, collection, tenant string, doc chunk.Document) (inserted, replaced int, err error)
}

// Client is the chunkdex entry point. It is safe for concurrent use.
type Client struct {
	store  db.Store
	search searcher
	colls  collectionManager
	docs   persister
	logger *zap.Logger
	obs    *observer
}

// New creates a Client and waits for the database to become ready.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}
	if err := cfg.resolve(); err != nil {
		return nil, err
	}

	defaults := cfg.layerDefaults
	if cfg.defaults != nil {
		p, err := parseDefaults(cfg.defaults)
		if err != nil {
			return nil, err
		}
		defaults = p
	}
	if err := request.NewResolver(defaults).Validate(); err != nil {
		return nil, fmt.Errorf("chunkdex: %w: defaults: %w", domain.ErrConfig, err)
	}

	obs, err := newObserver(cfg.logger, cfg.registry)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.WaitForReady(ctx, cfg.readiness); err != nil {
		store.Close()
		return nil, fmt.Errorf("chunkdex: database not ready: %w", err)
	}

	c := wireClient(store, cfg, defaults)
	c.obs = obs
	return c, nil
}

// resolve fills unset fields from the config file, then from built-in defaults.
func (c *clientConfig) resolve() error {
	if c.configPath != "" {
		layer, err := config.LoadFile(c.configPath)
		if err != nil {
			return fmt.Errorf("chunkdex: %w", err)
		}
		c.fromLayer(layer)
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.driver == "" {
		c.driver = "valkey"
	}
	if len(c.addrs) == 0 {
		return fmt.Errorf("chunkdex: %w: database address required (use WithValkey or WithRedis)", domain.ErrConfig)
	}
	if c.keyPrefix == "" {
		c.keyPrefix = defaultKeyPrefix
	}
	if c.maxCandidates <= 0 {
		c.maxCandidates = searchuc.DefaultMaxCandidates
	}
	if c.depthCache <= 0 {
		c.depthCache = defaultDepthCacheSize
	}
	if c.depthTTL <= 0 {
		c.depthTTL = defaultDepthCacheTTL
	}
	if c.readiness <= 0 {
		c.readiness = defaultReadinessTimeout
	}
	return nil
}

func (c *clientConfig) fromLayer(l *config.Layer) {
	if len(c.addrs) == 0 {
		conn := l.Connection()
		c.driver = l.Database().Driver
		c.addrs = conn.Addrs()
		c.password = l.Database().Password
		c.tls = c.tls || conn.TLS()
	}
	if c.keyPrefix == "" {
		c.keyPrefix = l.KeyPrefix()
	}
	if c.hnswM == 0 && c.hnswEFConstruct == 0 {
		c.hnswM, c.hnswEFConstruct = l.Index().HNSWM, l.Index().HNSWEFConstruct
	}
	c.layerDefaults = l.Parameters()
	s := l.Search()
	if c.maxCandidates == 0 {
		c.maxCandidates = s.MaxCandidates
	}
	if c.depthCache == 0 {
		c.depthCache, c.depthTTL = s.DepthCacheSize, l.DepthCacheTTL()
	}
	if c.readiness == 0 {
		c.readiness = time.Duration(l.Database().ReadinessTimeout) * time.Second
	}
	if e := l.Embedding(); c.embedder == nil && c.openai == nil && e.Model != "" {
		c.openai = &OpenAIConfig{
			APIKey:           e.Provider.APIKey,
			BaseURL:          e.Provider.BaseURL,
			Model:            e.Model,
			Dimensions:       e.Dimensions,
			QueryInstruction: e.QueryInstruction,
			Cache:            e.Cache,
			CacheTTL:         time.Duration(e.CacheTTLSec) * time.Second,
		}
	}
}

// parseDefaults converts WithDefaults input into search parameters. Keys a
// runtime request would not recognize are rejected.
func parseDefaults(m map[string]any) (request.Params, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return request.Params{}, fmt.Errorf("chunkdex: %w: defaults: %w", domain.ErrConfig, err)
	}
	p, err := request.ParseParams(data)
	if err != nil {
		return request.Params{}, fmt.Errorf("chunkdex: %w: defaults: %w", domain.ErrConfig, err)
	}
	if extra := p.Extra(); len(extra) > 0 {
		keys := make([]string, 0, len(extra))
		for k := range extra {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		return request.Params{}, fmt.Errorf("chunkdex: %w: unknown default parameters %v", domain.ErrConfig, keys)
	}
	return p, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	storeCfg := dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password, TLS: cfg.tls}
	switch cfg.driver {
	case "valkey":
		s, err := dbValkey.NewStore(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("chunkdex: create valkey store: %w", err)
		}
		return s, nil
	case "redis":
		s, err := dbRedis.NewStore(storeCfg)
		if err != nil {
			return nil, fmt.Errorf("chunkdex: create redis store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("chunkdex: %w: unknown driver %q", domain.ErrConfig, cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, defaults request.Params) *Client {
	keys := layout.NewKeyspace(cfg.keyPrefix)
	collRepo := collectionrepo.New(store, keys).WithHNSW(layout.HNSWConfig{
		M:           cfg.hnswM,
		EFConstruct: cfg.hnswEFConstruct,
	})
	chunkRepo := chunkrepo.New(store, keys)
	searchRepo := searchrepo.New(store, keys)

	depths := searchuc.NewDepthCache(cfg.depthCache, cfg.depthTTL)
	opts := []searchuc.Option{
		searchuc.WithDepthCache(depths),
		searchuc.WithMaxCandidates(cfg.maxCandidates),
	}
	if e := buildEmbedder(cfg, store, keys.Prefix()); e != nil {
		opts = append(opts, searchuc.WithEmbedder(e))
	}

	return &Client{
		store:  store,
		search: searchuc.New(request.NewResolver(defaults), searchRepo, collRepo, chunkRepo, opts...),
		colls:  collectionuc.New(collRepo),
		docs:   documentuc.New(chunkRepo, collRepo, depths),
		logger: cfg.logger,
	}
}

func buildEmbedder(cfg *clientConfig, store db.Store, keyPrefix string) domain.Embedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	oc := cfg.openai
	if oc == nil || oc.Model == "" {
		return nil
	}

	var e domain.Embedder = openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     oc.APIKey,
		BaseURL:    oc.BaseURL,
		Model:      oc.Model,
		Dimensions: oc.Dimensions,
		Logger:     cfg.logger,
	})
	if oc.Cache {
		e = embcache.New(e, store, embcache.Options{
			KeyPrefix: keyPrefix,
			Model:     oc.Model,
			TTL:       oc.CacheTTL,
		}, metrics.EmbeddingCacheTotal, cfg.logger)
	}
	if oc.QueryInstruction != "" {
		e = domain.NewInstructionEmbedder(e, oc.QueryInstruction)
	}
	return e
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("chunkdex: client is closed")
	}
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CreateCollection creates a collection. An existing collection of the same
// name is an ErrAlreadyExists error.
func (c *Client) CreateCollection(
	ctx context.Context, name string, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	defer func(start time.Time) { c.obs.observe("create_collection", start, err) }(time.Now())

	spec, err := collectionSpec(name, opts)
	if err != nil {
		return CollectionInfo{}, err
	}
	col, err := c.colls.Create(ctx, spec, false)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("create collection: %w", err)
	}
	return fromInternalCollection(col), nil
}

// EnsureCollection returns the named collection, creating it when missing.
// A non-empty tenant is created too.
func (c *Client) EnsureCollection(
	ctx context.Context, name, tenant string, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	defer func(start time.Time) { c.obs.observe("ensure_collection", start, err) }(time.Now())

	spec, err := collectionSpec(name, opts)
	if err != nil {
		return CollectionInfo{}, err
	}
	col, err := c.colls.GetOrCreate(ctx, spec, tenant)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("ensure collection: %w", err)
	}
	return fromInternalCollection(col), nil
}

// GetCollection returns the schema of a collection.
func (c *Client) GetCollection(ctx context.Context, name string) (_ CollectionInfo, err error) {
	defer func(start time.Time) { c.obs.observe("get_collection", start, err) }(time.Now())

	col, err := c.colls.Get(ctx, name)
	if err != nil {
		return CollectionInfo{}, err
	}
	return fromInternalCollection(col), nil
}

// CreateTenant creates a tenant of a multi-tenant collection. Creating an
// existing tenant is not an error.
func (c *Client) CreateTenant(ctx context.Context, collection, tenant string) (err error) {
	defer func(start time.Time) { c.obs.observe("create_tenant", start, err) }(time.Now())

	if err := c.colls.CreateTenant(ctx, collection, tenant, true); err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}
	return nil
}

// Persist writes a chunked document, root level first. Chunks whose id is
// already stored are replaced.
func (c *Client) Persist(
	ctx context.Context, collection, tenant string, doc Document,
) (_ PersistResult, err error) {
	defer func(start time.Time) { c.obs.observe("persist", start, err) }(time.Now())

	d, err := toInternalDocument(doc)
	if err != nil {
		return PersistResult{}, err
	}
	inserted, replaced, err := c.docs.Persist(ctx, collection, tenant, d)
	if err != nil {
		return PersistResult{}, fmt.Errorf("persist %s: %w", doc.Filename, err)
	}
	c.logger.Debug("Persisted document",
		zap.String("collection", collection),
		zap.String("tenant", tenant),
		zap.String("filename", doc.Filename),
		zap.Int("inserted", inserted),
		zap.Int("replaced", replaced),
	)
	return PersistResult{Inserted: inserted, Replaced: replaced}, nil
}
