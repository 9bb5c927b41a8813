package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
)

// store is the consumer interface for collections (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/collection.Repository.
type Repo struct {
	store store
	keys  layout.Keyspace
	hnsw  layout.HNSWConfig
}

// New creates a collection repository.
func New(s store, keys layout.Keyspace) *Repo {
	return &Repo{store: s, keys: keys, hnsw: layout.HNSWConfig{M: 16, EFConstruct: 200}}
}

// WithHNSW configures HNSW index parameters.
func (r *Repo) WithHNSW(cfg layout.HNSWConfig) *Repo {
	if cfg.M > 0 {
		r.hnsw.M = cfg.M
	}
	if cfg.EFConstruct > 0 {
		r.hnsw.EFConstruct = cfg.EFConstruct
	}
	return r
}

// Create stores a collection: HSET metadata then, for single-tenant
// collections, FT.CREATE the index. On FT.CREATE failure the HSET is rolled
// back via DEL. Multi-tenant collections get their indexes per tenant.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	name := col.Name()
	metaKey := r.keys.CollectionMeta(name)

	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	// Prepare index definition and hash data before writes
	var indexDef *db.IndexDefinition
	if !col.MultiTenancy() {
		indexDef, err = r.definition(ctx, col, "")
		if err != nil {
			return err
		}
	}
	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}

	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", name, err)
	}

	if indexDef == nil {
		return nil
	}
	if err := r.store.CreateIndex(ctx, indexDef); err != nil {
		cleanupErr := r.store.Del(ctx, metaKey)
		if errors.Is(err, db.ErrIndexExists) {
			err = fmt.Errorf("index %s: %w", indexDef.Name, domain.ErrAlreadyExists)
		}
		return errors.Join(err, cleanupErr)
	}

	return nil
}

// Get retrieves a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, r.keys.CollectionMeta(name))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, domain.ErrNotFound
	}

	col, err := collectionFromHash(m)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("parse collection %s: %w", name, err)
	}
	return col, nil
}

// CreateTenant creates the index of a tenant partition.
func (r *Repo) CreateTenant(ctx context.Context, col domcol.Collection, tenant string) error {
	def, err := r.definition(ctx, col, tenant)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("create tenant %s/%s: %w", col.Name(), tenant, err)
	}
	return nil
}

// TenantExists reports whether the tenant partition has an index.
func (r *Repo) TenantExists(ctx context.Context, collection, tenant string) (bool, error) {
	p := r.keys.Partition(collection, tenant)
	ok, err := r.store.IndexExists(ctx, p.Index())
	if err != nil {
		return false, fmt.Errorf("check tenant %s: %w", p, err)
	}
	return ok, nil
}

func (r *Repo) definition(ctx context.Context, col domcol.Collection, tenant string) (*db.IndexDefinition, error) {
	def, err := layout.Definition(
		col, r.keys.Partition(col.Name(), tenant), r.store.SupportsTextSearch(ctx), r.hnsw,
	)
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return def, nil
}
