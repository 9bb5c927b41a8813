package document

import (
	"context"

	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
)

// Repository defines the storage contract for chunks.
type Repository interface {
	Upsert(ctx context.Context, collection, tenant string, chunks []chunk.Chunk) (inserted, replaced int, err error)
}

// CollectionReader reads collections and tenants for write validation.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
	TenantExists(ctx context.Context, collection, tenant string) (bool, error)
}

// DepthInvalidator forgets cached hierarchy depths after a write.
type DepthInvalidator interface {
	Invalidate(collection, tenant string)
}
