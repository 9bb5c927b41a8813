package search

import (
	"context"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/query"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
)

// Executor runs compiled queries against the backend.
type Executor interface {
	Search(ctx context.Context, col domcol.Collection, q *query.Compiled) ([]result.Hit, error)
	MaxDepth(ctx context.Context, collection, tenant string) (int, error)
}

// CollectionReader reads collections and tenants for request validation.
type CollectionReader interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
	TenantExists(ctx context.Context, collection, tenant string) (bool, error)
}

// ParentReader fetches chunks by id within one partition.
type ParentReader interface {
	Parents(ctx context.Context, collection, tenant string, ids []string) (map[string]chunk.Chunk, error)
}

// Embedder vectorizes query text for the text variant.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
