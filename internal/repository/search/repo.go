package search

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/query"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	MaxNumeric(ctx context.Context, q *db.MaxQuery) (float64, bool, error)
	SupportsTextSearch(ctx context.Context) bool
}

// Repo implements usecase/search.Executor.
type Repo struct {
	store store
	keys  layout.Keyspace
}

// New creates a search repository.
func New(s store, keys layout.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Search runs the compiled query against the partition it names. Hits come
// back ordered by ascending distance and carry only the searched vector when
// the request asks for it.
func (r *Repo) Search(ctx context.Context, col domcol.Collection, q *query.Compiled) ([]result.Hit, error) {
	req := q.Request()
	p := r.keys.Partition(req.Collection(), req.Tenant())

	knn := &db.KNNQuery{
		IndexName:    p.Index(),
		Filters:      q.Filter(),
		Levels:       q.Levels(),
		LevelField:   field.HierarchyLevel,
		FieldTypes:   layout.FieldTypes(col, r.store.SupportsTextSearch(ctx)),
		VectorField:  layout.VectorAlias(req.VectorName()),
		Vector:       q.Vector(),
		K:            q.K(),
		ReturnFields: []string{"$"},
	}

	sr, err := r.store.SearchKNN(ctx, knn)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("index %s: %w", p.Index(), domain.ErrNotFound)
		}
		return nil, fmt.Errorf("search knn %s: %w", p, err)
	}

	return parseHits(sr, p, req.IncludeVector(), req.VectorName())
}

// MaxDepth returns the deepest hierarchy level stored in a partition, 0 when
// the partition is empty.
func (r *Repo) MaxDepth(ctx context.Context, collection, tenant string) (int, error) {
	p := r.keys.Partition(collection, tenant)
	v, ok, err := r.store.MaxNumeric(ctx, &db.MaxQuery{
		IndexName: p.Index(),
		KeyPrefix: p.ChunkPrefix(),
		Field:     field.HierarchyLevel,
		JSONPath:  "$." + field.HierarchyLevel,
	})
	if err != nil {
		return 0, fmt.Errorf("max %s %s: %w", field.HierarchyLevel, p, err)
	}
	if !ok {
		return 0, nil
	}
	return int(v), nil
}

func parseHits(sr *db.SearchResult, p layout.Partition, includeVector bool, vectorName string) ([]result.Hit, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	keep := ""
	if includeVector {
		keep = vectorName
	}

	hits := make([]result.Hit, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		raw, ok := entry.Fields["$"]
		if !ok {
			return nil, fmt.Errorf("entry %s: missing document", entry.Key)
		}
		c, err := layout.DecodeChunk([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", p.ChunkID(entry.Key), err)
		}
		hits = append(hits, result.New(c.OnlyVector(keep), entry.Distance))
	}
	return hits, nil
}
