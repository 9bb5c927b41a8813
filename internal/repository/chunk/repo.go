package chunk

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/db"
	domchunk "github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
)

// store is the consumer interface for chunk documents (ISP).
type store interface {
	JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error
	JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error)
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
}

// Repo implements usecase/document.Repository and the parent lookup of
// usecase/search.
type Repo struct {
	store store
	keys  layout.Keyspace
}

// New creates a chunk repository.
func New(s store, keys layout.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Upsert writes chunks in the given order with one pipelined JSON.SET per
// chunk. It reports how many distinct ids were new and how many replaced a
// stored chunk; a repeated id is counted once and its last write wins.
func (r *Repo) Upsert(
	ctx context.Context, collection, tenant string, chunks []domchunk.Chunk,
) (inserted, replaced int, err error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}
	p := r.keys.Partition(collection, tenant)

	keys := make([]string, 0, len(chunks))
	seen := make(map[string]bool, len(chunks))
	items := make([]db.JSONSetItem, len(chunks))
	for i, c := range chunks {
		data, err := layout.EncodeChunk(c)
		if err != nil {
			return 0, 0, err
		}
		key := p.ChunkKey(c.ID())
		items[i] = db.JSONSetItem{Key: key, Path: "$", Data: data}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	exists, err := r.store.ExistsMulti(ctx, keys)
	if err != nil {
		return 0, 0, fmt.Errorf("check exists %s: %w", p, err)
	}

	if err := r.store.JSONSetMulti(ctx, items); err != nil {
		return 0, 0, fmt.Errorf("json.set %s: %w", p, err)
	}

	for _, ok := range exists {
		if ok {
			replaced++
		} else {
			inserted++
		}
	}
	return inserted, replaced, nil
}

// Parents fetches chunks by id in one pipelined round-trip. Ids without a
// stored chunk are absent from the result.
func (r *Repo) Parents(
	ctx context.Context, collection, tenant string, ids []string,
) (map[string]domchunk.Chunk, error) {
	if len(ids) == 0 {
		return map[string]domchunk.Chunk{}, nil
	}
	p := r.keys.Partition(collection, tenant)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = p.ChunkKey(id)
	}

	raws, err := r.store.JSONGetMulti(ctx, keys, "$")
	if err != nil {
		return nil, fmt.Errorf("json.get parents %s: %w", p, err)
	}

	out := make(map[string]domchunk.Chunk, len(ids))
	for i, raw := range raws {
		if raw == nil {
			continue
		}
		c, err := layout.DecodeChunk(raw)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", ids[i], err)
		}
		out[ids[i]] = c
	}
	return out, nil
}
