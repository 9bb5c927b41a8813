package valkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/db/redis"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// scanBatch bounds the keys fetched per pipelined JSON.GET round-trip.
const scanBatch = 256

// Store implements db.Store for Valkey with valkey-search and valkey-json.
// It shares the wire protocol with Redis and differs where valkey-search
// lacks features: no TEXT fields and no FT.AGGREGATE.
type Store struct {
	*redis.Store
}

// NewStore creates a Valkey store via rueidis.
func NewStore(cfg redis.Config) (*Store, error) {
	s, err := redis.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Store: s}, nil
}

// SupportsTextSearch returns false: valkey-search does not index TEXT fields.
func (s *Store) SupportsTextSearch(_ context.Context) bool {
	return false
}

// MaxNumeric scans the documents under q.KeyPrefix and reads q.JSONPath
// from each, since valkey-search has no FT.AGGREGATE.
func (s *Store) MaxNumeric(ctx context.Context, q *db.MaxQuery) (float64, bool, error) {
	if q.KeyPrefix == "" || q.JSONPath == "" {
		return 0, false, errors.New("key prefix and json path are required")
	}

	keys, err := s.Scan(ctx, q.KeyPrefix+"*")
	if err != nil {
		return 0, false, fmt.Errorf("scan %s: %w", q.KeyPrefix, err)
	}

	var best float64
	found := false
	for start := 0; start < len(keys); start += scanBatch {
		end := min(start+scanBatch, len(keys))
		docs, err := s.JSONGetMulti(ctx, keys[start:end], q.JSONPath)
		if err != nil {
			return 0, false, err
		}
		for i, raw := range docs {
			if raw == nil {
				continue // deleted between SCAN and GET
			}
			var vals []float64
			if err := json.Unmarshal(raw, &vals); err != nil {
				return 0, false, fmt.Errorf("key %s: parse %s: %w", keys[start+i], q.JSONPath, err)
			}
			for _, v := range vals {
				if !found || v > best {
					best, found = v, true
				}
			}
		}
	}
	return best, found, nil
}
