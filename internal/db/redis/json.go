package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/chunkdex/internal/db"
)

// JSONSet stores a JSON document at the given key and path.
func (s *Store) JSONSet(ctx context.Context, key, path string, data []byte) error {
	if err := s.do(ctx, jsonSetCmd(s.b(), key, path, data)).Error(); err != nil {
		return &db.Error{Op: db.OpJSONSet, Key: key, Err: err}
	}
	return nil
}

// JSONSetMulti stores several JSON documents in a single DoMulti round-trip.
func (s *Store) JSONSetMulti(ctx context.Context, items []db.JSONSetItem) error {
	if len(items) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(items))
	for i, item := range items {
		cmds[i] = jsonSetCmd(s.b(), item.Key, item.Path, item.Data)
	}

	for i, res := range s.doMulti(ctx, cmds) {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpJSONSet, Key: items[i].Key, Err: err}
		}
	}
	return nil
}

// JSONGet retrieves a JSON document by key and optional paths.
func (s *Store) JSONGet(ctx context.Context, key string, paths ...string) ([]byte, error) {
	raw, err := s.do(ctx, jsonGetCmd(s.b(), key, paths...)).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Key: key, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// JSONGetMulti fetches one path from several documents in a single DoMulti
// round-trip. Entries for missing keys are nil.
func (s *Store) JSONGetMulti(ctx context.Context, keys []string, path string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, len(keys))
	for i, key := range keys {
		cmds[i] = jsonGetCmd(s.b(), key, path)
	}

	out := make([][]byte, len(keys))
	for i, res := range s.doMulti(ctx, cmds) {
		raw, err := res.ToString()
		if err != nil {
			if rueidis.IsRedisNil(err) {
				continue
			}
			return nil, &db.Error{Op: db.OpJSONGet, Key: keys[i], Err: err}
		}
		if raw != "" {
			out[i] = []byte(raw)
		}
	}
	return out, nil
}

func jsonSetCmd(b rueidis.Builder, key, path string, data []byte) rueidis.Completed {
	return b.Arbitrary("JSON.SET").Keys(key).Args(path, string(data)).Build()
}

func jsonGetCmd(b rueidis.Builder, key string, paths ...string) rueidis.Completed {
	return b.Arbitrary("JSON.GET").Keys(key).Args(paths...).Build()
}
