package parent

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
)

// Strategy says what to do with the parent of each hit.
type Strategy string

// Parent strategies.
const (
	// None returns hits as matched.
	None Strategy = "none"
	// Include adds each hit's parent right after it.
	Include Strategy = "include"
	// Replace substitutes each hit with its parent.
	Replace Strategy = "replace"
)

// IsValid checks if the strategy is one of the supported values.
func (s Strategy) IsValid() bool {
	return s == None || s == Include || s == Replace
}

// Lookup fetches chunks by id in one round trip. Missing ids are absent
// from the returned map.
type Lookup interface {
	Parents(ctx context.Context, ids []string) (map[string]chunk.Chunk, error)
}

// Options tune Expand.
type Options struct {
	// Dedupe drops every repeated chunk id after its first occurrence.
	Dedupe bool
}

// Expand applies strategy to hits. Only the immediate parent is used.
// A hit whose parent cannot be fetched is kept unchanged and reported once
// in the returned warnings.
func Expand(
	ctx context.Context, hits []result.Hit, strategy Strategy, lookup Lookup, opts Options,
) ([]result.Hit, []result.Warning) {
	if strategy == None || strategy == "" || len(hits) == 0 {
		return hits, nil
	}

	ids := parentIDs(hits)
	if len(ids) == 0 {
		return hits, nil
	}

	var (
		parents  map[string]chunk.Chunk
		fetchErr error
	)
	if lookup == nil {
		fetchErr = fmt.Errorf("no parent lookup configured")
	} else {
		parents, fetchErr = lookup.Parents(ctx, ids)
	}

	var warnings []result.Warning
	out := make([]result.Hit, 0, len(hits)*2)
	seen := make(map[string]bool, len(hits)*2)
	emit := func(h result.Hit) {
		if opts.Dedupe {
			if seen[h.ID()] {
				return
			}
			seen[h.ID()] = true
		}
		out = append(out, h)
	}

	for _, h := range hits {
		pid := h.Chunk().ParentID()
		if pid == "" {
			emit(h)
			continue
		}
		if fetchErr != nil {
			warnings = append(warnings, result.Warning{
				Code:    result.WarnParentLookup,
				ChunkID: h.ID(),
				Message: fmt.Sprintf("parent %s: %v", pid, fetchErr),
			})
			emit(h)
			continue
		}
		p, ok := parents[pid]
		if !ok {
			warnings = append(warnings, result.Warning{
				Code:    result.WarnParentLookup,
				ChunkID: h.ID(),
				Message: fmt.Sprintf("parent %s not found", pid),
			})
			emit(h)
			continue
		}

		switch strategy {
		case Include:
			emit(h)
			emit(h.WithChunk(p, result.RoleParent))
		case Replace:
			emit(h.WithChunk(p, result.RoleParent))
		default:
			emit(h)
		}
	}
	return out, warnings
}

func parentIDs(hits []result.Hit) []string {
	seen := make(map[string]bool, len(hits))
	var ids []string
	for _, h := range hits {
		pid := h.Chunk().ParentID()
		if pid == "" || seen[pid] {
			continue
		}
		seen[pid] = true
		ids = append(ids, pid)
	}
	return ids
}
