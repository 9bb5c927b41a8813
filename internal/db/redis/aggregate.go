package redis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/kailas-cloud/chunkdex/internal/db"
)

const maxAlias = "max_value"

// MaxNumeric returns the largest value of a numeric index field via
// FT.AGGREGATE. ok is false when the index holds no documents.
func (s *Store) MaxNumeric(ctx context.Context, q *db.MaxQuery) (float64, bool, error) {
	if q.IndexName == "" || q.Field == "" {
		return 0, false, errors.New("index name and field are required")
	}

	ref := "@" + q.Field
	cmd := s.b().Arbitrary("FT.AGGREGATE").Args(
		q.IndexName, "*",
		"LOAD", "1", ref,
		"GROUPBY", "0",
		"REDUCE", "MAX", "1", ref, "AS", maxAlias,
	).Build()

	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return 0, false, db.ErrIndexNotFound
		}
		return 0, false, &db.Error{Op: db.OpAggregate, Key: q.IndexName, Err: err}
	}

	// [count, [alias, value]]
	if len(raw) < 2 {
		return 0, false, nil
	}
	row, err := raw[1].ToArray()
	if err != nil {
		return 0, false, fmt.Errorf("parse aggregate row: %w", err)
	}
	val, ok := parseFieldPairs(row)[maxAlias]
	if !ok || val == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", maxAlias, err)
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false, nil
	}
	return f, true, nil
}
