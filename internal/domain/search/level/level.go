package level

import (
	"context"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/chunkdex/internal/domain"
)

// DepthProbe reports the maximum hierarchy level currently stored in the
// target collection and tenant.
type DepthProbe interface {
	MaxDepth(ctx context.Context) (int, error)
}

// DepthProbeFunc adapts a function to DepthProbe.
type DepthProbeFunc func(ctx context.Context) (int, error)

// MaxDepth calls f.
func (f DepthProbeFunc) MaxDepth(ctx context.Context) (int, error) { return f(ctx) }

// Selection is the hierarchy restriction of a query: every level, or
// exactly one absolute level.
type Selection struct {
	level int
	set   bool
}

// All selects every hierarchy level.
var All = Selection{}

// Exactly selects one absolute level.
func Exactly(n int) Selection { return Selection{level: n, set: true} }

// IsAll reports whether the selection is unrestricted.
func (s Selection) IsAll() bool { return !s.set }

// Level returns the absolute level and whether one is selected.
func (s Selection) Level() (int, bool) { return s.level, s.set }

func (s Selection) String() string {
	if !s.set {
		return "all"
	}
	return strconv.Itoa(s.level)
}

// Resolve turns a requested operation level into a Selection. Negative
// levels count from the deepest stored level: -1 is the deepest. Only
// negative levels consult probe.
func Resolve(ctx context.Context, requested *int, probe DepthProbe) (Selection, error) {
	if requested == nil {
		return All, nil
	}
	n := *requested
	if n >= 0 {
		return Exactly(n), nil
	}
	if probe == nil {
		return All, fmt.Errorf("%w: no depth probe for operation_level %d", domain.ErrBackendLookup, n)
	}

	maxDepth, err := probe.MaxDepth(ctx)
	if err != nil {
		return All, fmt.Errorf("%w: max hierarchy level: %w", domain.ErrBackendLookup, err)
	}
	abs := maxDepth + n + 1
	if abs < 0 {
		return All, domain.NewValidationError("operation_level",
			"%d is deeper than the stored hierarchy (max level %d)", n, maxDepth)
	}
	return Exactly(abs), nil
}
