package health

import "context"

// Store checks backend availability and capabilities.
type Store interface {
	Ping(ctx context.Context) error
	SupportsTextSearch(ctx context.Context) bool
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
