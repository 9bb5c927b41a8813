package request

import (
	"encoding/json"

	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/parent"
)

// DefaultVectorName is the named vector searched when none is given.
const DefaultVectorName = "default"

// Request is a fully resolved search request. Every field is either set or
// explicitly unbounded; nothing is looked up again downstream.
type Request struct {
	collection     string
	tenant         string
	vectorName     string
	includeVector  bool
	method         method.Method
	parentStrategy parent.Strategy
	top            int
	horizon        *float64
	operationLevel *int
	autoLimit      int
	dedupeParents  bool
	filter         filter.Expression
	queryEmbedding []float32
	extra          map[string]json.RawMessage
}

// Collection returns the target collection.
func (r *Request) Collection() string { return r.collection }

// Tenant returns the tenant partition, empty when none.
func (r *Request) Tenant() string { return r.tenant }

// VectorName returns the named vector to search.
func (r *Request) VectorName() string { return r.vectorName }

// IncludeVector reports whether hits carry the searched vector.
func (r *Request) IncludeVector() bool { return r.includeVector }

// Method returns the distance method.
func (r *Request) Method() method.Method { return r.method }

// ParentStrategy returns the hierarchy navigation strategy.
func (r *Request) ParentStrategy() parent.Strategy { return r.parentStrategy }

// Top returns the result limit; false means unbounded.
func (r *Request) Top() (int, bool) { return r.top, r.top > 0 }

// Horizon returns the maximum distance; false means unbounded.
func (r *Request) Horizon() (float64, bool) {
	if r.horizon == nil {
		return 0, false
	}
	return *r.horizon, true
}

// OperationLevel returns the requested hierarchy level, nil when absent.
// It may be negative until resolved against the stored depth.
func (r *Request) OperationLevel() *int {
	if r.operationLevel == nil {
		return nil
	}
	n := *r.operationLevel
	return &n
}

// AutoLimit returns the number of distance groups to keep, 0 when off.
func (r *Request) AutoLimit() int { return r.autoLimit }

// DedupeParents reports whether parent expansion drops repeated chunks.
func (r *Request) DedupeParents() bool { return r.dedupeParents }

// Filter returns the compiled property filter.
func (r *Request) Filter() filter.Expression { return r.filter }

// QueryEmbedding returns the query vector, nil until set.
func (r *Request) QueryEmbedding() []float32 { return r.queryEmbedding }

// Extra returns runtime keys the resolver did not recognize.
func (r *Request) Extra() map[string]json.RawMessage { return r.extra }

// WithQueryEmbedding returns a copy carrying v as the query vector.
func (r Request) WithQueryEmbedding(v []float32) Request {
	r.queryEmbedding = v
	return r
}
