package request

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/parent"
)

// Resolver merges runtime parameters over configured defaults. It holds no
// mutable state and never talks to the backend.
type Resolver struct {
	defaults Params
}

// NewResolver creates a Resolver over the config parameters section.
func NewResolver(defaults Params) *Resolver {
	return &Resolver{defaults: defaults.Clone()}
}

// Default returns the configured default of a parameter.
func (r *Resolver) Default(name string) (any, bool) { return r.defaults.Get(name) }

// Validate resolves the defaults on their own so bad values surface before
// the first request. A missing default collection is allowed.
func (r *Resolver) Validate() error {
	var runtime Params
	if v, ok := r.defaults.Get(KeyCollection); !ok || v == "" {
		runtime = runtime.With(KeyCollection, "default")
	}
	_, err := r.Resolve(runtime)
	return err
}

// Resolve applies runtime, then config, then built-in defaults to every
// field and compiles the filters. Negative operation levels are kept as
// given; they need the stored depth to resolve.
func (r *Resolver) Resolve(runtime Params) (Request, error) {
	pick := func(name string) (any, bool) {
		if v, ok := runtime.Get(name); ok {
			return v, true
		}
		return r.defaults.Get(name)
	}

	req := Request{
		vectorName:     DefaultVectorName,
		method:         method.Default(),
		parentStrategy: parent.None,
		queryEmbedding: runtime.QueryEmbedding(),
		extra:          runtime.Extra(),
	}

	var err error
	if v, ok := pick(KeyCollection); ok {
		if req.collection, err = asString(KeyCollection, v); err != nil {
			return Request{}, err
		}
	}
	if req.collection == "" {
		return Request{}, domain.NewValidationError(KeyCollection, "is required")
	}
	if v, ok := pick(KeyTenant); ok {
		if req.tenant, err = asString(KeyTenant, v); err != nil {
			return Request{}, err
		}
	}
	if v, ok := pick(KeyVectorName); ok {
		name, err := asString(KeyVectorName, v)
		if err != nil {
			return Request{}, err
		}
		if name != "" {
			req.vectorName = name
		}
	}
	if v, ok := pick(KeyIncludeVector); ok {
		if req.includeVector, err = asBool(KeyIncludeVector, v); err != nil {
			return Request{}, err
		}
	}
	if v, ok := pick(KeyMethod); ok {
		s, err := asString(KeyMethod, v)
		if err != nil {
			return Request{}, err
		}
		m := method.Method(s)
		if !m.IsValid() {
			return Request{}, domain.NewValidationError(KeyMethod,
				"%q is not one of cosine, dot, l2-squared, hamming, manhattan", s)
		}
		req.method = m
	}
	if v, ok := pick(KeyParentStrategy); ok {
		s, err := asString(KeyParentStrategy, v)
		if err != nil {
			return Request{}, err
		}
		ps := parent.Strategy(s)
		if !ps.IsValid() {
			return Request{}, domain.NewValidationError(KeyParentStrategy,
				"%q is not one of include, replace, none", s)
		}
		req.parentStrategy = ps
	}
	if v, ok := pick(KeyTop); ok {
		if req.top, err = asPositiveInt(KeyTop, v); err != nil {
			return Request{}, err
		}
	}
	if v, ok := pick(KeyHorizon); ok {
		h, err := asFloat(KeyHorizon, v)
		if err != nil {
			return Request{}, err
		}
		if h < 0 {
			return Request{}, domain.NewValidationError(KeyHorizon, "must be non-negative, got %v", h)
		}
		req.horizon = &h
	}
	if v, ok := pick(KeyOperationLevel); ok {
		n, err := asInt(KeyOperationLevel, v)
		if err != nil {
			return Request{}, err
		}
		req.operationLevel = &n
	}
	if v, ok := pick(KeyAutoLimit); ok {
		if req.autoLimit, err = asPositiveInt(KeyAutoLimit, v); err != nil {
			return Request{}, err
		}
	}
	if v, ok := pick(KeyDedupeParents); ok {
		if req.dedupeParents, err = asBool(KeyDedupeParents, v); err != nil {
			return Request{}, err
		}
	}

	all := runtime.HavingAll()
	if all == nil {
		all = r.defaults.HavingAll()
	}
	anyOf := runtime.HavingAny()
	if anyOf == nil {
		anyOf = r.defaults.HavingAny()
	}
	if req.filter, err = filter.Compile(all, anyOf, nil); err != nil {
		return Request{}, err
	}

	if req.queryEmbedding != nil && len(req.queryEmbedding) == 0 {
		return Request{}, domain.NewValidationError(KeyQueryEmbedding, "must not be empty")
	}
	return req, nil
}

func asString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", domain.NewValidationError(field, "must be a string, got %T", v)
	}
	return strings.TrimSpace(s), nil
}

func asBool(field string, v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, domain.NewValidationError(field, "must be a boolean, got %q", t)
		}
		return b, nil
	}
	return false, domain.NewValidationError(field, "must be a boolean, got %T", v)
}

func asFloat(field string, v any) (float64, error) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		x, err := t.Float64()
		if err != nil {
			return 0, domain.NewValidationError(field, "must be a number, got %q", t.String())
		}
		f = x
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, domain.NewValidationError(field, "must be a number, got %q", t)
		}
		f = x
	default:
		return 0, domain.NewValidationError(field, "must be a number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, domain.NewValidationError(field, "must be finite")
	}
	return f, nil
}

func asInt(field string, v any) (int, error) {
	switch t := v.(type) {
	case int:
		return t, nil
	case int64:
		return int(t), nil
	}
	f, err := asFloat(field, v)
	if err != nil {
		return 0, domain.NewValidationError(field, "must be an integer, got %v", v)
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, domain.NewValidationError(field, "must be an integer, got %v", v)
	}
	return int(f), nil
}

func asPositiveInt(field string, v any) (int, error) {
	n, err := asInt(field, v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, domain.NewValidationError(field, "must be positive, got %d", n)
	}
	return n, nil
}
