package request

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
)

// Parameter names shared by the runtime payload and the config parameters section.
const (
	KeyCollection     = "collection"
	KeyTenant         = "tenant"
	KeyVectorName     = "vector_name"
	KeyIncludeVector  = "include_vector"
	KeyMethod         = "method"
	KeyParentStrategy = "parent_strategy"
	KeyTop            = "top"
	KeyHorizon        = "horizon"
	KeyOperationLevel = "operation_level"
	KeyAutoLimit      = "auto_limit"
	KeyDedupeParents  = "dedupe_parents"
	KeyHavingAll      = "having_all"
	KeyHavingAny      = "having_any"
	KeyQueryEmbedding = "query_embedding"
)

var scalarKeys = map[string]bool{
	KeyCollection:     true,
	KeyTenant:         true,
	KeyVectorName:     true,
	KeyIncludeVector:  true,
	KeyMethod:         true,
	KeyParentStrategy: true,
	KeyTop:            true,
	KeyHorizon:        true,
	KeyOperationLevel: true,
	KeyAutoLimit:      true,
	KeyDedupeParents:  true,
}

// Params is one unresolved parameter source. A key is present only when
// the source set it to a non-null value.
type Params struct {
	values    map[string]any
	havingAll *filter.Source
	havingAny *filter.Source
	embedding []float32
	extra     map[string]json.RawMessage
}

// ParseParams decodes a runtime JSON payload. A bare JSON array is taken
// as the query embedding. Unknown keys are kept as raw pass-through values.
func ParseParams(data []byte) (Params, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return Params{}, domain.NewValidationError("", "empty request")
	}
	if data[0] == '[' {
		var vec []float32
		if err := json.Unmarshal(data, &vec); err != nil {
			return Params{}, domain.NewValidationError(KeyQueryEmbedding, "must be a list of numbers: %v", err)
		}
		return Params{embedding: vec}, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Params{}, domain.NewValidationError("", "malformed request: %v", err)
	}

	var p Params
	for key, msg := range raw {
		if isNull(msg) {
			continue
		}
		switch {
		case key == KeyHavingAll || key == KeyHavingAny:
			var src filter.Source
			if err := json.Unmarshal(msg, &src); err != nil {
				return Params{}, domain.NewValidationError(key, "%v", err)
			}
			if key == KeyHavingAll {
				p.havingAll = &src
			} else {
				p.havingAny = &src
			}
		case key == KeyQueryEmbedding:
			if err := json.Unmarshal(msg, &p.embedding); err != nil {
				return Params{}, domain.NewValidationError(key, "must be a list of numbers: %v", err)
			}
		case scalarKeys[key]:
			dec := json.NewDecoder(bytes.NewReader(msg))
			dec.UseNumber()
			var v any
			if err := dec.Decode(&v); err != nil {
				return Params{}, domain.NewValidationError(key, "%v", err)
			}
			p = p.With(key, v)
		default:
			if p.extra == nil {
				p.extra = make(map[string]json.RawMessage)
			}
			p.extra[key] = append(json.RawMessage(nil), msg...)
		}
	}
	return p, nil
}

func isNull(msg json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}

// UnmarshalYAML decodes the config parameters section. Unknown keys are
// rejected so typos surface at startup.
func (p *Params) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*p = Params{}
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: parameters must be a mapping", node.Line)
	}
	var out Params
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			continue
		}
		switch {
		case key == KeyHavingAll || key == KeyHavingAny:
			var src filter.Source
			if err := val.Decode(&src); err != nil {
				return fmt.Errorf("parameters.%s: %w", key, err)
			}
			if key == KeyHavingAll {
				out.havingAll = &src
			} else {
				out.havingAny = &src
			}
		case scalarKeys[key]:
			var v any
			if err := val.Decode(&v); err != nil {
				return fmt.Errorf("parameters.%s: %w", key, err)
			}
			out = out.With(key, v)
		default:
			return fmt.Errorf("line %d: unknown parameter %q", node.Content[i].Line, key)
		}
	}
	*p = out
	return nil
}

// With returns a copy with the scalar parameter name set to v.
func (p Params) With(name string, v any) Params {
	c := p.Clone()
	if c.values == nil {
		c.values = make(map[string]any)
	}
	c.values[name] = v
	return c
}

// WithFilters returns a copy with the filter sources replaced.
func (p Params) WithFilters(all, anyOf *filter.Source) Params {
	c := p.Clone()
	c.havingAll, c.havingAny = all.Clone(), anyOf.Clone()
	return c
}

// WithEmbedding returns a copy carrying a query embedding.
func (p Params) WithEmbedding(v []float32) Params {
	c := p.Clone()
	c.embedding = append([]float32(nil), v...)
	return c
}

// Get returns the raw value of a parameter and whether the source set it.
func (p Params) Get(name string) (any, bool) {
	switch name {
	case KeyHavingAll:
		return p.havingAll, p.havingAll != nil
	case KeyHavingAny:
		return p.havingAny, p.havingAny != nil
	case KeyQueryEmbedding:
		return p.embedding, p.embedding != nil
	}
	v, ok := p.values[name]
	return v, ok
}

// HavingAll returns the conjunctive filter source, nil when unset.
func (p Params) HavingAll() *filter.Source { return p.havingAll }

// HavingAny returns the disjunctive filter source, nil when unset.
func (p Params) HavingAny() *filter.Source { return p.havingAny }

// QueryEmbedding returns the query vector, nil when unset.
func (p Params) QueryEmbedding() []float32 { return p.embedding }

// Extra returns the unrecognized runtime keys.
func (p Params) Extra() map[string]json.RawMessage { return p.extra }

// Clone returns a deep copy.
func (p Params) Clone() Params {
	c := Params{
		havingAll: p.havingAll.Clone(),
		havingAny: p.havingAny.Clone(),
	}
	if p.embedding != nil {
		c.embedding = append([]float32(nil), p.embedding...)
	}
	if p.values != nil {
		c.values = make(map[string]any, len(p.values))
		for k, v := range p.values {
			c.values[k] = v
		}
	}
	if p.extra != nil {
		c.extra = make(map[string]json.RawMessage, len(p.extra))
		for k, v := range p.extra {
			c.extra[k] = v
		}
	}
	return c
}
