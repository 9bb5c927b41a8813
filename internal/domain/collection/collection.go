package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DefaultVector is the name of the vector every chunk must carry.
const DefaultVector = "default"

// MaxVectorDim bounds a single named vector.
const MaxVectorDim = 8192

// Vector describes a named vector: its dimension and distance method.
type Vector struct {
	name   string
	dim    int
	method method.Method
}

// NewVector validates and creates a named vector spec. An empty method
// falls back to cosine.
func NewVector(name string, dim int, m method.Method) (Vector, error) {
	if name == "" {
		name = DefaultVector
	}
	if !nameRegex.MatchString(name) {
		return Vector{}, fmt.Errorf("vector name %q must be alphanumeric with underscores and hyphens", name)
	}
	if dim <= 0 || dim > MaxVectorDim {
		return Vector{}, fmt.Errorf("vector %q: dimension must be between 1 and %d", name, MaxVectorDim)
	}
	if m == "" {
		m = method.Default()
	}
	if !m.IsValid() {
		return Vector{}, fmt.Errorf("vector %q: invalid method %q", name, m)
	}
	return Vector{name: name, dim: dim, method: m}, nil
}

// ReconstructVector creates a Vector without validation (storage hydration).
func ReconstructVector(name string, dim int, m method.Method) Vector {
	return Vector{name: name, dim: dim, method: m}
}

// Name returns the vector name.
func (v Vector) Name() string { return v.name }

// Dim returns the vector dimension.
func (v Vector) Dim() int { return v.dim }

// Method returns the distance method the vector is indexed with.
func (v Vector) Method() method.Method { return v.method }

// Collection is the chunk collection aggregate (immutable value object).
type Collection struct {
	name         string
	fields       []field.Field
	vectors      []Vector
	multiTenancy bool
	createdAt    int64
	revision     int
}

// ValidateName checks a collection or tenant name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > 64 {
		return fmt.Errorf("too many fields (max 64)")
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
	}
	return nil
}

func validateVectors(vectors []Vector) error {
	if len(vectors) == 0 {
		return fmt.Errorf("at least the %q vector is required", DefaultVector)
	}
	seen := make(map[string]bool, len(vectors))
	for _, v := range vectors {
		if seen[v.name] {
			return fmt.Errorf("duplicate vector name: %s", v.name)
		}
		seen[v.name] = true
	}
	if !seen[DefaultVector] {
		return fmt.Errorf("the %q vector is required", DefaultVector)
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Fields: unique names, max 64.
// Vectors: unique names, one of them "default".
func New(name string, fields []field.Field, vectors []Vector, multiTenancy bool) (Collection, error) {
	if err := ValidateName(name); err != nil {
		return Collection{}, fmt.Errorf("collection %w", err)
	}
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	if err := validateVectors(vectors); err != nil {
		return Collection{}, err
	}

	return Collection{
		name:         name,
		fields:       fields,
		vectors:      vectors,
		multiTenancy: multiTenancy,
		createdAt:    time.Now().UnixMilli(),
		revision:     1,
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(
	name string, fields []field.Field, vectors []Vector,
	multiTenancy bool, createdAt int64, revision int,
) Collection {
	return Collection{
		name:         name,
		fields:       fields,
		vectors:      vectors,
		multiTenancy: multiTenancy,
		createdAt:    createdAt,
		revision:     revision,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Fields returns the metadata field definitions.
func (c Collection) Fields() []field.Field { return c.fields }

// Vectors returns the named vector specs.
func (c Collection) Vectors() []Vector { return c.vectors }

// MultiTenancy reports whether chunks live in per-tenant partitions.
func (c Collection) MultiTenancy() bool { return c.multiTenancy }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Revision returns the optimistic concurrency version.
func (c Collection) Revision() int { return c.revision }

// Vector looks up a named vector.
func (c Collection) Vector(name string) (Vector, bool) {
	for _, v := range c.vectors {
		if v.name == name {
			return v, true
		}
	}
	return Vector{}, false
}

// FieldByName looks up a metadata field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// PropertyType returns the indexed type of a built-in chunk property or a
// declared metadata field.
func (c Collection) PropertyType(property string) (field.Type, bool) {
	if ft, ok := field.Builtin(property); ok {
		return ft, true
	}
	if f, ok := c.FieldByName(property); ok {
		return f.FieldType(), true
	}
	return "", false
}

// IsList reports whether property is a list-valued field.
func (c Collection) IsList(property string) (list, known bool) {
	ft, known := c.PropertyType(property)
	return ft == field.TagList, known
}
