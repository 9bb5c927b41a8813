package field

import "fmt"

// Type is the indexing type of a metadata property.
type Type string

// Field type constants.
const (
	// Tag is an exact-match field.
	Tag Type = "tag"
	// TagList is a multi-valued tag field, the only type contains applies to.
	TagList Type = "tag_list"
	Numeric Type = "numeric"
	Bool    Type = "bool"
	// Text is a full-text field; it needs backend text search support.
	Text Type = "text"
)

// IsValid checks if the type is supported.
func (t Type) IsValid() bool {
	switch t {
	case Tag, TagList, Numeric, Bool, Text:
		return true
	}
	return false
}

// Built-in chunk properties. They are always indexed and cannot be redeclared.
const (
	ChunkID        = "chunk_id"
	Content        = "content"
	HierarchyLevel = "hierarchy_level"
	SpanStart      = "original_span_start"
	SpanEnd        = "original_span_end"
	Filename       = "filename"
	ParentID       = "parent_id"
)

var builtin = map[string]Type{
	ChunkID:        Tag,
	Content:        Text,
	HierarchyLevel: Numeric,
	SpanStart:      Numeric,
	SpanEnd:        Numeric,
	Filename:       Tag,
	ParentID:       Tag,
}

var reservedFieldNames = map[string]bool{
	"metadata": true, "vectors": true, "document_metadata": true,
}

// Builtin reports the type of a built-in chunk property.
func Builtin(name string) (Type, bool) {
	t, ok := builtin[name]
	return t, ok
}

// Field is an immutable value object describing an indexed metadata property.
type Field struct {
	name      string
	fieldType Type
}

// New validates and creates a Field.
// Name must be non-empty, max 64 chars, without ':' and not reserved.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if _, ok := builtin[name]; ok || reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	for _, r := range name {
		if r == ':' || r == ' ' || r == '@' || r == '$' {
			return Field{}, fmt.Errorf("field name %q contains %q", name, r)
		}
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }

// IsList reports whether the field holds several values.
func (f Field) IsList() bool { return f.fieldType == TagList }
