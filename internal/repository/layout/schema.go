package layout

import (
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/db"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
)

// vectorAliasPrefix keeps vector aliases apart from property names.
const vectorAliasPrefix = "__vec_"

// HNSWConfig holds HNSW index parameters.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// builtinOrder fixes the schema order of the built-in properties.
var builtinOrder = []string{
	field.ChunkID,
	field.Content,
	field.HierarchyLevel,
	field.SpanStart,
	field.SpanEnd,
	field.Filename,
	field.ParentID,
}

// VectorAlias returns the index alias of a named vector.
func VectorAlias(name string) string { return vectorAliasPrefix + name }

// Metric maps a distance method onto the backend distance metric.
func Metric(m method.Method) (db.DistanceMetric, error) {
	switch m {
	case method.Cosine:
		return db.DistanceCosine, nil
	case method.Dot:
		return db.DistanceIP, nil
	case method.L2Squared:
		return db.DistanceL2, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMethod, m)
	}
}

// IndexType maps a property type onto the index field type. Text degrades
// to an exact-match tag when the backend cannot index TEXT.
func IndexType(ft field.Type, textSearch bool) db.IndexFieldType {
	switch ft {
	case field.Numeric:
		return db.IndexFieldNumeric
	case field.Text:
		if textSearch {
			return db.IndexFieldText
		}
		return db.IndexFieldTag
	default:
		return db.IndexFieldTag
	}
}

// FieldTypes returns the index type of every filterable property of col.
func FieldTypes(col domcol.Collection, textSearch bool) map[string]db.IndexFieldType {
	out := make(map[string]db.IndexFieldType, len(builtinOrder)+len(col.Fields()))
	for _, name := range builtinOrder {
		ft, _ := field.Builtin(name)
		if ft == field.Text && !textSearch {
			continue
		}
		out[name] = IndexType(ft, textSearch)
	}
	for _, f := range col.Fields() {
		out[f.Name()] = IndexType(f.FieldType(), textSearch)
	}
	return out
}

// Definition builds the FT index of one partition of col.
func Definition(
	col domcol.Collection, p Partition, textSearch bool, hnsw HNSWConfig,
) (*db.IndexDefinition, error) {
	b := db.NewIndex(p.Index()).Prefix(p.ChunkPrefix())

	for _, name := range builtinOrder {
		ft, _ := field.Builtin(name)
		if ft == field.Text && !textSearch {
			continue // content is too large for a tag
		}
		addField(b, "$."+name, name, IndexType(ft, textSearch))
	}

	for _, f := range col.Fields() {
		path := "$.metadata." + f.Name()
		if f.IsList() {
			path += "[*]"
		}
		addField(b, path, f.Name(), IndexType(f.FieldType(), textSearch))
	}

	for _, v := range col.Vectors() {
		metric, err := Metric(v.Method())
		if err != nil {
			return nil, fmt.Errorf("vector %s: %w", v.Name(), err)
		}
		b.VectorHNSW("$.vectors."+v.Name(), v.Dim(), metric, hnsw.M, hnsw.EFConstruct).
			As(VectorAlias(v.Name()))
	}

	return b.Build()
}

func addField(b *db.IndexBuilder, path, alias string, t db.IndexFieldType) {
	switch t {
	case db.IndexFieldNumeric:
		b.Numeric(path)
	case db.IndexFieldText:
		b.Text(path)
	default:
		b.Tag(path)
	}
	b.As(alias)
}
