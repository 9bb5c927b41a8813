package db

import (
	"github.com/kailas-cloud/chunkdex/internal/domain/search/filter"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/level"
)

// DistanceField is the alias the KNN distance is returned under.
const DistanceField = "__distance"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName string
	Filters   filter.Expression
	Levels    level.Selection
	// LevelField is the numeric field Levels restricts.
	LevelField string
	// FieldTypes declares the index type of known properties. Properties
	// missing here are typed from the filter value.
	FieldTypes   map[string]IndexFieldType
	VectorField  string
	Vector       []float32
	K            int
	ReturnFields []string
}

// MaxQuery asks for the largest value of a numeric field across an index.
type MaxQuery struct {
	IndexName string
	// KeyPrefix and JSONPath serve backends that aggregate by scanning.
	KeyPrefix string
	Field     string
	JSONPath  string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
