package chunkdex

// FieldType is the indexing type of a metadata property.
type FieldType string

// Field type constants.
const (
	FieldTag     FieldType = "tag"
	FieldTagList FieldType = "tag_list"
	FieldNumeric FieldType = "numeric"
	FieldBool    FieldType = "bool"
	// FieldText needs a backend with full-text search; Valkey indexes it as a tag.
	FieldText FieldType = "text"
)

// Method is a vector distance function.
type Method string

// Distance methods the backend can execute.
const (
	MethodCosine    Method = "cosine"
	MethodDot       Method = "dot"
	MethodL2Squared Method = "l2-squared"
)

// CollectionInfo describes a stored collection.
type CollectionInfo struct {
	Name         string
	Fields       []FieldInfo
	Vectors      []VectorInfo
	MultiTenancy bool
	CreatedAt    int64
	Revision     int
}

// FieldInfo is a declared metadata property.
type FieldInfo struct {
	Name string
	Type FieldType
}

// VectorInfo is a named vector of a collection.
type VectorInfo struct {
	Name       string
	Dimensions int
	Method     Method
}

// Chunk is one node of a chunked document. Level 0 is the root.
type Chunk struct {
	ID        string // generated when empty
	Content   string
	Level     int
	SpanStart int
	SpanEnd   int
	ParentID  string
	// Vectors must hold the "default" vector.
	Vectors map[string][]float32
}

// Document is a source file split into a hierarchy of chunks. Metadata is
// copied onto every chunk.
type Document struct {
	Filename string
	Metadata map[string]any
	Chunks   []Chunk
}

// PersistResult reports how many chunks were new and how many replaced a
// stored chunk.
type PersistResult struct {
	Inserted int
	Replaced int
}

// SearchResponse is the grouped result of a search.
type SearchResponse struct {
	Documents []ResultDocument `json:"documents"`
	Warnings  []Warning        `json:"warnings"`
}

// ResultDocument holds the hits of one source document.
type ResultDocument struct {
	Filename string         `json:"filename"`
	Metadata map[string]any `json:"document_metadata"`
	Chunks   []ResultChunk  `json:"chunks"`
}

// ResultChunk is a single hit. Parent chunks added by the include strategy
// carry the role "parent" and the distance of their child.
type ResultChunk struct {
	ChunkID        string    `json:"chunk_id"`
	Content        string    `json:"content"`
	OriginalSpan   [2]int    `json:"original_span"`
	HierarchyLevel int       `json:"hierarchy_level"`
	ParentID       *string   `json:"parent_id"`
	Embedding      []float32 `json:"embedding,omitempty"`
	Distance       float64   `json:"distance"`
	Role           string    `json:"role"`
}

// Warning is a recoverable problem reported alongside results.
type Warning struct {
	Code    string `json:"code"`
	ChunkID string `json:"chunk_id,omitempty"`
	Message string `json:"message"`
}
