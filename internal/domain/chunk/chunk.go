package chunk

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// MaxContentSize is the maximum chunk content size in bytes.
const MaxContentSize = 163840 // 160KB

// Chunk is one node of a hierarchically chunked document (immutable value object).
// Level 0 is the root; a chunk's parent sits one or more levels above it.
type Chunk struct {
	id        string
	content   string
	level     int
	spanStart int
	spanEnd   int
	parentID  string
	filename  string
	metadata  map[string]any
	vectors   map[string][]float32
}

// New validates and creates a Chunk. An empty id gets a random UUID.
func New(
	id, content string, level, spanStart, spanEnd int,
	parentID string, vectors map[string][]float32,
) (Chunk, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if len(id) > 256 {
		return Chunk{}, fmt.Errorf("chunk ID too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return Chunk{}, fmt.Errorf("chunk ID %q must be alphanumeric with underscores and hyphens", id)
	}
	if content == "" {
		return Chunk{}, fmt.Errorf("chunk %s: content is required", id)
	}
	if len(content) > MaxContentSize {
		return Chunk{}, fmt.Errorf("chunk %s: content too large (max %d bytes)", id, MaxContentSize)
	}
	if level < 0 {
		return Chunk{}, fmt.Errorf("chunk %s: hierarchy level must be non-negative", id)
	}
	if spanStart < 0 || spanEnd < spanStart {
		return Chunk{}, fmt.Errorf("chunk %s: invalid span [%d, %d]", id, spanStart, spanEnd)
	}
	if parentID == id {
		return Chunk{}, fmt.Errorf("chunk %s: cannot be its own parent", id)
	}
	return Chunk{
		id:        id,
		content:   content,
		level:     level,
		spanStart: spanStart,
		spanEnd:   spanEnd,
		parentID:  parentID,
		vectors:   cloneVectors(vectors),
	}, nil
}

// Reconstruct creates a Chunk without validation (storage hydration).
func Reconstruct(
	id, content string, level, spanStart, spanEnd int, parentID, filename string,
	metadata map[string]any, vectors map[string][]float32,
) Chunk {
	return Chunk{
		id: id, content: content, level: level, spanStart: spanStart, spanEnd: spanEnd,
		parentID: parentID, filename: filename, metadata: metadata, vectors: vectors,
	}
}

// ID returns the chunk identifier.
func (c Chunk) ID() string { return c.id }

// Content returns the chunk text.
func (c Chunk) Content() string { return c.content }

// Level returns the hierarchy level.
func (c Chunk) Level() int { return c.level }

// Span returns the offsets of the chunk in the original document.
func (c Chunk) Span() (start, end int) { return c.spanStart, c.spanEnd }

// ParentID returns the parent chunk id, empty for roots.
func (c Chunk) ParentID() string { return c.parentID }

// Filename returns the source document name.
func (c Chunk) Filename() string { return c.filename }

// Metadata returns the document-level metadata copied onto the chunk.
func (c Chunk) Metadata() map[string]any { return c.metadata }

// Vectors returns the named embeddings.
func (c Chunk) Vectors() map[string][]float32 { return c.vectors }

// Vector returns one named embedding.
func (c Chunk) Vector(name string) ([]float32, bool) {
	v, ok := c.vectors[name]
	return v, ok
}

// WithDocument returns a copy carrying the document filename and metadata.
func (c Chunk) WithDocument(filename string, metadata map[string]any) Chunk {
	c.filename = filename
	c.metadata = cloneMetadata(metadata)
	return c
}

// OnlyVector returns a copy keeping just the named vector, or none when
// name is empty.
func (c Chunk) OnlyVector(name string) Chunk {
	if name == "" {
		c.vectors = nil
		return c
	}
	v, ok := c.vectors[name]
	if !ok {
		c.vectors = nil
		return c
	}
	c.vectors = map[string][]float32{name: v}
	return c
}

func cloneVectors(m map[string][]float32) map[string][]float32 {
	if m == nil {
		return nil
	}
	c := make(map[string][]float32, len(m))
	for k, v := range m {
		c[k] = append([]float32(nil), v...)
	}
	return c
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
