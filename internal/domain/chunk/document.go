package chunk

import (
	"fmt"
	"sort"
)

// MaxChunksPerDocument bounds a single persist call.
const MaxChunksPerDocument = 10000

// Document is a source file split into a hierarchy of chunks.
type Document struct {
	filename string
	metadata map[string]any
	chunks   []Chunk
}

// NewDocument validates the chunk hierarchy and stamps every chunk with the
// document filename and metadata. Parents must belong to the same document
// and sit above their children.
func NewDocument(filename string, metadata map[string]any, chunks []Chunk) (Document, error) {
	if filename == "" {
		return Document{}, fmt.Errorf("filename is required")
	}
	if len(chunks) == 0 {
		return Document{}, fmt.Errorf("document %s has no chunks", filename)
	}
	if len(chunks) > MaxChunksPerDocument {
		return Document{}, fmt.Errorf("document %s: too many chunks (max %d)", filename, MaxChunksPerDocument)
	}

	byID := make(map[string]Chunk, len(chunks))
	for _, c := range chunks {
		if _, dup := byID[c.id]; dup {
			return Document{}, fmt.Errorf("document %s: duplicate chunk id %s", filename, c.id)
		}
		byID[c.id] = c
	}
	stamped := make([]Chunk, len(chunks))
	for i, c := range chunks {
		if c.parentID != "" {
			p, ok := byID[c.parentID]
			if !ok {
				return Document{}, fmt.Errorf("chunk %s: parent %s not in document", c.id, c.parentID)
			}
			if p.level >= c.level {
				return Document{}, fmt.Errorf("chunk %s: parent %s is not above it", c.id, c.parentID)
			}
		}
		stamped[i] = c.WithDocument(filename, metadata)
	}
	return Document{filename: filename, metadata: cloneMetadata(metadata), chunks: stamped}, nil
}

// Filename returns the source document name.
func (d Document) Filename() string { return d.filename }

// Metadata returns the document-level metadata.
func (d Document) Metadata() map[string]any { return d.metadata }

// Chunks returns the chunks in input order.
func (d Document) Chunks() []Chunk { return d.chunks }

// ByLevel returns the chunks ordered root level first, keeping input order
// within a level.
func (d Document) ByLevel() []Chunk {
	out := make([]Chunk, len(d.chunks))
	copy(out, d.chunks)
	sort.SliceStable(out, func(i, j int) bool { return out[i].level < out[j].level })
	return out
}
