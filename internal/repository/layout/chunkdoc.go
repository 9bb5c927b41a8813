package layout

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
)

// chunkDoc is the JSON document stored per chunk.
type chunkDoc struct {
	ChunkID        string               `json:"chunk_id"`
	Content        string               `json:"content"`
	HierarchyLevel int                  `json:"hierarchy_level"`
	SpanStart      int                  `json:"original_span_start"`
	SpanEnd        int                  `json:"original_span_end"`
	Filename       string               `json:"filename"`
	ParentID       string               `json:"parent_id,omitempty"`
	Metadata       map[string]any       `json:"metadata,omitempty"`
	Vectors        map[string][]float32 `json:"vectors"`
}

// EncodeChunk renders c as its stored JSON document.
func EncodeChunk(c chunk.Chunk) ([]byte, error) {
	start, end := c.Span()
	data, err := json.Marshal(chunkDoc{
		ChunkID:        c.ID(),
		Content:        c.Content(),
		HierarchyLevel: c.Level(),
		SpanStart:      start,
		SpanEnd:        end,
		Filename:       c.Filename(),
		ParentID:       c.ParentID(),
		Metadata:       c.Metadata(),
		Vectors:        c.Vectors(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chunk %s: %w", c.ID(), err)
	}
	return data, nil
}

// DecodeChunk parses a stored chunk document. It accepts the bare object
// returned by FT.SEARCH and the one-element array returned by JSON.GET "$".
func DecodeChunk(raw []byte) (chunk.Chunk, error) {
	raw = bytes.TrimSpace(raw)
	var doc chunkDoc
	if len(raw) > 0 && raw[0] == '[' {
		var docs []chunkDoc
		if err := json.Unmarshal(raw, &docs); err != nil {
			return chunk.Chunk{}, fmt.Errorf("unmarshal chunk: %w", err)
		}
		if len(docs) == 0 {
			return chunk.Chunk{}, fmt.Errorf("unmarshal chunk: empty result")
		}
		doc = docs[0]
	} else if err := json.Unmarshal(raw, &doc); err != nil {
		return chunk.Chunk{}, fmt.Errorf("unmarshal chunk: %w", err)
	}
	return chunk.Reconstruct(
		doc.ChunkID, doc.Content, doc.HierarchyLevel, doc.SpanStart, doc.SpanEnd,
		doc.ParentID, doc.Filename, doc.Metadata, doc.Vectors,
	), nil
}
