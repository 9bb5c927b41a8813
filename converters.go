package chunkdex

import (
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/result"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
)

func collectionSpec(name string, opts []CollectionOption) (collectionuc.Spec, error) {
	cfg := &collectionConfig{}
	for _, o := range opts {
		o(cfg)
	}

	fields := make([]field.Field, 0, len(cfg.fields))
	for _, f := range cfg.fields {
		fd, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return collectionuc.Spec{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
		fields = append(fields, fd)
	}

	vectors := make([]domcol.Vector, 0, len(cfg.vectors))
	for _, v := range cfg.vectors {
		vec, err := domcol.NewVector(v.Name, v.Dimensions, method.Method(v.Method))
		if err != nil {
			return collectionuc.Spec{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
		}
		vectors = append(vectors, vec)
	}

	return collectionuc.Spec{
		Name:         name,
		Fields:       fields,
		Vectors:      vectors,
		MultiTenancy: cfg.multiTenancy,
	}, nil
}

func fromInternalCollection(c domcol.Collection) CollectionInfo {
	info := CollectionInfo{
		Name:         c.Name(),
		Fields:       make([]FieldInfo, len(c.Fields())),
		Vectors:      make([]VectorInfo, len(c.Vectors())),
		MultiTenancy: c.MultiTenancy(),
		CreatedAt:    c.CreatedAt(),
		Revision:     c.Revision(),
	}
	for i, f := range c.Fields() {
		info.Fields[i] = FieldInfo{Name: f.Name(), Type: FieldType(f.FieldType())}
	}
	for i, v := range c.Vectors() {
		info.Vectors[i] = VectorInfo{Name: v.Name(), Dimensions: v.Dim(), Method: Method(v.Method())}
	}
	return info
}

func toInternalDocument(doc Document) (chunk.Document, error) {
	chunks := make([]chunk.Chunk, 0, len(doc.Chunks))
	for i, c := range doc.Chunks {
		ch, err := chunk.New(c.ID, c.Content, c.Level, c.SpanStart, c.SpanEnd, c.ParentID, c.Vectors)
		if err != nil {
			return chunk.Document{}, domain.NewValidationError("chunks", "chunk %d: %v", i, err)
		}
		chunks = append(chunks, ch)
	}
	d, err := chunk.NewDocument(doc.Filename, doc.Metadata, chunks)
	if err != nil {
		return chunk.Document{}, domain.NewValidationError("document", "%v", err)
	}
	return d, nil
}

func fromSearchResponse(resp *searchuc.Response) *SearchResponse {
	out := &SearchResponse{
		Documents: make([]ResultDocument, len(resp.Documents)),
		Warnings:  make([]Warning, len(resp.Warnings)),
	}
	for i, g := range resp.Documents {
		meta := g.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		chunks := make([]ResultChunk, len(g.Hits))
		for j, h := range g.Hits {
			chunks[j] = fromHit(h)
		}
		out.Documents[i] = ResultDocument{Filename: g.Filename, Metadata: meta, Chunks: chunks}
	}
	for i, w := range resp.Warnings {
		out.Warnings[i] = Warning{Code: w.Code, ChunkID: w.ChunkID, Message: w.Message}
	}
	return out
}

func fromHit(h result.Hit) ResultChunk {
	c := h.Chunk()
	start, end := c.Span()
	rc := ResultChunk{
		ChunkID:        c.ID(),
		Content:        c.Content(),
		OriginalSpan:   [2]int{start, end},
		HierarchyLevel: c.Level(),
		Distance:       h.Distance(),
		Role:           string(h.Role()),
	}
	if p := c.ParentID(); p != "" {
		rc.ParentID = &p
	}
	for _, v := range c.Vectors() {
		rc.Embedding = v
	}
	return rc
}
