package result

import "github.com/kailas-cloud/chunkdex/internal/domain/chunk"

// Role tells why a chunk is in the result set.
type Role string

const (
	// RoleMatch marks a chunk returned by the vector search.
	RoleMatch Role = "match"
	// RoleParent marks a parent chunk added by the include strategy.
	RoleParent Role = "parent"
)

// Hit is a single search result.
type Hit struct {
	chunk    chunk.Chunk
	distance float64
	role     Role
}

// New creates a matched hit.
func New(c chunk.Chunk, distance float64) Hit {
	return Hit{chunk: c, distance: distance, role: RoleMatch}
}

// Chunk returns the hit chunk.
func (h Hit) Chunk() chunk.Chunk { return h.chunk }

// Distance returns the vector distance of the match. Parent hits carry the
// distance of the child they came from.
func (h Hit) Distance() float64 { return h.distance }

// Role returns the hit role.
func (h Hit) Role() Role { return h.role }

// ID returns the chunk id.
func (h Hit) ID() string { return h.chunk.ID() }

// WithChunk returns a copy standing for a different chunk with the given role.
func (h Hit) WithChunk(c chunk.Chunk, role Role) Hit {
	return Hit{chunk: c, distance: h.distance, role: role}
}

// Warning codes.
const (
	WarnParentLookup = "parent_lookup"
	WarnDepthProbe   = "depth_probe"
)

// Warning is a recoverable per-item problem reported alongside results.
type Warning struct {
	Code    string `json:"code"`
	ChunkID string `json:"chunk_id,omitempty"`
	Message string `json:"message"`
}

// Group is the hits of one source document.
type Group struct {
	Filename string
	Metadata map[string]any
	Hits     []Hit
}

// GroupByFilename groups hits per source document. Groups appear in the
// order their first hit appears; hits keep their relative order.
func GroupByFilename(hits []Hit) []Group {
	var groups []Group
	index := make(map[string]int)
	for _, h := range hits {
		name := h.chunk.Filename()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, Group{Filename: name, Metadata: h.chunk.Metadata()})
		}
		groups[i].Hits = append(groups[i].Hits, h)
	}
	return groups
}
