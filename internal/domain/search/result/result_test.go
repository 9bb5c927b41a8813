package result

import (
	"testing"

	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
)

func hit(id, filename string, d float64) Hit {
	return New(chunk.Reconstruct(id, "x", 0, 0, 1, "", filename, map[string]any{"f": filename}, nil), d)
}

func TestGroupByFilename_FirstAppearanceOrder(t *testing.T) {
	hits := []Hit{
		hit("1", "b.md", 0.1),
		hit("2", "a.md", 0.2),
		hit("3", "b.md", 0.3),
		hit("4", "c.md", 0.4),
		hit("5", "a.md", 0.5),
	}
	groups := GroupByFilename(hits)
	if len(groups) != 3 {
		t.Fatalf("got %d groups", len(groups))
	}
	want := []struct {
		name string
		ids  []string
	}{
		{"b.md", []string{"1", "3"}},
		{"a.md", []string{"2", "5"}},
		{"c.md", []string{"4"}},
	}
	for i, w := range want {
		g := groups[i]
		if g.Filename != w.name {
			t.Errorf("group %d = %q, want %q", i, g.Filename, w.name)
		}
		if g.Metadata["f"] != w.name {
			t.Errorf("group %d metadata = %v", i, g.Metadata)
		}
		if len(g.Hits) != len(w.ids) {
			t.Fatalf("group %d has %d hits", i, len(g.Hits))
		}
		for j, id := range w.ids {
			if g.Hits[j].ID() != id {
				t.Errorf("group %d hit %d = %s, want %s", i, j, g.Hits[j].ID(), id)
			}
		}
	}
}

func TestGroupByFilename_Empty(t *testing.T) {
	if groups := GroupByFilename(nil); len(groups) != 0 {
		t.Errorf("got %d groups", len(groups))
	}
}

func TestWithChunk_KeepsDistance(t *testing.T) {
	h := hit("child", "a", 0.25)
	p := h.WithChunk(chunk.Reconstruct("parent", "y", 0, 0, 1, "", "a", nil, nil), RoleParent)
	if p.Distance() != 0.25 || p.Role() != RoleParent || p.ID() != "parent" {
		t.Errorf("unexpected hit: %+v", p)
	}
	if h.Role() != RoleMatch {
		t.Error("WithChunk mutated the receiver")
	}
}
