package filter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Entry is one "<property>[ <marker>]": value pair of a filter source.
type Entry struct {
	Key   string
	Value any
}

// Source is an insertion-ordered filter mapping. Order is kept so compiled
// clauses come out in the order the caller wrote them.
type Source struct {
	entries []Entry
}

// NewSource creates a Source from ordered entries.
func NewSource(entries ...Entry) *Source {
	s := &Source{entries: make([]Entry, 0, len(entries))}
	for _, e := range entries {
		s.entries = append(s.entries, Entry{Key: e.Key, Value: normalize(e.Value)})
	}
	return s
}

// Entries returns a copy of the ordered entries.
func (s *Source) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Len returns the number of entries. A nil Source is empty.
func (s *Source) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Clone returns an independent copy.
func (s *Source) Clone() *Source {
	if s == nil {
		return nil
	}
	return &Source{entries: s.Entries()}
}

// UnmarshalJSON decodes a JSON object keeping key order. Integral numbers
// become int64, other numbers float64.
func (s *Source) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode filter: %w", err)
	}
	if tok == nil {
		s.entries = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("filter must be an object")
	}

	var entries []Entry
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode filter key: %w", err)
		}
		key, _ := kt.(string)
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("decode filter value %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: normalize(v)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode filter: %w", err)
	}
	s.entries = entries
	return nil
}

// MarshalJSON encodes the entries as an object in insertion order.
func (s Source) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(e.Value)
		if err != nil {
			return nil, fmt.Errorf("encode filter value %q: %w", e.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (s *Source) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		s.entries = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filter must be a mapping", node.Line)
	}
	entries := make([]Entry, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var v any
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("line %d: filter value %q: %w", node.Content[i+1].Line, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: normalize(v)})
	}
	s.entries = entries
	return nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case uint:
		return int64(t)
	case uint32:
		return int64(t)
	case uint64:
		return int64(t)
	case float32:
		return float64(t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalize(x)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out
	case []int:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = int64(x)
		}
		return out
	case []float64:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = x
		}
		return out
	default:
		return v
	}
}
