package collection

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/method"
)

// fieldRow is the JSON-serializable representation of a field for HSET.
type fieldRow struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type vectorRow struct {
	Name   string `json:"name"`
	Dim    int    `json:"dim"`
	Method string `json:"method"`
}

// collectionToHash converts a domain Collection to a map for HSET.
func collectionToHash(col collection.Collection) (map[string]string, error) {
	fields := make([]fieldRow, len(col.Fields()))
	for i, f := range col.Fields() {
		fields[i] = fieldRow{Name: f.Name(), Type: string(f.FieldType())}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}

	vectors := make([]vectorRow, len(col.Vectors()))
	for i, v := range col.Vectors() {
		vectors[i] = vectorRow{Name: v.Name(), Dim: v.Dim(), Method: string(v.Method())}
	}
	vectorsJSON, err := json.Marshal(vectors)
	if err != nil {
		return nil, fmt.Errorf("marshal vectors: %w", err)
	}

	return map[string]string{
		"name":          col.Name(),
		"fields_json":   string(fieldsJSON),
		"vectors_json":  string(vectorsJSON),
		"multi_tenancy": strconv.FormatBool(col.MultiTenancy()),
		"created_at":    strconv.FormatInt(col.CreatedAt(), 10),
		"revision":      strconv.Itoa(col.Revision()),
	}, nil
}

// collectionFromHash hydrates a domain Collection from an HGETALL result map.
func collectionFromHash(m map[string]string) (collection.Collection, error) {
	createdAt, err := strconv.ParseInt(m["created_at"], 10, 64)
	if err != nil {
		return collection.Collection{}, fmt.Errorf("invalid created_at: %w", err)
	}

	var fieldRows []fieldRow
	if s := m["fields_json"]; s != "" {
		if err := json.Unmarshal([]byte(s), &fieldRows); err != nil {
			return collection.Collection{}, fmt.Errorf("unmarshal fields: %w", err)
		}
	}
	fields := make([]field.Field, len(fieldRows))
	for i, r := range fieldRows {
		fields[i] = field.Reconstruct(r.Name, field.Type(r.Type))
	}

	var vectorRows []vectorRow
	if err := json.Unmarshal([]byte(m["vectors_json"]), &vectorRows); err != nil {
		return collection.Collection{}, fmt.Errorf("unmarshal vectors: %w", err)
	}
	vectors := make([]collection.Vector, len(vectorRows))
	for i, r := range vectorRows {
		vectors[i] = collection.ReconstructVector(r.Name, r.Dim, method.Method(r.Method))
	}

	multiTenancy, _ := strconv.ParseBool(m["multi_tenancy"])

	revision := 1
	if parsed, err := strconv.Atoi(m["revision"]); err == nil {
		revision = parsed
	}

	return collection.Reconstruct(m["name"], fields, vectors, multiTenancy, createdAt, revision), nil
}
