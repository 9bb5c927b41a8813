package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/chunk"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
)

// Service persists chunked documents.
type Service struct {
	repo   Repository
	colls  CollectionReader
	depths DepthInvalidator
}

// New creates a document service. depths can be nil.
func New(repo Repository, colls CollectionReader, depths DepthInvalidator) *Service {
	return &Service{repo: repo, colls: colls, depths: depths}
}

// Persist writes every chunk of doc root level first. Chunks whose id is
// already stored are replaced.
func (s *Service) Persist(
	ctx context.Context, collection, tenant string, doc chunk.Document,
) (inserted, replaced int, err error) {
	col, err := s.colls.Get(ctx, collection)
	if err != nil {
		return 0, 0, fmt.Errorf("get collection: %w", err)
	}
	if err := s.checkTenant(ctx, col, tenant); err != nil {
		return 0, 0, err
	}

	chunks := doc.ByLevel()
	for _, c := range chunks {
		if err := validateVectors(c, col); err != nil {
			return 0, 0, err
		}
	}
	if err := validateMetadata(doc.Metadata(), col); err != nil {
		return 0, 0, err
	}

	inserted, replaced, err = s.repo.Upsert(ctx, collection, tenant, chunks)
	if err != nil {
		return 0, 0, fmt.Errorf("persist %s: %w", doc.Filename(), err)
	}
	if s.depths != nil {
		s.depths.Invalidate(collection, tenant)
	}
	return inserted, replaced, nil
}

func (s *Service) checkTenant(ctx context.Context, col domcol.Collection, tenant string) error {
	switch {
	case col.MultiTenancy() && tenant == "":
		return domain.NewValidationError("tenant", "collection %q is multi-tenant and needs a tenant", col.Name())
	case !col.MultiTenancy() && tenant != "":
		return domain.NewValidationError("tenant", "collection %q is not multi-tenant", col.Name())
	case tenant == "":
		return nil
	}
	ok, err := s.colls.TenantExists(ctx, col.Name(), tenant)
	if err != nil {
		return fmt.Errorf("check tenant: %w", err)
	}
	if !ok {
		return fmt.Errorf("tenant %q of %q: %w", tenant, col.Name(), domain.ErrNotFound)
	}
	return nil
}

// validateVectors checks that a chunk carries the default vector and that
// every vector is declared with a matching dimension.
func validateVectors(c chunk.Chunk, col domcol.Collection) error {
	if _, ok := c.Vector(domcol.DefaultVector); !ok {
		return domain.NewValidationError("vectors", "chunk %s has no %q vector", c.ID(), domcol.DefaultVector)
	}
	for name, v := range c.Vectors() {
		spec, ok := col.Vector(name)
		if !ok {
			return domain.NewValidationError("vectors", "chunk %s: collection %q has no vector %q",
				c.ID(), col.Name(), name)
		}
		if len(v) != spec.Dim() {
			return fmt.Errorf("chunk %s vector %q: got %d, want %d: %w",
				c.ID(), name, len(v), spec.Dim(), domain.ErrVectorDimMismatch)
		}
	}
	return nil
}

// validateMetadata checks declared properties against their type. Undeclared
// keys are stored but not indexed.
func validateMetadata(metadata map[string]any, col domcol.Collection) error {
	for k, v := range metadata {
		f, ok := col.FieldByName(k)
		if !ok || v == nil {
			continue
		}
		if !fitsType(f.FieldType(), v) {
			return domain.NewValidationError("metadata", "property %q is %s, got %T", k, f.FieldType(), v)
		}
	}
	return nil
}

func fitsType(ft field.Type, v any) bool {
	switch ft {
	case field.Numeric:
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case field.Bool:
		_, ok := v.(bool)
		return ok
	case field.TagList:
		switch t := v.(type) {
		case []string:
			return true
		case []any:
			for _, e := range t {
				if _, ok := e.(string); !ok {
					return false
				}
			}
			return true
		}
		return false
	default:
		_, ok := v.(string)
		return ok
	}
}
