package collection

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
	"github.com/kailas-cloud/chunkdex/internal/domain/collection/field"
)

// Spec describes a collection to create.
type Spec struct {
	Name         string
	Fields       []field.Field
	Vectors      []domcol.Vector
	MultiTenancy bool
}

// Service handles collection and tenant lifecycle.
type Service struct {
	repo Repository
}

// New creates a collection service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new collection. With idempotent set an
// existing collection of the same name is returned instead of an error.
func (s *Service) Create(ctx context.Context, spec Spec, idempotent bool) (domcol.Collection, error) {
	col, err := domcol.New(spec.Name, spec.Fields, spec.Vectors, spec.MultiTenancy)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidSchema, err)
	}

	err = s.repo.Create(ctx, col)
	switch {
	case err == nil:
		return col, nil
	case idempotent && errors.Is(err, domain.ErrAlreadyExists):
		return s.Get(ctx, spec.Name)
	default:
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, name string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// CreateTenant creates the partition of tenant inside a multi-tenant
// collection.
func (s *Service) CreateTenant(ctx context.Context, name, tenant string, idempotent bool) error {
	if err := domcol.ValidateName(tenant); err != nil {
		return domain.NewValidationError("tenant", "%v", err)
	}
	col, err := s.Get(ctx, name)
	if err != nil {
		return err
	}
	if !col.MultiTenancy() {
		return domain.NewValidationError("tenant", "collection %q is not multi-tenant", name)
	}

	err = s.repo.CreateTenant(ctx, col, tenant)
	if err == nil || (idempotent && errors.Is(err, domain.ErrAlreadyExists)) {
		return nil
	}
	return fmt.Errorf("create tenant: %w", err)
}

// GetOrCreate returns the collection named by spec, creating it when
// missing. A non-empty tenant is created too.
func (s *Service) GetOrCreate(ctx context.Context, spec Spec, tenant string) (domcol.Collection, error) {
	col, err := s.Get(ctx, spec.Name)
	if errors.Is(err, domain.ErrNotFound) {
		col, err = s.Create(ctx, spec, true)
	}
	if err != nil {
		return domcol.Collection{}, err
	}
	if tenant == "" {
		return col, nil
	}
	if err := s.CreateTenant(ctx, col.Name(), tenant, true); err != nil {
		return domcol.Collection{}, err
	}
	return col, nil
}
