package collection

import (
	"context"

	domcol "github.com/kailas-cloud/chunkdex/internal/domain/collection"
)

// Repository defines the storage contract for collections and tenants.
type Repository interface {
	Create(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, name string) (domcol.Collection, error)
	CreateTenant(ctx context.Context, col domcol.Collection, tenant string) error
	TenantExists(ctx context.Context, collection, tenant string) (bool, error)
}
