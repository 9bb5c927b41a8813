package chunkdex

// CollectionOption configures collection creation.
type CollectionOption func(*collectionConfig)

type collectionConfig struct {
	fields       []FieldInfo
	vectors      []VectorInfo
	multiTenancy bool
}

// WithField declares a filterable metadata property.
func WithField(name string, ft FieldType) CollectionOption {
	return func(c *collectionConfig) {
		c.fields = append(c.fields, FieldInfo{Name: name, Type: ft})
	}
}

// WithVector declares a named vector. An empty name means "default", which
// every collection needs. An empty method means cosine.
func WithVector(name string, dim int, m Method) CollectionOption {
	return func(c *collectionConfig) {
		c.vectors = append(c.vectors, VectorInfo{Name: name, Dimensions: dim, Method: m})
	}
}

// MultiTenant partitions the collection by tenant. Every search and write
// then names a tenant.
func MultiTenant() CollectionOption {
	return func(c *collectionConfig) {
		c.multiTenancy = true
	}
}
