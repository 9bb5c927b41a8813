// Package layout describes how chunkdex lays data out in the store: key
// names, FT index schemas and the stored chunk document.
package layout

// Keyspace derives every key from a configurable prefix:
//
//	{prefix}collection:{name}              collection metadata hash
//	{prefix}{name}:idx                     index of a single-tenant collection
//	{prefix}{name}:c:{chunk}               chunk document
//	{prefix}{name}:t:{tenant}:idx          index of a tenant partition
//	{prefix}{name}:t:{tenant}:c:{chunk}    chunk document in a tenant partition
type Keyspace struct {
	prefix string
}

// NewKeyspace creates a Keyspace rooted at prefix.
func NewKeyspace(prefix string) Keyspace {
	return Keyspace{prefix: prefix}
}

// Prefix returns the root prefix.
func (k Keyspace) Prefix() string { return k.prefix }

// CollectionMeta returns the metadata hash key of a collection.
func (k Keyspace) CollectionMeta(name string) string {
	return k.prefix + "collection:" + name
}

// Partition returns the chunk partition of a collection. An empty tenant
// selects the collection-wide partition.
func (k Keyspace) Partition(collection, tenant string) Partition {
	base := k.prefix + collection + ":"
	if tenant != "" {
		base += "t:" + tenant + ":"
	}
	return Partition{Collection: collection, Tenant: tenant, base: base}
}

// Partition is the set of chunks searched by one index.
type Partition struct {
	Collection string
	Tenant     string
	base       string
}

// Index returns the FT index name.
func (p Partition) Index() string { return p.base + "idx" }

// ChunkPrefix returns the key prefix of the partition's chunk documents.
func (p Partition) ChunkPrefix() string { return p.base + "c:" }

// ChunkKey returns the key of one chunk document.
func (p Partition) ChunkKey(id string) string { return p.ChunkPrefix() + id }

// ChunkID strips the partition prefix from a chunk key.
func (p Partition) ChunkID(key string) string {
	prefix := p.ChunkPrefix()
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		return key[len(prefix):]
	}
	return key
}

func (p Partition) String() string {
	if p.Tenant == "" {
		return p.Collection
	}
	return p.Collection + "/" + p.Tenant
}
