package config

import (
	"fmt"
	"time"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
)

// Connection is the validated store endpoint pair.
type Connection struct {
	HTTPHost   string
	HTTPPort   int
	HTTPSecure bool
	GRPCHost   string
	GRPCPort   int
	GRPCSecure bool
}

// Addrs returns the distinct host:port endpoints, HTTP first.
func (c Connection) Addrs() []string {
	httpAddr := joinHostPort(c.HTTPHost, c.HTTPPort)
	grpcAddr := joinHostPort(c.GRPCHost, c.GRPCPort)
	if httpAddr == grpcAddr {
		return []string{httpAddr}
	}
	return []string{httpAddr, grpcAddr}
}

// TLS reports whether either endpoint is secure.
func (c Connection) TLS() bool { return c.HTTPSecure || c.GRPCSecure }

// Layer is the immutable configuration snapshot. It is built once at
// startup and only hands out copies.
type Layer struct {
	cfg Config
}

// NewLayer applies defaults, validates cfg and freezes it. Failures wrap
// domain.ErrConfig.
func NewLayer(cfg Config) (*Layer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConfig, err)
	}
	if err := request.NewResolver(cfg.Parameters).Validate(); err != nil {
		return nil, fmt.Errorf("%w: parameters: %w", domain.ErrConfig, err)
	}
	httpSecure, grpcSecure := *cfg.Connection.HTTPSecure, *cfg.Connection.GRPCSecure
	cfg.Connection.HTTPSecure, cfg.Connection.GRPCSecure = &httpSecure, &grpcSecure
	cfg.Parameters = cfg.Parameters.Clone()
	cfg.Auth.APIKeys = append([]string(nil), cfg.Auth.APIKeys...)
	return &Layer{cfg: cfg}, nil
}

// Connection returns the store endpoints.
func (l *Layer) Connection() Connection {
	c := l.cfg.Connection
	return Connection{
		HTTPHost:   c.HTTPHost,
		HTTPPort:   c.HTTPPort,
		HTTPSecure: *c.HTTPSecure,
		GRPCHost:   c.GRPCHost,
		GRPCPort:   c.GRPCPort,
		GRPCSecure: *c.GRPCSecure,
	}
}

// Parameters returns a copy of the default search parameters.
func (l *Layer) Parameters() request.Params { return l.cfg.Parameters.Clone() }

// Default returns the configured default of one search parameter.
func (l *Layer) Default(name string) (any, bool) { return l.cfg.Parameters.Get(name) }

// HTTP returns the HTTP server settings.
func (l *Layer) HTTP() HTTPConfig { return l.cfg.HTTP }

// Database returns the store client settings.
func (l *Layer) Database() DatabaseConfig { return l.cfg.Database }

// Embedding returns the text embedding settings.
func (l *Layer) Embedding() EmbeddingConfig { return l.cfg.Embedding }

// Search returns the query execution bounds.
func (l *Layer) Search() SearchConfig { return l.cfg.Search }

// DepthCacheTTL returns the lifetime of a cached depth probe.
func (l *Layer) DepthCacheTTL() time.Duration {
	return time.Duration(l.cfg.Search.DepthCacheTTLSec) * time.Second
}

// Auth returns the API authentication settings.
func (l *Layer) Auth() AuthConfig {
	return AuthConfig{APIKeys: append([]string(nil), l.cfg.Auth.APIKeys...)}
}

// Index returns the HNSW settings.
func (l *Layer) Index() IndexConfig { return l.cfg.Index }

// KeyPrefix returns the storage key prefix.
func (l *Layer) KeyPrefix() string { return l.cfg.Storage.KeyPrefix }

// Logging returns the logging settings.
func (l *Layer) Logging() LoggingConfig { return l.cfg.Logging }
