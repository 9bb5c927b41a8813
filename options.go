package chunkdex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	configPath string

	driver   string // "valkey" or "redis"
	addrs    []string
	password string
	tls      bool

	keyPrefix       string
	hnswM           int
	hnswEFConstruct int

	defaults      map[string]any
	layerDefaults request.Params
	maxCandidates int
	depthCache    int
	depthTTL      time.Duration

	embedder Embedder
	openai   *OpenAIConfig

	readiness time.Duration
	logger    *zap.Logger
	registry  prometheus.Registerer
}

// OpenAIConfig configures the built-in OpenAI-compatible query embedder.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	// QueryInstruction is prefixed to every query before embedding.
	QueryInstruction string
	// Cache stores query embeddings in the database; CacheTTL 0 keeps them forever.
	Cache    bool
	CacheTTL time.Duration
}

// WithConfigFile loads a YAML config file in the server format. Explicit
// options take precedence over the file.
func WithConfigFile(path string) Option {
	return optionFunc(func(c *clientConfig) {
		c.configPath = path
	})
}

// WithValkey configures the client to connect to Valkey instances.
func WithValkey(addr, password string, more ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = append([]string{addr}, more...)
		c.password = password
	})
}

// WithRedis configures the client to connect to Redis instances.
func WithRedis(addr, password string, more ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = append([]string{addr}, more...)
		c.password = password
	})
}

// WithTLS enables TLS on the database connection.
func WithTLS() Option {
	return optionFunc(func(c *clientConfig) {
		c.tls = true
	})
}

// WithKeyPrefix sets the namespace of every stored key. Default: "chunkdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithHNSW configures HNSW index parameters (M and EF construction).
// Defaults: M=16, EFConstruct=200.
func WithHNSW(m, efConstruct int) Option {
	return optionFunc(func(c *clientConfig) {
		c.hnswM = m
		c.hnswEFConstruct = efConstruct
	})
}

// WithDefaults sets the default search parameters, keyed like a runtime
// request (collection, top, having_all, ...).
func WithDefaults(params map[string]any) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaults = params
	})
}

// WithMaxCandidates sets the KNN size used when top is unbounded. Default: 1000.
func WithMaxCandidates(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxCandidates = n
	})
}

// WithDepthCache sizes the cache of probed hierarchy depths.
// Defaults: 256 entries, 30s.
func WithDepthCache(size int, ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.depthCache = size
		c.depthTTL = ttl
	})
}

// WithEmbedder sets the query embedder used by the text invoker.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithOpenAI embeds query text with an OpenAI-compatible API. WithEmbedder wins
// when both are set.
func WithOpenAI(cfg OpenAIConfig) Option {
	return optionFunc(func(c *clientConfig) {
		c.openai = &cfg
	})
}

// WithReadinessTimeout bounds the wait for the database on New. Default: 10s.
func WithReadinessTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readiness = d
	})
}

// WithLogger enables structured logging. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithMetrics registers per-operation counters and latency histograms on reg.
// Clients sharing a registry share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.registry = reg
	})
}
