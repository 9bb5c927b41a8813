package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
)

// Config holds the chunkdex configuration as read from YAML.
type Config struct {
	Connection ConnectionConfig `yaml:"connection"`
	Parameters request.Params   `yaml:"parameters"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Search     SearchConfig     `yaml:"search"`
	Auth       AuthConfig       `yaml:"auth"`
	Index      IndexConfig      `yaml:"index"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ConnectionConfig holds the store endpoints. Every field is required;
// CHUNKDEX_* environment variables override the file.
type ConnectionConfig struct {
	HTTPHost   string `yaml:"http_host"`
	HTTPPort   int    `yaml:"http_port"`
	HTTPSecure *bool  `yaml:"http_secure"`
	GRPCHost   string `yaml:"grpc_host"`
	GRPCPort   int    `yaml:"grpc_port"`
	GRPCSecure *bool  `yaml:"grpc_secure"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error (default: determined by env)
	Format string `yaml:"format"` // json or console (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds store client settings. Addresses come from the
// connection section.
type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // valkey, redis (default: valkey)
	Password         string `yaml:"password"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// IndexConfig holds HNSW index settings.
type IndexConfig struct {
	HNSWM           int `yaml:"hnsw_m"`
	HNSWEFConstruct int `yaml:"hnsw_ef_construction"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// SearchConfig bounds query execution.
type SearchConfig struct {
	// MaxCandidates is the KNN K used when top is unbounded.
	MaxCandidates    int `yaml:"max_candidates"`
	DepthCacheSize   int `yaml:"depth_cache_size"`
	DepthCacheTTLSec int `yaml:"depth_cache_ttl_sec"`
}

// EmbeddingConfig holds the text search embedding settings. An empty model
// disables the text variant.
type EmbeddingConfig struct {
	Provider         ProviderConfig `yaml:"provider"`
	Model            string         `yaml:"model"`
	Dimensions       int            `yaml:"dimensions"`
	QueryInstruction string         `yaml:"query_instruction"`
	Cache            bool           `yaml:"cache"`
	CacheTTLSec      int            `yaml:"cache_ttl_sec"` // 0 keeps cached vectors forever
}

// ProviderConfig holds embedding provider settings.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// Environment variables overriding the connection section.
const (
	EnvHTTPHost   = "CHUNKDEX_HTTP_HOST"
	EnvHTTPPort   = "CHUNKDEX_HTTP_PORT"
	EnvHTTPSecure = "CHUNKDEX_HTTP_SECURE"
	EnvGRPCHost   = "CHUNKDEX_GRPC_HOST"
	EnvGRPCPort   = "CHUNKDEX_GRPC_PORT"
	EnvGRPCSecure = "CHUNKDEX_GRPC_SECURE"
)

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (*Layer, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (*Layer, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrConfig, path, err)
	}
	return Parse(data)
}

// Parse builds a Layer from YAML bytes.
func Parse(data []byte) (*Layer, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse: %w", domain.ErrConfig, err)
	}
	if err := cfg.applyEnvOverrides(os.LookupEnv); err != nil {
		return nil, err
	}
	return NewLayer(cfg)
}

// MustLoad loads configuration or panics.
func MustLoad(env string) *Layer {
	l, err := Load(env)
	if err != nil {
		panic(err)
	}
	return l
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Index.HNSWM <= 0 {
		c.Index.HNSWM = 16
	}
	if c.Index.HNSWEFConstruct <= 0 {
		c.Index.HNSWEFConstruct = 200
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "chunkdex:"
	}
	if c.Search.MaxCandidates <= 0 {
		c.Search.MaxCandidates = 1000
	}
	if c.Search.DepthCacheSize <= 0 {
		c.Search.DepthCacheSize = 256
	}
	if c.Search.DepthCacheTTLSec <= 0 {
		c.Search.DepthCacheTTLSec = 30
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	conn := c.Connection
	if strings.TrimSpace(conn.HTTPHost) == "" {
		return fmt.Errorf("connection.http_host is required")
	}
	if strings.TrimSpace(conn.GRPCHost) == "" {
		return fmt.Errorf("connection.grpc_host is required")
	}
	if conn.HTTPPort <= 0 || conn.HTTPPort > 65535 {
		return fmt.Errorf("connection.http_port must be between 1 and 65535, got %d", conn.HTTPPort)
	}
	if conn.GRPCPort <= 0 || conn.GRPCPort > 65535 {
		return fmt.Errorf("connection.grpc_port must be between 1 and 65535, got %d", conn.GRPCPort)
	}
	if conn.HTTPSecure == nil {
		return fmt.Errorf("connection.http_secure is required")
	}
	if conn.GRPCSecure == nil {
		return fmt.Errorf("connection.grpc_secure is required")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "valkey", "redis":
	default:
		return fmt.Errorf("database.driver must be \"valkey\" or \"redis\", got %q", c.Database.Driver)
	}
	if c.Embedding.Model != "" && c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions is required when embedding.model is set")
	}
	return nil
}

func (c *Config) applyEnvOverrides(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	port := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a port", domain.ErrConfig, key, v)
		}
		*dst = n
		return nil
	}
	flag := func(key string, dst **bool) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrConfig, key, v)
		}
		*dst = &b
		return nil
	}

	str(EnvHTTPHost, &c.Connection.HTTPHost)
	str(EnvGRPCHost, &c.Connection.GRPCHost)
	if err := port(EnvHTTPPort, &c.Connection.HTTPPort); err != nil {
		return err
	}
	if err := port(EnvGRPCPort, &c.Connection.GRPCPort); err != nil {
		return err
	}
	if err := flag(EnvHTTPSecure, &c.Connection.HTTPSecure); err != nil {
		return err
	}
	return flag(EnvGRPCSecure, &c.Connection.GRPCSecure)
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(strings.TrimSpace(host), strconv.Itoa(port))
}
