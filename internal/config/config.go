package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vibesearch/internal/domain"
)

// Vector backends.
const (
	BackendRedis  = "redis"
	BackendMilvus = "milvus"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
)

// Listing sources.
const (
	SourceFile  = "file"
	SourceRedis = "redis"
)

// Config holds the vibesearch configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Milvus    MilvusConfig    `yaml:"milvus"`
	Index     IndexConfig     `yaml:"index"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Vision    VisionConfig    `yaml:"vision"`
	Listings  ListingsConfig  `yaml:"listings"`
	Timeouts  TimeoutsConfig  `yaml:"timeouts"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string        `yaml:"level"` // debug, info, warn, error (default: determined by env)
	File  LogFileConfig `yaml:"file"`
}

// LogFileConfig enables a rotating log file next to stdout output.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeoutSec  int      `yaml:"read_timeout_sec"`
	WriteTimeoutSec int      `yaml:"write_timeout_sec"`
	ShutdownSec     int      `yaml:"shutdown_timeout_sec"`
	CORSOrigins     []string `yaml:"cors_origins"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// MilvusConfig holds Milvus connection settings, used when index.backend is milvus.
type MilvusConfig struct {
	Address  string `yaml:"address"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"db_name"`
}

// IndexConfig names the vector indexes. MaxLimit clamps requested result counts.
type IndexConfig struct {
	Backend          string `yaml:"backend"` // redis (default), milvus
	ListingIndex     string `yaml:"listing_index"`
	ImageIndex       string `yaml:"image_index"`
	ListingKeyPrefix string `yaml:"listing_key_prefix"`
	MaxLimit         int    `yaml:"max_limit"`
}

// EmbeddingConfig holds query embedding settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai (default), onnx
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`

	ONNXModelPath   string `yaml:"onnx_model_path"`
	ONNXVocabPath   string `yaml:"onnx_vocab_path"`
	ONNXLibraryPath string `yaml:"onnx_library_path"`

	CacheCapacity  int  `yaml:"cache_capacity"`
	SharedCache    bool `yaml:"shared_cache"`
	SharedCacheTTL int  `yaml:"shared_cache_ttl_sec"` // 0 = no expiry
}

// VisionConfig holds image description settings.
type VisionConfig struct {
	Enabled   *bool  `yaml:"enabled"` // default true
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	MaxImages int    `yaml:"max_images"`
	APIKey    string `yaml:"api_key"`  // falls back to embedding.api_key
	BaseURL   string `yaml:"base_url"` // falls back to embedding.base_url
}

// ListingsConfig selects where listing records are read from.
type ListingsConfig struct {
	Source    string `yaml:"source"` // file (default), redis
	Path      string `yaml:"path"`
	Watch     bool   `yaml:"watch"`
	KeyPrefix string `yaml:"key_prefix"`
}

// TimeoutsConfig holds per-call deadlines in milliseconds.
type TimeoutsConfig struct {
	EmbeddingMs int `yaml:"embedding_ms"`
	VisionMs    int `yaml:"vision_ms"`
	IndexMs     int `yaml:"index_ms"`
}

// Embedding returns the embedding deadline.
func (t TimeoutsConfig) Embedding() time.Duration { return ms(t.EmbeddingMs) }

// Vision returns the image description deadline.
func (t TimeoutsConfig) Vision() time.Duration { return ms(t.VisionMs) }

// Index returns the vector index deadline.
func (t TimeoutsConfig) Index() time.Duration { return ms(t.IndexMs) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

// RankingConfig holds photo ranking settings.
type RankingConfig struct {
	Parallelism int `yaml:"parallelism"`
}

// VisionEnabled reports whether image queries go to the description model.
func (c *Config) VisionEnabled() bool {
	return c.Vision.Enabled == nil || *c.Vision.Enabled
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references, decodes YAML, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from VIBESEARCH_ENV, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("VIBESEARCH_ENV"); env != "" {
		return env
	}
	return "local"
}

// GetLogLevel returns VIBESEARCH_LOG_LEVEL, which overrides logging.level.
func GetLogLevel() string {
	return os.Getenv("VIBESEARCH_LOG_LEVEL")
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5001
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
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}

	c.applyIndexDefaults()
	c.applyEmbeddingDefaults()

	if c.Vision.Model == "" {
		c.Vision.Model = "gpt-4o"
	}
	if c.Vision.MaxTokens <= 0 {
		c.Vision.MaxTokens = 100
	}
	if c.Vision.MaxImages <= 0 {
		c.Vision.MaxImages = 5
	}
	if c.Vision.APIKey == "" {
		c.Vision.APIKey = c.Embedding.APIKey
	}
	if c.Vision.BaseURL == "" {
		c.Vision.BaseURL = c.Embedding.BaseURL
	}

	if c.Listings.Source == "" {
		c.Listings.Source = SourceFile
	}
	if c.Listings.KeyPrefix == "" {
		c.Listings.KeyPrefix = c.Index.ListingKeyPrefix
	}

	if c.Timeouts.EmbeddingMs <= 0 {
		c.Timeouts.EmbeddingMs = 5000
	}
	if c.Timeouts.VisionMs <= 0 {
		c.Timeouts.VisionMs = 15000
	}
	if c.Timeouts.IndexMs <= 0 {
		c.Timeouts.IndexMs = 3000
	}
	if c.Ranking.Parallelism <= 0 {
		c.Ranking.Parallelism = 4
	}
}

func (c *Config) applyIndexDefaults() {
	if c.Index.Backend == "" {
		c.Index.Backend = BackendRedis
	}
	if c.Index.ListingIndex == "" {
		c.Index.ListingIndex = "vibesearch:listings:idx"
	}
	if c.Index.ImageIndex == "" {
		c.Index.ImageIndex = "vibesearch:images:idx"
	}
	if c.Index.ListingKeyPrefix == "" {
		c.Index.ListingKeyPrefix = "vibesearch:listing:"
	}
	if c.Index.MaxLimit <= 0 {
		c.Index.MaxLimit = 100
	}
}

func (c *Config) applyEmbeddingDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
	}
	if c.Embedding.Model == "" {
		switch c.Embedding.Provider {
		case ProviderONNX:
			c.Embedding.Model = "all-MiniLM-L6-v2"
		default:
			c.Embedding.Model = "text-embedding-3-small"
		}
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = domain.DefaultVectorConfig().Dimensions
	}
	if c.Embedding.CacheCapacity <= 0 {
		c.Embedding.CacheCapacity = 1024
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Index.Backend {
	case BackendRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case BackendMilvus:
		if c.Milvus.Address == "" {
			return fmt.Errorf("milvus.address is required for the milvus backend")
		}
	default:
		return fmt.Errorf("index.backend must be %q or %q, got %q", BackendRedis, BackendMilvus, c.Index.Backend)
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
	case ProviderONNX:
		if c.Embedding.ONNXModelPath == "" || c.Embedding.ONNXVocabPath == "" {
			return fmt.Errorf("embedding.onnx_model_path and embedding.onnx_vocab_path are required for the onnx provider")
		}
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q", ProviderOpenAI, ProviderONNX, c.Embedding.Provider)
	}

	if c.Embedding.SharedCache && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("embedding.shared_cache requires database.addrs")
	}

	switch c.Listings.Source {
	case SourceFile:
		if c.Listings.Path == "" {
			return fmt.Errorf("listings.path is required for the file source")
		}
	case SourceRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("listings.source redis requires database.addrs")
		}
	default:
		return fmt.Errorf("listings.source must be %q or %q, got %q", SourceFile, SourceRedis, c.Listings.Source)
	}
	return nil
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

	// 3. Fallback to ./config/
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
