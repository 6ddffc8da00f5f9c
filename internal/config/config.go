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
)

// Config holds the nearby service configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	LLM          LLMConfig          `yaml:"llm"`
	Conversation ConversationConfig `yaml:"conversation"`
	Search       SearchConfig       `yaml:"search"`
	Cache        CacheConfig        `yaml:"cache"`
	Indexer      IndexerConfig      `yaml:"indexer"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
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

// DatabaseConfig holds the relational store settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig holds the semantic index and cache connection settings.
// An empty Addrs list disables semantic search; keyword fallback still works.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	HNSWM            int      `yaml:"hnsw_m"`
	HNSWEFConstruct  int      `yaml:"hnsw_ef_construction"`
}

// LLMConfig holds model provider settings.
type LLMConfig struct {
	Providers   map[string]ProviderConfig `yaml:"providers"`
	Classifier  ModelConfig               `yaml:"classifier"`
	Transformer ModelConfig               `yaml:"transformer"`
	Embedding   EmbeddingConfig           `yaml:"embedding"`
}

// ProviderConfig holds OpenAI-compatible provider credentials.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// ModelConfig holds chat model settings for one role.
type ModelConfig struct {
	Provider         string  `yaml:"provider"`
	Model            string  `yaml:"model"`
	MaxTokens        int     `yaml:"max_tokens"`
	Temperature      float32 `yaml:"temperature"`
	TimeoutSec       int     `yaml:"timeout_sec"`
	MaxResponseChars int     `yaml:"max_response_chars"`
}

// Timeout returns the per-call timeout.
func (m ModelConfig) Timeout() time.Duration {
	return time.Duration(m.TimeoutSec) * time.Second
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	QueryInstruction string `yaml:"query_instruction"`
}

// ConversationConfig holds loop controller settings.
type ConversationConfig struct {
	MaxIterations      int    `yaml:"max_iterations"`
	ClassifyTimeoutSec int    `yaml:"classify_timeout_sec"`
	HistoryLimit       int    `yaml:"history_limit"`
	FallbackReply      string `yaml:"fallback_reply"`
}

// SearchConfig holds orchestrator settings.
type SearchConfig struct {
	LocationTimeoutSec int     `yaml:"location_timeout_sec"`
	RadiusKm           float64 `yaml:"radius_km"`
	SemanticLimit      int     `yaml:"semantic_limit"`
	FallbackLimit      int     `yaml:"fallback_limit"`
	LegacyLimit        int     `yaml:"legacy_limit"`
	Concurrency        int     `yaml:"concurrency"`
}

// CacheConfig holds shareable snapshot settings.
type CacheConfig struct {
	ShareBaseURL    string `yaml:"share_base_url"`
	MaxSlugAttempts int    `yaml:"max_slug_attempts"`
	SnapshotTTLSec  int    `yaml:"snapshot_ttl_sec"`
}

// IndexerConfig holds reindex worker settings.
type IndexerConfig struct {
	Workers   int `yaml:"workers"`
	BatchSize int `yaml:"batch_size"`
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

// Parse decodes raw YAML, expands ${VAR} references, applies defaults and validates.
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

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/nearby.db"
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "nearby:"
	}
	if c.Redis.HNSWM <= 0 {
		c.Redis.HNSWM = 16
	}
	if c.Redis.HNSWEFConstruct <= 0 {
		c.Redis.HNSWEFConstruct = 200
	}

	applyModelDefaults(&c.LLM.Classifier, 512, 30)
	applyModelDefaults(&c.LLM.Transformer, 4096, 45)
	if c.LLM.Classifier.MaxResponseChars <= 0 {
		c.LLM.Classifier.MaxResponseChars = 8000
	}
	if c.LLM.Transformer.MaxResponseChars <= 0 {
		c.LLM.Transformer.MaxResponseChars = 64000
	}
	if c.LLM.Embedding.Dimensions <= 0 {
		c.LLM.Embedding.Dimensions = 1024
	}

	if c.Conversation.MaxIterations <= 0 {
		c.Conversation.MaxIterations = 3
	}
	if c.Conversation.ClassifyTimeoutSec <= 0 {
		c.Conversation.ClassifyTimeoutSec = 30
	}
	if c.Conversation.HistoryLimit <= 0 {
		c.Conversation.HistoryLimit = 20
	}
	if c.Conversation.FallbackReply == "" {
		c.Conversation.FallbackReply = "عذراً، لم أفهم طلبك. هل يمكنك إعادة صياغته؟"
	}

	if c.Search.LocationTimeoutSec <= 0 {
		c.Search.LocationTimeoutSec = 15
	}
	if c.Search.RadiusKm <= 0 {
		c.Search.RadiusKm = 10
	}
	if c.Search.SemanticLimit <= 0 {
		c.Search.SemanticLimit = 20
	}
	if c.Search.FallbackLimit <= 0 {
		c.Search.FallbackLimit = 10
	}
	if c.Search.LegacyLimit <= 0 {
		c.Search.LegacyLimit = 10
	}
	if c.Search.Concurrency <= 0 {
		c.Search.Concurrency = 4
	}

	if c.Cache.MaxSlugAttempts <= 0 {
		c.Cache.MaxSlugAttempts = 5
	}
	if c.Cache.SnapshotTTLSec <= 0 {
		c.Cache.SnapshotTTLSec = 3600
	}

	if c.Indexer.Workers <= 0 {
		c.Indexer.Workers = 8
	}
	if c.Indexer.BatchSize <= 0 {
		c.Indexer.BatchSize = 100
	}
}

func applyModelDefaults(m *ModelConfig, maxTokens, timeoutSec int) {
	if m.MaxTokens <= 0 {
		m.MaxTokens = maxTokens
	}
	if m.TimeoutSec <= 0 {
		m.TimeoutSec = timeoutSec
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Conversation.MaxIterations > 10 {
		return fmt.Errorf("conversation.max_iterations must be at most 10, got %d", c.Conversation.MaxIterations)
	}
	roles := map[string]string{
		"classifier":  c.LLM.Classifier.Provider,
		"transformer": c.LLM.Transformer.Provider,
		"embedding":   c.LLM.Embedding.Provider,
	}
	for role, name := range roles {
		if name == "" {
			continue
		}
		if _, ok := c.LLM.Providers[name]; !ok {
			return fmt.Errorf("llm.%s.provider references unknown provider %q", role, name)
		}
	}
	if c.LLM.Classifier.Model == "" {
		return fmt.Errorf("llm.classifier.model is required")
	}
	return nil
}

// Provider returns the credentials for the named provider.
func (c *Config) Provider(name string) ProviderConfig {
	return c.LLM.Providers[name]
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

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
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
