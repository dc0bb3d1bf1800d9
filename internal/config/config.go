package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the riskrag service configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	WebSearch WebSearchConfig `yaml:"websearch"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig maps bearer tokens to user ids.
type AuthConfig struct {
	Tokens map[string]string `yaml:"tokens"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// StorageConfig selects and configures the assessment store.
type StorageConfig struct {
	Driver           string   `yaml:"driver"` // sqlite, redis (default: sqlite)
	SQLitePath       string   `yaml:"sqlite_path"`
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds language model settings.
type LLMConfig struct {
	Provider    string                       `yaml:"provider"` // groq, openai, anthropic, mock
	Temperature float64                      `yaml:"temperature"`
	MaxTokens   int                          `yaml:"max_tokens"`
	TimeoutSec  int                          `yaml:"timeout_sec"`
	Providers   map[string]LLMProviderConfig `yaml:"providers"`
}

// LLMProviderConfig holds per-provider credentials and model.
type LLMProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// EmbeddingConfig holds embedding settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"` // openai, hash
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Cache      bool   `yaml:"cache"`
	CacheTTLH  int    `yaml:"cache_ttl_hours"`
}

// IndexConfig holds knowledge base index and retrieval settings.
type IndexConfig struct {
	Dir         string `yaml:"dir"`
	ChunkSize   int    `yaml:"chunk_size"`
	Overlap     int    `yaml:"overlap"`
	KBK         int    `yaml:"kb_k"`
	WebK        int    `yaml:"web_k"`
	MaxContexts int    `yaml:"max_contexts"`
}

// WebSearchConfig holds web search adapter settings.
type WebSearchConfig struct {
	Provider       string  `yaml:"provider"` // none, duckduckgo, tavily
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Attempts       int     `yaml:"attempts"`
	BackoffBaseSec float64 `yaml:"backoff_base_sec"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// Timeout returns the model call timeout.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// Timeout returns the per-request web search timeout.
func (c WebSearchConfig) Timeout() time.Duration { return time.Duration(c.TimeoutSec) * time.Second }

// BackoffBase returns the retry backoff base.
func (c WebSearchConfig) BackoffBase() time.Duration {
	return time.Duration(c.BackoffBaseSec * float64(time.Second))
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

// Parse decodes YAML with ${VAR} expansion, applies defaults and validates.
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
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 180
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "data/riskrag.db"
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "riskrag:"
	}
	if c.Storage.ReadinessTimeout <= 0 {
		c.Storage.ReadinessTimeout = 10
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "groq"
	}
	if c.LLM.TimeoutSec <= 0 {
		c.LLM.TimeoutSec = 120
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 2048
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "hash"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-3-small"
	}
	if c.Embedding.CacheTTLH <= 0 {
		c.Embedding.CacheTTLH = 24 * 7
	}

	if c.Index.Dir == "" {
		c.Index.Dir = "data/kb"
	}
	if c.Index.ChunkSize <= 0 {
		c.Index.ChunkSize = 800
	}
	if c.Index.Overlap <= 0 {
		c.Index.Overlap = 150
	}
	if c.Index.KBK <= 0 {
		c.Index.KBK = 2
	}
	if c.Index.WebK <= 0 {
		c.Index.WebK = 2
	}
	if c.Index.MaxContexts <= 0 {
		c.Index.MaxContexts = 2
	}

	if c.WebSearch.Provider == "" {
		c.WebSearch.Provider = "none"
	}
	if c.WebSearch.Attempts <= 0 {
		c.WebSearch.Attempts = 3
	}
	if c.WebSearch.BackoffBaseSec <= 0 {
		c.WebSearch.BackoffBaseSec = 2
	}
	if c.WebSearch.RatePerSecond <= 0 {
		c.WebSearch.RatePerSecond = 1
	}
	if c.WebSearch.TimeoutSec <= 0 {
		c.WebSearch.TimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	switch c.Storage.Driver {
	case "sqlite":
	case "redis":
		if len(c.Storage.Addrs) == 0 {
			errs = append(errs, errors.New("storage.addrs is required for the redis driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver must be \"sqlite\" or \"redis\", got %q", c.Storage.Driver))
	}

	switch c.LLM.Provider {
	case "groq", "openai", "anthropic", "mock":
	default:
		errs = append(errs, fmt.Errorf("llm.provider must be one of groq, openai, anthropic, mock, got %q", c.LLM.Provider))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be between 0 and 2, got %g", c.LLM.Temperature))
	}

	switch c.Embedding.Provider {
	case "hash":
	case "openai":
		if c.Embedding.APIKey == "" {
			errs = append(errs, errors.New("embedding.api_key is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("embedding.provider must be \"openai\" or \"hash\", got %q", c.Embedding.Provider))
	}
	if c.Embedding.Cache && c.Storage.Driver != "redis" {
		errs = append(errs, errors.New("embedding.cache requires storage.driver redis"))
	}

	if c.Index.Overlap >= c.Index.ChunkSize {
		errs = append(errs, fmt.Errorf("index.overlap (%d) must be smaller than index.chunk_size (%d)",
			c.Index.Overlap, c.Index.ChunkSize))
	}

	switch c.WebSearch.Provider {
	case "none", "duckduckgo", "tavily":
	default:
		errs = append(errs, fmt.Errorf("websearch.provider must be one of none, duckduckgo, tavily, got %q",
			c.WebSearch.Provider))
	}

	return errors.Join(errs...)
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
