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

// Config holds the shopsearch API configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	LLM        LLMConfig        `yaml:"llm"`
	Cache      CacheConfig      `yaml:"cache"`
	Search     SearchConfig     `yaml:"search"`
	Promotions PromotionsConfig `yaml:"promotions"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
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

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// LLMConfig holds the query interpreter LLM settings.
// An empty APIKey disables the LLM; queries then use the rule-based expander.
type LLMConfig struct {
	Provider     string       `yaml:"provider"`
	APIKey       string       `yaml:"api_key"`
	BaseURL      string       `yaml:"base_url"`
	Model        string       `yaml:"model"`
	TimeoutMs    int          `yaml:"timeout_ms"`
	MaxTokens    int          `yaml:"max_tokens"`
	Temperature  float32      `yaml:"temperature"`
	JSONMode     bool         `yaml:"json_mode"`
	RateLimitRPS float64      `yaml:"rate_limit_rps"` // 0 = no admission limit
	RateBurst    int          `yaml:"rate_burst"`
	Budget       BudgetConfig `yaml:"budget"`
}

// Enabled reports whether an LLM credential is configured.
func (c LLMConfig) Enabled() bool { return c.APIKey != "" }

// Timeout returns the per-call interpretation timeout.
func (c LLMConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMs) * time.Millisecond }

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// Enabled reports whether any budget limit is set.
func (c BudgetConfig) Enabled() bool { return c.DailyTokenLimit > 0 || c.MonthlyTokenLimit > 0 }

// CacheConfig holds interpretation cache settings.
type CacheConfig struct {
	TTLHours      int              `yaml:"ttl_hours"`
	MaxEntries    int              `yaml:"max_entries"`
	EvictFraction float64          `yaml:"evict_fraction"`
	Version       int              `yaml:"version"`
	Persistent    PersistentConfig `yaml:"persistent"`
}

// TTL returns the entry time-to-live.
func (c CacheConfig) TTL() time.Duration { return time.Duration(c.TTLHours) * time.Hour }

// PersistentConfig holds the Redis-backed cache tier settings.
type PersistentConfig struct {
	Enabled        bool `yaml:"enabled"`
	ReadTimeoutMs  int  `yaml:"read_timeout_ms"`
	WriteTimeoutMs int  `yaml:"write_timeout_ms"`
	QueueSize      int  `yaml:"queue_size"`
	Workers        int  `yaml:"workers"`
}

// SearchConfig holds retrieval and merchant diversity settings.
type SearchConfig struct {
	EnsureIndex        bool  `yaml:"ensure_index"`
	FetchMultiplier    int   `yaml:"fetch_multiplier"`
	MaxTermGroups      int   `yaml:"max_term_groups"`
	MerchantCap        int   `yaml:"merchant_cap"`
	MinResults         int   `yaml:"min_results"`
	DiversityThreshold int   `yaml:"diversity_threshold"`
	RelaxSteps         []int `yaml:"relax_steps"`
}

// PromotionsConfig toggles promotion annotation.
type PromotionsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
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

// Parse decodes YAML configuration, expanding ${VAR} and ${VAR:-default}
// references, then applies defaults and validates.
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
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	c.applyLLMDefaults()
	c.applyCacheDefaults()
	c.applySearchDefaults()
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "shop:"
	}
}

func (c *Config) applyLLMDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.TimeoutMs <= 0 {
		c.LLM.TimeoutMs = 3000
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 300
	}
	if c.LLM.RateLimitRPS > 0 && c.LLM.RateBurst <= 0 {
		c.LLM.RateBurst = int(c.LLM.RateLimitRPS) + 1
	}
}

func (c *Config) applyCacheDefaults() {
	if c.Cache.TTLHours <= 0 {
		c.Cache.TTLHours = 24
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 2000
	}
	if c.Cache.EvictFraction <= 0 {
		c.Cache.EvictFraction = 0.1
	}
	if c.Cache.Version <= 0 {
		c.Cache.Version = 1
	}
	p := &c.Cache.Persistent
	if p.ReadTimeoutMs <= 0 {
		p.ReadTimeoutMs = 150
	}
	if p.WriteTimeoutMs <= 0 {
		p.WriteTimeoutMs = 2000
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 256
	}
	if p.Workers <= 0 {
		p.Workers = 2
	}
}

func (c *Config) applySearchDefaults() {
	if c.Search.FetchMultiplier <= 0 {
		c.Search.FetchMultiplier = 3
	}
	if c.Search.MaxTermGroups <= 0 {
		c.Search.MaxTermGroups = 3
	}
	if c.Search.MerchantCap <= 0 {
		c.Search.MerchantCap = 2
	}
	if c.Search.MinResults <= 0 {
		c.Search.MinResults = 8
	}
	if c.Search.DiversityThreshold <= 0 {
		c.Search.DiversityThreshold = 4
	}
	if c.Search.RelaxSteps == nil {
		c.Search.RelaxSteps = []int{4, 6, 0}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	switch c.LLM.Budget.Action {
	case "", "warn", "reject":
		// ok
	default:
		return fmt.Errorf("llm.budget.action must be \"warn\" or \"reject\", got %q", c.LLM.Budget.Action)
	}
	if c.LLM.RateLimitRPS < 0 {
		return fmt.Errorf("llm.rate_limit_rps must not be negative, got %v", c.LLM.RateLimitRPS)
	}
	if c.Cache.EvictFraction > 1 {
		return fmt.Errorf("cache.evict_fraction must be in (0, 1], got %v", c.Cache.EvictFraction)
	}
	for i, step := range c.Search.RelaxSteps {
		if step < 0 {
			return fmt.Errorf("search.relax_steps[%d] must not be negative, got %d", i, step)
		}
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
