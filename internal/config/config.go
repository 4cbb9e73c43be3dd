package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the claims-search API configuration.
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Redis         RedisConfig         `yaml:"redis"`
	Auth          AuthConfig          `yaml:"auth"`
	Search        SearchConfig        `yaml:"search"`
	Suggest       SuggestConfig       `yaml:"suggest"`
	Language      LanguageConfig      `yaml:"language"`
	Logging       LoggingConfig       `yaml:"logging"`
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

// ElasticsearchConfig holds index backend connection settings.
type ElasticsearchConfig struct {
	Addresses  []string `yaml:"addresses"`
	Username   string   `yaml:"username"`
	Password   string   `yaml:"password"`
	Index      string   `yaml:"index"`
	TimeoutSec int      `yaml:"timeout_sec"`
}

// RedisConfig holds document/cache store connection settings.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// SearchConfig holds search pipeline settings.
type SearchConfig struct {
	DefaultPageSize int      `yaml:"default_page_size"`
	MaxPageSize     int      `yaml:"max_page_size"`
	DefaultFields   []string `yaml:"default_fields"`
}

// SuggestConfig holds suggestion aggregator settings.
type SuggestConfig struct {
	CacheTTLSec int                 `yaml:"cache_ttl_sec"`
	DefaultSize int                 `yaml:"default_size"`
	Synonyms    map[string][]string `yaml:"synonyms"`
}

// LanguageConfig holds language detection and fan-out settings.
type LanguageConfig struct {
	Default       string             `yaml:"default"`
	CrossLanguage bool               `yaml:"cross_language"`
	NativeBoost   bool               `yaml:"native_boost"`
	Languages     []LanguageEntry    `yaml:"languages"`
	Dictionaries  []DictionaryConfig `yaml:"dictionaries"`
}

// LanguageEntry configures one searchable language.
type LanguageEntry struct {
	Code     string `yaml:"code"`
	Analyzer string `yaml:"analyzer"`
}

// DictionaryConfig is one translation dictionary between a language pair.
type DictionaryConfig struct {
	Source string            `yaml:"source"`
	Target string            `yaml:"target"`
	Terms  map[string]string `yaml:"terms"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
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
	if c.Elasticsearch.Index == "" {
		c.Elasticsearch.Index = "claims"
	}
	if c.Elasticsearch.TimeoutSec <= 0 {
		c.Elasticsearch.TimeoutSec = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.Search.DefaultPageSize <= 0 {
		c.Search.DefaultPageSize = 10
	}
	if c.Search.MaxPageSize <= 0 {
		c.Search.MaxPageSize = 100
	}
	if len(c.Search.DefaultFields) == 0 {
		c.Search.DefaultFields = []string{
			"claim_number", "diagnosis", "treatment", "patient_name",
			"provider_name", "facility_name", "notes",
		}
	}
	if c.Suggest.CacheTTLSec <= 0 {
		c.Suggest.CacheTTLSec = 300
	}
	if c.Suggest.DefaultSize <= 0 {
		c.Suggest.DefaultSize = 10
	}
	if c.Language.Default == "" {
		c.Language.Default = "vi"
	}
	if len(c.Language.Languages) == 0 {
		c.Language.Languages = []LanguageEntry{
			{Code: "vi", Analyzer: "vietnamese"},
			{Code: "en", Analyzer: "english"},
		}
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch.addresses is required")
	}
	if len(c.Redis.Addrs) == 0 {
		return fmt.Errorf("redis.addrs is required")
	}
	known := make(map[string]bool, len(c.Language.Languages))
	for _, lang := range c.Language.Languages {
		if lang.Code == "" {
			return fmt.Errorf("language.languages entries need a code")
		}
		known[lang.Code] = true
	}
	if !known[c.Language.Default] {
		return fmt.Errorf("language.default %q is not in language.languages", c.Language.Default)
	}
	for _, d := range c.Language.Dictionaries {
		if d.Source == "" || d.Target == "" {
			return fmt.Errorf("language.dictionaries entries need source and target")
		}
		if d.Source == d.Target {
			return fmt.Errorf("language.dictionaries %s->%s: source and target must differ", d.Source, d.Target)
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
