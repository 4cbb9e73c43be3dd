package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP:          HTTPConfig{Port: 8080},
		Elasticsearch: ElasticsearchConfig{Addresses: []string{"http://localhost:9200"}},
		Redis:         RedisConfig{Addrs: []string{"localhost:6379"}},
		Language: LanguageConfig{
			Default:   "vi",
			Languages: []LanguageEntry{{Code: "vi"}, {Code: "en"}},
		},
	}
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingElasticsearchAddresses(t *testing.T) {
	cfg := validConfig()
	cfg.Elasticsearch.Addresses = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing elasticsearch addresses")
	}
}

func TestValidate_MissingRedisAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Addrs = nil

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing redis addrs")
	}
}

func TestValidate_DefaultLanguageMustBeConfigured(t *testing.T) {
	cfg := validConfig()
	cfg.Language.Default = "zh"

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unconfigured default language")
	}
}

func TestValidate_DictionaryPair(t *testing.T) {
	cfg := validConfig()
	cfg.Language.Dictionaries = []DictionaryConfig{{Source: "vi", Target: "vi"}}

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for same-language dictionary")
	}

	cfg.Language.Dictionaries = []DictionaryConfig{{Source: "vi", Target: ""}}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for dictionary without target")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 10 {
		t.Errorf("expected WriteTimeoutSec=10, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Elasticsearch.Index != "claims" {
		t.Errorf("expected Index='claims', got %q", cfg.Elasticsearch.Index)
	}
	if cfg.Elasticsearch.TimeoutSec != 10 {
		t.Errorf("expected TimeoutSec=10, got %d", cfg.Elasticsearch.TimeoutSec)
	}
	if cfg.Redis.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Redis.ReadinessTimeout)
	}
	if cfg.Search.DefaultPageSize != 10 {
		t.Errorf("expected DefaultPageSize=10, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Search.MaxPageSize != 100 {
		t.Errorf("expected MaxPageSize=100, got %d", cfg.Search.MaxPageSize)
	}
	if len(cfg.Search.DefaultFields) == 0 {
		t.Error("expected default search fields")
	}
	if cfg.Suggest.CacheTTLSec != 300 {
		t.Errorf("expected CacheTTLSec=300, got %d", cfg.Suggest.CacheTTLSec)
	}
	if cfg.Language.Default != "vi" {
		t.Errorf("expected default language 'vi', got %q", cfg.Language.Default)
	}
	if len(cfg.Language.Languages) != 2 {
		t.Errorf("expected 2 default languages, got %d", len(cfg.Language.Languages))
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:          HTTPConfig{ReadTimeoutSec: 30, WriteTimeoutSec: 60, ShutdownSec: 5},
		Elasticsearch: ElasticsearchConfig{Index: "claims_v2", TimeoutSec: 5},
		Redis:         RedisConfig{ReadinessTimeout: 15},
		Search:        SearchConfig{DefaultPageSize: 25, MaxPageSize: 500},
		Language:      LanguageConfig{Default: "en", Languages: []LanguageEntry{{Code: "en"}}},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("expected ReadTimeoutSec=30, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 60 {
		t.Errorf("expected WriteTimeoutSec=60, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.Elasticsearch.Index != "claims_v2" {
		t.Errorf("expected Index='claims_v2', got %q", cfg.Elasticsearch.Index)
	}
	if cfg.Search.DefaultPageSize != 25 {
		t.Errorf("expected DefaultPageSize=25, got %d", cfg.Search.DefaultPageSize)
	}
	if cfg.Language.Default != "en" {
		t.Errorf("expected default language 'en', got %q", cfg.Language.Default)
	}
	if len(cfg.Language.Languages) != 1 {
		t.Errorf("expected 1 language, got %d", len(cfg.Language.Languages))
	}
}
