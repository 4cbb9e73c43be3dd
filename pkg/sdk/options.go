package claimsearch

import (
	"time"

	"go.uber.org/zap"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type dictionary struct {
	source string
	target string
	terms  map[string]string
}

type languageEntry struct {
	code     string
	analyzer string
}

type clientConfig struct {
	esAddrs    []string
	esUsername string
	esPassword string
	index      string

	redisAddrs    []string
	redisPassword string

	languages    []languageEntry
	dictionaries []dictionary
	synonyms     map[string][]string

	suggestCacheTTL  time.Duration
	readinessTimeout time.Duration

	logger *zap.Logger
}

// WithElasticsearch sets the index backend addresses. Required.
func WithElasticsearch(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esAddrs = addrs
	})
}

// WithBasicAuth sets Elasticsearch credentials.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.esUsername = username
		c.esPassword = password
	})
}

// WithIndex sets the search index name. Default: "claims".
func WithIndex(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.index = name
	})
}

// WithRedis sets the document/analytics store addresses. Required.
func WithRedis(addrs ...string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddrs = addrs
	})
}

// WithRedisPassword sets the store password.
func WithRedisPassword(password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisPassword = password
	})
}

// WithLanguage registers one searchable language and its analyzer.
// Default when none are registered: vi (vietnamese) and en (english).
func WithLanguage(code, analyzer string) Option {
	return optionFunc(func(c *clientConfig) {
		c.languages = append(c.languages, languageEntry{code: code, analyzer: analyzer})
	})
}

// WithDictionary registers a translation dictionary for one language pair.
func WithDictionary(source, target string, terms map[string]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.dictionaries = append(c.dictionaries, dictionary{source: source, target: target, terms: terms})
	})
}

// WithSynonyms sets the semantic suggestion table: lowercased word to its
// alternatives.
func WithSynonyms(synonyms map[string][]string) Option {
	return optionFunc(func(c *clientConfig) {
		c.synonyms = synonyms
	})
}

// WithSuggestCacheTTL sets the suggestion memoization TTL. Default: 5m.
func WithSuggestCacheTTL(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.suggestCacheTTL = ttl
	})
}

// WithReadinessTimeout bounds the initial store readiness check. Default: 10s.
func WithReadinessTimeout(timeout time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.readinessTimeout = timeout
	})
}

// WithLogger enables structured logging for pipeline operations.
// Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}
