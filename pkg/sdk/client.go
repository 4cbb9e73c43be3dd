package claimsearch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/es"
	"github.com/truongngoctrac/claims-search/internal/facets"
	"github.com/truongngoctrac/claims-search/internal/language"
	"github.com/truongngoctrac/claims-search/internal/optimizer"
	"github.com/truongngoctrac/claims-search/internal/relevance"
	modelrepo "github.com/truongngoctrac/claims-search/internal/repository/model"
	searchrepo "github.com/truongngoctrac/claims-search/internal/repository/search"
	testcaserepo "github.com/truongngoctrac/claims-search/internal/repository/testcase"
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
	"github.com/truongngoctrac/claims-search/internal/store/local"
	redisstore "github.com/truongngoctrac/claims-search/internal/store/redis"
	suggestsvc "github.com/truongngoctrac/claims-search/internal/suggest"
)

const (
	defaultIndex            = "claims"
	defaultSuggestCacheTTL  = 5 * time.Minute
	defaultReadinessTimeout = 10 * time.Second
	suggestCacheSize        = 8192
)

// Client is the claims-search SDK entry point.
type Client struct {
	store     *redisstore.Store
	search    *searchsvc.Service
	relevance *relevance.Service
	suggest   *suggestsvc.Service
	languages *language.Coordinator
	optimizer *optimizer.Optimizer
	testCases *testcaserepo.Repo
}

// New creates a Client and connects to the index backend and the store.
// The provided context bounds the initial store readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		index:            defaultIndex,
		suggestCacheTTL:  defaultSuggestCacheTTL,
		readinessTimeout: defaultReadinessTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}
	if len(cfg.esAddrs) == 0 {
		return nil, errors.New("claimsearch: elasticsearch address required (use WithElasticsearch)")
	}
	if len(cfg.redisAddrs) == 0 {
		return nil, errors.New("claimsearch: redis address required (use WithRedis)")
	}
	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := redisstore.NewStore(redisstore.Config{
		Addrs:    cfg.redisAddrs,
		Password: cfg.redisPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("claimsearch: create store: %w", err)
	}
	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("claimsearch: store not ready: %w", err)
	}

	esClient, err := es.NewClient(es.Config{
		Addresses: cfg.esAddrs,
		Username:  cfg.esUsername,
		Password:  cfg.esPassword,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("claimsearch: create index backend client: %w", err)
	}

	return wireClient(store, esClient, cfg, logger), nil
}

func wireClient(store *redisstore.Store, esClient *es.Client, cfg *clientConfig, logger *zap.Logger) *Client {
	searchRepo := searchrepo.New(esClient, cfg.index)
	modelRepo := modelrepo.New(store)
	testCaseRepo := testcaserepo.New(store)

	opt := optimizer.New(logger)
	relevanceSvc := relevance.New(modelRepo, testCaseRepo, searchRepo, nil, logger)
	planner := facets.NewPlanner()
	facetUsage := facets.NewTracker(store, logger)

	suggestCache := local.NewCache(suggestCacheSize, cfg.suggestCacheTTL)
	suggestSvc := suggestsvc.New(searchRepo, store, suggestCache, store, suggestsvc.Options{
		CacheTTL: cfg.suggestCacheTTL,
		Synonyms: cfg.synonyms,
	}, logger)

	languages := buildLanguages(cfg)

	searchService := searchsvc.New(
		searchRepo, opt, relevanceSvc, planner, facetUsage,
		suggestSvc, languages, store, searchsvc.Defaults{}, logger,
	)

	return &Client{
		store:     store,
		search:    searchService,
		relevance: relevanceSvc,
		suggest:   suggestSvc,
		languages: languages,
		optimizer: opt,
		testCases: testCaseRepo,
	}
}

func buildLanguages(cfg *clientConfig) *language.Coordinator {
	entries := cfg.languages
	if len(entries) == 0 {
		entries = []languageEntry{
			{code: "vi", analyzer: "vietnamese"},
			{code: "en", analyzer: "english"},
		}
	}
	configs := make([]domlang.Config, 0, len(entries))
	for _, e := range entries {
		if lc, err := domlang.NewConfig(e.code, e.analyzer, nil, "", false); err == nil {
			configs = append(configs, lc)
		}
	}
	mappings := make([]domlang.Mapping, 0, len(cfg.dictionaries))
	for _, d := range cfg.dictionaries {
		if m, err := domlang.NewMapping(d.source, d.target, d.terms); err == nil {
			mappings = append(mappings, m)
		}
	}
	fallback := ""
	if len(configs) > 0 {
		fallback = configs[0].Code
	}
	return language.NewCoordinator(language.NewDetector(), language.NewTranslator(mappings), configs, fallback)
}

// Close releases the store connection.
func (c *Client) Close() {
	c.store.Close()
}

// Ping checks the store connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
