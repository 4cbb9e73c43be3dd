package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/truongngoctrac/claims-search/internal/config"
	domlang "github.com/truongngoctrac/claims-search/internal/domain/language"
	"github.com/truongngoctrac/claims-search/internal/es"
	"github.com/truongngoctrac/claims-search/internal/facets"
	healthsvc "github.com/truongngoctrac/claims-search/internal/health"
	"github.com/truongngoctrac/claims-search/internal/language"
	logpkg "github.com/truongngoctrac/claims-search/internal/logger"
	"github.com/truongngoctrac/claims-search/internal/metrics"
	"github.com/truongngoctrac/claims-search/internal/optimizer"
	"github.com/truongngoctrac/claims-search/internal/relevance"
	modelrepo "github.com/truongngoctrac/claims-search/internal/repository/model"
	searchrepo "github.com/truongngoctrac/claims-search/internal/repository/search"
	testcaserepo "github.com/truongngoctrac/claims-search/internal/repository/testcase"
	searchsvc "github.com/truongngoctrac/claims-search/internal/search"
	"github.com/truongngoctrac/claims-search/internal/store/local"
	redisstore "github.com/truongngoctrac/claims-search/internal/store/redis"
	suggestsvc "github.com/truongngoctrac/claims-search/internal/suggest"
	chiTransport "github.com/truongngoctrac/claims-search/internal/transport/chi"
	"github.com/truongngoctrac/claims-search/internal/version"
)

const suggestCacheSize = 8192

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting claims-search API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("es_addresses", cfg.Elasticsearch.Addresses),
		zap.Strings("redis_addrs", cfg.Redis.Addrs),
	)

	store, err := redisstore.NewStore(redisstore.Config{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create document store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Document store not ready", zap.Error(err))
	}
	logger.Info("Connected to document store")

	esClient, err := es.NewClient(es.Config{
		Addresses:      cfg.Elasticsearch.Addresses,
		Username:       cfg.Elasticsearch.Username,
		Password:       cfg.Elasticsearch.Password,
		DefaultTimeout: time.Duration(cfg.Elasticsearch.TimeoutSec) * time.Second,
	})
	if err != nil {
		logger.Fatal("Failed to create index backend client", zap.Error(err))
	}

	// Register search pipeline metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	// Repositories
	searchRepo := searchrepo.New(esClient, cfg.Elasticsearch.Index)
	modelRepo := modelrepo.New(store)
	testCaseRepo := testcaserepo.New(store)

	// Composition root: repositories, then services, then transport.
	opt := optimizer.New(logger)
	relevanceSvc := relevance.New(modelRepo, testCaseRepo, searchRepo, cfg.Search.DefaultFields, logger)
	planner := facets.NewPlanner()
	facetUsage := facets.NewTracker(store, logger)

	// Suggestion memoization is node-local: entries live a few minutes and
	// losing them on restart only costs one backend round trip.
	suggestTTL := time.Duration(cfg.Suggest.CacheTTLSec) * time.Second
	suggestCache := local.NewCache(suggestCacheSize, suggestTTL)
	suggestSvc := suggestsvc.New(searchRepo, store, suggestCache, store, suggestsvc.Options{
		CacheTTL:    suggestTTL,
		DefaultSize: cfg.Suggest.DefaultSize,
		Synonyms:    cfg.Suggest.Synonyms,
	}, logger)

	languages := buildLanguageCoordinator(cfg.Language, logger)

	searchService := searchsvc.New(
		searchRepo, opt, relevanceSvc, planner, facetUsage,
		suggestSvc, languages, store,
		searchsvc.Defaults{
			Fields:        cfg.Search.DefaultFields,
			PageSize:      cfg.Search.DefaultPageSize,
			MaxPageSize:   cfg.Search.MaxPageSize,
			CrossLanguage: cfg.Language.CrossLanguage,
			NativeBoost:   cfg.Language.NativeBoost,
		},
		logger,
	)

	healthService := healthsvc.New(searchRepo, store)

	server := chiTransport.NewServer(
		searchService, relevanceSvc, testCaseRepo, suggestSvc,
		languages, opt, facetUsage, healthService, logger,
	)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildLanguageCoordinator assembles detection, translation dictionaries and
// fan-out configuration. Invalid entries are skipped with a warning so one
// bad dictionary does not take the server down.
func buildLanguageCoordinator(cfg config.LanguageConfig, logger *zap.Logger) *language.Coordinator {
	configs := make([]domlang.Config, 0, len(cfg.Languages))
	for _, entry := range cfg.Languages {
		lc, err := domlang.NewConfig(entry.Code, entry.Analyzer, nil, "", false)
		if err != nil {
			logger.Warn("Skipping invalid language entry",
				zap.String("code", entry.Code), zap.Error(err))
			continue
		}
		configs = append(configs, lc)
	}

	mappings := make([]domlang.Mapping, 0, len(cfg.Dictionaries))
	for _, dict := range cfg.Dictionaries {
		m, err := domlang.NewMapping(dict.Source, dict.Target, dict.Terms)
		if err != nil {
			logger.Warn("Skipping invalid translation dictionary",
				zap.String("source", dict.Source),
				zap.String("target", dict.Target),
				zap.Error(err))
			continue
		}
		mappings = append(mappings, m)
	}

	return language.NewCoordinator(language.NewDetector(), language.NewTranslator(mappings), configs, cfg.Default)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request.
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
