package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/chunkdex/internal/config"
	"github.com/kailas-cloud/chunkdex/internal/db"
	dbRedis "github.com/kailas-cloud/chunkdex/internal/db/redis"
	dbValkey "github.com/kailas-cloud/chunkdex/internal/db/valkey"
	"github.com/kailas-cloud/chunkdex/internal/domain"
	"github.com/kailas-cloud/chunkdex/internal/domain/search/request"
	logpkg "github.com/kailas-cloud/chunkdex/internal/logger"
	"github.com/kailas-cloud/chunkdex/internal/metrics"
	chunkrepo "github.com/kailas-cloud/chunkdex/internal/repository/chunk"
	collectionrepo "github.com/kailas-cloud/chunkdex/internal/repository/collection"
	"github.com/kailas-cloud/chunkdex/internal/repository/embcache"
	"github.com/kailas-cloud/chunkdex/internal/repository/layout"
	searchrepo "github.com/kailas-cloud/chunkdex/internal/repository/search"
	chiTransport "github.com/kailas-cloud/chunkdex/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/chunkdex/internal/transport/openai"
	collectionuc "github.com/kailas-cloud/chunkdex/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/chunkdex/internal/usecase/document"
	healthuc "github.com/kailas-cloud/chunkdex/internal/usecase/health"
	searchuc "github.com/kailas-cloud/chunkdex/internal/usecase/search"
	"github.com/kailas-cloud/chunkdex/internal/version"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logCfg := cfg.Logging()
	logger, err := logpkg.NewLogger(env, logpkg.Options{Level: logCfg.Level, Format: logCfg.Format})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	conn := cfg.Connection()
	dbCfg := cfg.Database()
	httpCfg := cfg.HTTP()
	logger.Info("Starting chunkdex API server",
		zap.String("build", version.String()),
		zap.String("env", env),
		zap.Int("http_port", httpCfg.Port),
		zap.String("db_driver", dbCfg.Driver),
		zap.Strings("db_addrs", conn.Addrs()),
		zap.Bool("db_tls", conn.TLS()),
	)

	storeCfg := dbRedis.Config{
		Addrs:    conn.Addrs(),
		Password: dbCfg.Password,
		TLS:      conn.TLS(),
	}
	var store db.Store
	switch dbCfg.Driver {
	case "valkey":
		store, err = dbValkey.NewStore(storeCfg)
	case "redis":
		store, err = dbRedis.NewStore(storeCfg)
	default:
		logger.Fatal("Unknown database driver", zap.String("driver", dbCfg.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(dbCfg.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database", zap.Bool("text_search", store.SupportsTextSearch(ctx)))

	metrics.RegisterHTTPMetrics()
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterSearchMetrics()

	keys := layout.NewKeyspace(cfg.KeyPrefix())
	idx := cfg.Index()
	collRepo := collectionrepo.New(store, keys).WithHNSW(layout.HNSWConfig{
		M:           idx.HNSWM,
		EFConstruct: idx.HNSWEFConstruct,
	})
	chunkRepo := chunkrepo.New(store, keys)
	searchRepo := searchrepo.New(store, keys)

	searchCfg := cfg.Search()
	depths := searchuc.NewDepthCache(searchCfg.DepthCacheSize, cfg.DepthCacheTTL())

	opts := []searchuc.Option{
		searchuc.WithDepthCache(depths),
		searchuc.WithMaxCandidates(searchCfg.MaxCandidates),
	}
	embedder, embeddingChecker := buildEmbedder(cfg.Embedding(), keys.Prefix(), store, logger)
	if embedder != nil {
		opts = append(opts, searchuc.WithEmbedder(embedder))
	} else {
		logger.Info("Text search disabled: no embedding model configured")
	}

	collSvc := collectionuc.New(collRepo)
	docSvc := documentuc.New(chunkRepo, collRepo, depths)
	searchSvc := searchuc.New(request.NewResolver(cfg.Parameters()), searchRepo, collRepo, chunkRepo, opts...)
	healthSvc := healthuc.New(store, embeddingChecker)

	server := chiTransport.NewServer(collSvc, docSvc, searchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth().APIKeys))
	r.Use(metrics.Middleware())
	chiTransport.HandlerWithOptions(server, chiTransport.ChiServerOptions{
		BaseRouter:       r,
		ErrorHandlerFunc: chiTransport.ParamErrorHandler,
	})

	addr := fmt.Sprintf(":%d", httpCfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(httpCfg.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(httpCfg.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(httpCfg.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the query embedder chain: OpenAI -> Cached -> Instruction.
// The provider client is returned as the health checker since decorators
// hide it. Both are nil when no model is configured.
func buildEmbedder(
	cfg config.EmbeddingConfig, keyPrefix string, store db.Store, logger *zap.Logger,
) (domain.Embedder, healthuc.EmbeddingChecker) {
	if cfg.Model == "" {
		return nil, nil
	}

	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.Cache {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: keyPrefix,
			Model:     cfg.Model,
			TTL:       time.Duration(cfg.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	// Outermost, so the cache key includes the instruction
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	logger.Info("Query embedder created",
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("cache", cfg.Cache),
	)
	return embedder, base
}

// wideEventMiddleware attaches a request-scoped logger and writes one
// canonical log line per request.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.String("path", r.URL.Path),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorResponseCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
