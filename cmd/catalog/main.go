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
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalog/internal/config"
	"github.com/kailas-cloud/catalog/internal/db"
	"github.com/kailas-cloud/catalog/internal/db/memory"
	dbRedis "github.com/kailas-cloud/catalog/internal/db/redis"
	"github.com/kailas-cloud/catalog/internal/domain/search/query"
	logpkg "github.com/kailas-cloud/catalog/internal/logger"
	"github.com/kailas-cloud/catalog/internal/metrics"
	productrepo "github.com/kailas-cloud/catalog/internal/repository/product"
	amqpTransport "github.com/kailas-cloud/catalog/internal/transport/amqp"
	chiTransport "github.com/kailas-cloud/catalog/internal/transport/chi"
	cataloguc "github.com/kailas-cloud/catalog/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/catalog/internal/usecase/health"
	productuc "github.com/kailas-cloud/catalog/internal/usecase/product"
	"github.com/kailas-cloud/catalog/internal/version"
)

func main() {
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

	logger.Info("Starting catalog API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := newStore(cfg)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterCatalogMetrics()

	weights := weightsFromConfig(cfg.Search.Weights)
	repo := productrepo.New(store,
		productrepo.WithKeyPrefix(cfg.Storage.KeyPrefix),
		productrepo.WithTextWeights(weights),
	)
	if err := repo.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create product index", zap.Error(err))
	}

	var builderOpts []query.Option
	fullText := useFullText(ctx, cfg.Search.FullText, store)
	if fullText {
		builderOpts = append(builderOpts, query.WithFullText(weights))
	}
	logger.Info("Query builder configured",
		zap.Bool("full_text", fullText),
		zap.String("mode", cfg.Search.FullText),
	)

	// Events are optional; without a broker writes are not announced.
	var (
		publisher productuc.Publisher
		broker    healthuc.BrokerChecker
	)
	if cfg.Events.Enabled() {
		p, err := amqpTransport.Dial(cfg.Events.URL, cfg.Events.Prefix, logger)
		if err != nil {
			logger.Fatal("Failed to connect to event broker", zap.Error(err))
		}
		defer func() { _ = p.Close() }()
		publisher, broker = p, p
		logger.Info("Publishing product events", zap.String("prefix", cfg.Events.Prefix))
	}

	catalogSvc := cataloguc.New(
		cataloguc.NewInstrumentedRepository(repo, logger),
		query.NewBuilder(builderOpts...),
		logger,
	).WithMaxLimit(cfg.Catalog.MaxPageSize)
	productSvc := productuc.New(repo, publisher, logger)
	healthSvc := healthuc.New(store, broker)

	server := chiTransport.NewServer(catalogSvc, productSvc, healthSvc, logger).
		WithDefaultLimit(cfg.Catalog.DefaultPageSize)

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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newStore(cfg config.Config) (db.Store, error) {
	switch cfg.Database.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		var opts []memory.Option
		if cfg.Search.FullText != config.FullTextOff {
			opts = append(opts, memory.WithTextSearch())
		}
		return memory.New(opts...), nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// useFullText resolves the configured mode against the store's capability.
func useFullText(ctx context.Context, mode string, store db.IndexManager) bool {
	switch mode {
	case config.FullTextOn:
		return true
	case config.FullTextOff:
		return false
	}
	return store.SupportsTextSearch(ctx)
}

func weightsFromConfig(m map[string]float64) []query.FieldWeight {
	if len(m) == 0 {
		return query.DefaultWeights()
	}
	out := make([]query.FieldWeight, 0, len(m))
	for field, w := range m {
		out = append(out, query.FieldWeight{Field: field, Weight: w})
	}
	return out
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
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
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
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
