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
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/postfilter/internal/config"
	"github.com/kailas-cloud/postfilter/internal/db"
	dbBadger "github.com/kailas-cloud/postfilter/internal/db/badger"
	dbRedis "github.com/kailas-cloud/postfilter/internal/db/redis"
	logpkg "github.com/kailas-cloud/postfilter/internal/logger"
	"github.com/kailas-cloud/postfilter/internal/metrics"
	contentrepo "github.com/kailas-cloud/postfilter/internal/repository/content"
	"github.com/kailas-cloud/postfilter/internal/repository/querycache"
	"github.com/kailas-cloud/postfilter/internal/repository/ratelimit"
	"github.com/kailas-cloud/postfilter/internal/security"
	chiTransport "github.com/kailas-cloud/postfilter/internal/transport/chi"
	contentuc "github.com/kailas-cloud/postfilter/internal/usecase/content"
	facetsuc "github.com/kailas-cloud/postfilter/internal/usecase/facets"
	filteruc "github.com/kailas-cloud/postfilter/internal/usecase/filter"
	healthuc "github.com/kailas-cloud/postfilter/internal/usecase/health"
	listinguc "github.com/kailas-cloud/postfilter/internal/usecase/listing"
	"github.com/kailas-cloud/postfilter/internal/version"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

// app holds the wired components shared by every command.
type app struct {
	cfg     config.Config
	env     string
	logger  *zap.Logger
	store   *dbRedis.Store
	cache   db.KVStore
	content *contentrepo.Repo
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.logger.Sync()
}

// bootstrap loads configuration, builds the logger and connects the stores.
func bootstrap(ctx context.Context) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	a := &app{cfg: cfg, env: env, logger: logger}

	// Valkey with valkey-search speaks the same protocol through rueidis.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create %s store: %w", cfg.Database.Driver, err)
	}
	a.store = store
	a.closers = append(a.closers, store.Close)

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		a.Close()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	a.cache = store
	if cfg.Cache.Driver == "badger" {
		bs, err := dbBadger.Open(dbBadger.Config{
			Path:       cfg.Cache.Badger.Dir,
			InMemory:   cfg.Cache.Badger.InMemory,
			GCInterval: 10 * time.Minute,
		}, logger.Named("badger"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.cache = bs
		a.closers = append(a.closers, bs.Close)
	}

	a.content = contentrepo.New(store, cfg.Listing.Index, cfg.Listing.Schema())
	return a, nil
}

func serve(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.logger

	logger.Info("Starting postfilter API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", a.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("cache_driver", cfg.Cache.Driver),
		zap.Bool("shared_slot", cfg.Cache.SharedSlot),
	)

	// Register filtering metrics explicitly (no init())
	metrics.Register()

	if created, err := a.content.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	} else if created {
		logger.Info("Created content index", zap.String("index", a.content.IndexDefinition().Name))
	}

	schema := cfg.Listing.Schema()
	widgets, err := cfg.Listing.Registry()
	if err != nil {
		return fmt.Errorf("build widgets: %w", err)
	}

	signer, err := security.NewSigner(
		cfg.Security.NonceSecret, cfg.Security.FilterSecret,
		time.Duration(cfg.Security.NonceTTLSec)*time.Second,
		time.Duration(cfg.Security.FilterTTLSec)*time.Second,
	)
	if err != nil {
		return fmt.Errorf("create signer: %w", err)
	}

	slot := querycache.New(a.cache, cfg.Cache.Key, cfg.CacheTTL(), metrics.QueryCacheTotal, logger)
	listingSvc := listinguc.New(a.content, slot, signer, cfg.Cache.SharedSlot, metrics.ListingDuration)
	filterSvc := filteruc.New(signer, widgets, schema, slot, signer, listingSvc, metrics.CompileTotal)
	facetSvc := facetsuc.New(a.content, a.cache, schema, cfg.FacetsTTL(), metrics.FacetCacheTotal, logger)
	contentSvc := contentuc.New(a.content, schema)

	var cachePinger healthuc.Pinger
	if p, ok := a.cache.(db.Pinger); ok && cfg.Cache.Driver != "redis" {
		cachePinger = p
	}
	healthSvc := healthuc.New(a.store, cachePinger)

	server := chiTransport.NewServer(chiTransport.Services{
		Filter:  filterSvc,
		Listing: listingSvc,
		Facets:  facetSvc,
		Content: contentSvc,
		Health:  healthSvc,
		Nonces:  signer,
		Slot:    slot,
		Widgets: widgets,
	}, schema, cfg.Listing.Endpoint, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Register(r, cfg.Auth.APIKeys, newLimiter(cfg, a.cache, logger))

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

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// newLimiter builds the filter endpoint limiter. Returns nil when unlimited.
func newLimiter(cfg config.Config, kv db.KVStore, logger *zap.Logger) chiTransport.Limiter {
	if cfg.RateLimit.Requests <= 0 {
		return nil
	}
	rejected := metrics.RateLimitedTotal.WithLabelValues(cfg.RateLimit.Driver)
	logger.Info("Rate limiting filter submissions",
		zap.String("driver", cfg.RateLimit.Driver),
		zap.Int("requests", cfg.RateLimit.Requests),
		zap.Duration("window", cfg.RateWindow()),
	)
	if cfg.RateLimit.Driver == "memory" {
		return ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateWindow(), rejected)
	}
	return ratelimit.NewWindow(kv, cfg.RateLimit.Requests, cfg.RateWindow(), rejected)
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

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line: one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routePattern(r)),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		return rctx.RoutePattern()
	}
	return ""
}
