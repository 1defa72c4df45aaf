package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/unitgraph/pkg/api"
	"github.com/platinummonkey/unitgraph/pkg/cache"
	"github.com/platinummonkey/unitgraph/pkg/config"
	"github.com/platinummonkey/unitgraph/pkg/httputil"
	"github.com/platinummonkey/unitgraph/pkg/integrity"
	"github.com/platinummonkey/unitgraph/pkg/observability"
	"github.com/platinummonkey/unitgraph/pkg/registry"
	"github.com/platinummonkey/unitgraph/pkg/seed"
	"github.com/platinummonkey/unitgraph/pkg/storage"
	"github.com/platinummonkey/unitgraph/pkg/storage/sqlstore"
)

// version is set at build time
var version = "dev"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat, os.Stdout)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create logger")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("unitgraph exited")
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (err error) {
	// Resources register their release as they are opened; if startup fails
	// before the servers run, everything opened so far is released here.
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	serving := false
	defer func() {
		if err != nil && !serving {
			if serr := shutdown.Shutdown(); serr != nil {
				logger.WithError(serr).Warn("Cleanup after failed startup")
			}
		}
	}()

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	store, err := openStore(cfg.Storage, logger)
	if err != nil {
		return err
	}
	shutdown.Register("store", func(context.Context) error { return store.Close() })

	closureCache, err := openCache(cfg.Storage, logger)
	if err != nil {
		return err
	}
	if closureCache != nil {
		shutdown.Register("cache", func(context.Context) error { return closureCache.Close() })
		// A shared cache may hold closures computed against another store.
		if err := closureCache.Invalidate(ctx); err != nil {
			logger.WithError(err).Warn("Failed to reset closure cache")
		}
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []registry.Option{registry.WithLogger(logger)}
	var apiOpts []api.Option
	if cfg.Observability.MetricsEnabled {
		metrics := observability.NewMetrics(promRegistry)
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			return fmt.Errorf("failed to create OpenTelemetry metrics: %w", err)
		}
		opts = append(opts, registry.WithMetrics(metrics), registry.WithOTelMetrics(otelMetrics))
		apiOpts = append(apiOpts, api.WithMetrics(metrics))
	}
	if closureCache != nil {
		opts = append(opts, registry.WithCache(closureCache))
	}
	reg := registry.New(store, opts...)

	if path := cfg.Integrity.SeedFile; path != "" {
		if err := importSeed(ctx, reg, path, logger); err != nil {
			return err
		}
	}

	if schedule := cfg.Integrity.AuditSchedule; schedule != "" {
		scheduler, err := integrity.NewScheduler(reg, schedule, 0, logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		shutdown.Register("integrity", scheduler.Stop)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      otelhttp.NewHandler(api.NewServer(reg, logger, apiOpts...), "unitgraph"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	checker := observability.NewHealthChecker(version)
	checker.Require("storage", store.HealthCheck)
	if redisCache, ok := closureCache.(*cache.RedisCache); ok {
		checker.Optional("cache", redisCache.Ping)
	}
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, checker)
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.MetricsHandler(promRegistry))
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: httputil.Chain(httputil.RequestIDMiddleware(logger), httputil.RecoveryMiddleware)(healthMux),
	}

	shutdown.AddServers(apiServer, healthServer)
	serving = true

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("Starting unitgraph API server")
		return serve(apiServer)
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("Starting health server")
		return serve(healthServer)
	})
	if cfg.Integrity.SeedWatch {
		g.Go(func() error {
			return seed.Watch(gctx, cfg.Integrity.SeedFile, time.Second, logger, func(f *seed.File) {
				if _, err := seed.Import(gctx, reg, f, logger); err != nil {
					logger.WithError(err).Error("Seed re-import failed")
				}
			})
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		return shutdown.Shutdown()
	})

	return g.Wait()
}

func serve(server *http.Server) error {
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server on %s failed: %w", server.Addr, err)
	}
	return nil
}

// openStore returns the configured store
func openStore(cfg storage.Config, logger logrus.FieldLogger) (storage.Store, error) {
	switch cfg.Type {
	case "postgres":
		logger.Info("Using PostgreSQL storage")
		return sqlstore.NewPostgres(cfg)
	case "sqlite":
		logger.WithField("path", cfg.SQLitePath).Info("Using SQLite storage")
		return sqlstore.NewSQLite(cfg.SQLitePath)
	default:
		logger.Warn("Using in-memory storage; data is lost on restart")
		return storage.NewMemoryStore(), nil
	}
}

// openCache returns the closure cache, or nil when caching is disabled
func openCache(cfg storage.Config, logger logrus.FieldLogger) (cache.Cache, error) {
	if !cfg.CacheEnabled {
		return nil, nil
	}
	ttl := cfg.CacheTTL["dependency_tree"]
	if cfg.RedisURL == "" {
		return cache.NewMemoryCache(cfg.L1CacheSize, ttl), nil
	}

	client, err := cache.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Using Redis closure cache")
	return cache.NewRedisCache(client, ttl), nil
}

func importSeed(ctx context.Context, reg *registry.Registry, path string, logger logrus.FieldLogger) error {
	f, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	if _, err := seed.Import(ctx, reg, f, logger); err != nil {
		return fmt.Errorf("seed import failed: %w", err)
	}
	return nil
}
