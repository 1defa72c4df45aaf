// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing and metrics, health checks and graceful shutdown.
//
// # Structured Logging
//
// Loggers are logrus loggers; request-scoped entries travel in the context:
//
//	logger, err := observability.NewLogger("info", "json", os.Stdout)
//	ctx = observability.WithLogger(ctx, logrus.NewEntry(logger))
//	observability.FromContext(ctx).WithField("version_id", id).Info("include added")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ObserveValidation("conflict", time.Since(start))
//
// # Health Checks
//
// Required probes make the service unhealthy when they fail, optional ones
// only degrade it:
//
//	checker := observability.NewHealthChecker(version)
//	checker.Require("storage", store.HealthCheck)
//	checker.Optional("cache", redisCache.Ping)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # Shutdown
//
// Steps run newest first after the HTTP servers drain:
//
//	sm := observability.NewShutdownManager(logger, 30*time.Second, apiServer)
//	sm.Register("store", func(context.Context) error { return store.Close() })
//	sm.Register("integrity", scheduler.Stop)
//	err := sm.Shutdown()
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "unitgraph",
//	}, logger)
//	defer providers.Shutdown(ctx)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/httputil: request id and logging middleware
package observability
