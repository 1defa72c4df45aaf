package registry

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/unitgraph/pkg/cache"
	"github.com/platinummonkey/unitgraph/pkg/dependencies"
	"github.com/platinummonkey/unitgraph/pkg/observability"
	"github.com/platinummonkey/unitgraph/pkg/storage"
)

var registryTracer = otel.Tracer("unitgraph/registry")

// Registry is the service layer over a store: catalog operations pass
// through, includes mutations are validated by the graph engine inside the
// store's unit of work, and closures are served through the cache.
type Registry struct {
	store   storage.Store
	cache   cache.Cache
	metrics *observability.Metrics
	otel    *observability.OTelMetrics
	logger  logrus.FieldLogger
	now     func() time.Time
}

// Option configures a Registry
type Option func(*Registry)

// WithCache serves closures through c
func WithCache(c cache.Cache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithMetrics records Prometheus metrics
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// WithOTelMetrics records OpenTelemetry metrics
func WithOTelMetrics(m *observability.OTelMetrics) Option {
	return func(r *Registry) { r.otel = m }
}

// WithLogger sets the fallback logger for calls without one in the context
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Registry) { r.logger = l }
}

// New creates a registry over store
func New(store storage.Store, opts ...Option) *Registry {
	r := &Registry{
		store:  store,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the underlying store
func (r *Registry) Store() storage.Store {
	return r.store
}

func (r *Registry) log(ctx context.Context) logrus.FieldLogger {
	if _, ok := ctx.Value(observability.LoggerKey).(*logrus.Entry); ok {
		return observability.FromContext(ctx)
	}
	return observability.WithTraceContext(ctx, r.logger.WithFields(logrus.Fields{}))
}

// invalidate drops cached closures after the graph changed. A failing cache
// is logged, not returned: the mutation is already committed.
func (r *Registry) invalidate(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.Invalidate(ctx); err != nil {
		r.log(ctx).WithError(err).Warn("Failed to invalidate closure cache")
	}
}

// validationResult is the metric label of a mutation outcome
func validationResult(err error) string {
	var verr *dependencies.ValidationError
	switch {
	case err == nil:
		return "accepted"
	case errors.As(err, &verr):
		return string(verr.Kind)
	default:
		return "error"
	}
}

func (r *Registry) observeValidation(ctx context.Context, err error, d time.Duration) {
	result := validationResult(err)
	if r.metrics != nil {
		r.metrics.ObserveValidation(result, d)
	}
	if r.otel != nil {
		r.otel.RecordValidation(ctx, result, d)
	}
}

func (r *Registry) observeCache(ctx context.Context, kind cache.Kind, hit bool) {
	if r.metrics != nil {
		if hit {
			r.metrics.CacheHitsTotal.WithLabelValues(string(kind)).Inc()
		} else {
			r.metrics.CacheMissesTotal.WithLabelValues(string(kind)).Inc()
		}
	}
	if r.otel != nil {
		r.otel.RecordCacheLookup(ctx, string(kind), hit)
	}
}

// fail records err on the span and returns it
func fail(span trace.Span, err error, msg string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
	return err
}
