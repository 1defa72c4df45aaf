package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments exported over OTLP.
// Until InitOTel installs a meter provider the global no-op provider is used.
type OTelMetrics struct {
	validations        metric.Int64Counter
	validationDuration metric.Float64Histogram
	cacheLookups       metric.Int64Counter
	auditViolations    metric.Int64Gauge
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithProvider(otel.GetMeterProvider())
}

// NewOTelMetricsWithProvider creates the instruments on a given provider
func NewOTelMetricsWithProvider(provider metric.MeterProvider) (*OTelMetrics, error) {
	meter := provider.Meter("github.com/platinummonkey/unitgraph")

	m := &OTelMetrics{}
	var err error

	m.validations, err = meter.Int64Counter(
		"unitgraph.validations",
		metric.WithDescription("Includes mutations validated"),
		metric.WithUnit("{mutation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validations counter: %w", err)
	}

	m.validationDuration, err = meter.Float64Histogram(
		"unitgraph.validation.duration",
		metric.WithDescription("Includes mutation validation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create validation duration histogram: %w", err)
	}

	m.cacheLookups, err = meter.Int64Counter(
		"unitgraph.cache.lookups",
		metric.WithDescription("Closure cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookups counter: %w", err)
	}

	m.auditViolations, err = meter.Int64Gauge(
		"unitgraph.audit.violations",
		metric.WithDescription("Violations found by the last graph audit"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create audit violations gauge: %w", err)
	}

	return m, nil
}

// RecordValidation records one validated mutation
func (m *OTelMetrics) RecordValidation(ctx context.Context, result string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("result", result))
	m.validations.Add(ctx, 1, attrs)
	m.validationDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordCacheLookup records a closure cache hit or miss
func (m *OTelMetrics) RecordCacheLookup(ctx context.Context, kind string, hit bool) {
	m.cacheLookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.Bool("hit", hit),
	))
}

// RecordAudit records the violation count of an audit
func (m *OTelMetrics) RecordAudit(ctx context.Context, violations int) {
	m.auditViolations.Record(ctx, int64(violations))
}
