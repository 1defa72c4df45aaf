package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestOTelMetrics_Record(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer provider.Shutdown(ctx)

	m, err := NewOTelMetricsWithProvider(provider)
	require.NoError(t, err)

	m.RecordValidation(ctx, "accepted", time.Millisecond)
	m.RecordValidation(ctx, "cycle", time.Millisecond)
	m.RecordCacheLookup(ctx, "dependencies", true)
	m.RecordAudit(ctx, 2)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	names := make(map[string]bool)
	for _, metric := range rm.ScopeMetrics[0].Metrics {
		names[metric.Name] = true
		if metric.Name == "unitgraph.validations" {
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			assert.Len(t, sum.DataPoints, 2)
		}
	}
	assert.True(t, names["unitgraph.validations"])
	assert.True(t, names["unitgraph.validation.duration"])
	assert.True(t, names["unitgraph.cache.lookups"])
	assert.True(t, names["unitgraph.audit.violations"])
}

func TestNewOTelMetrics_GlobalProvider(t *testing.T) {
	m, err := NewOTelMetrics()
	require.NoError(t, err)
	// The default global provider is a no-op; recording must not panic.
	m.RecordValidation(context.Background(), "accepted", time.Millisecond)
}
