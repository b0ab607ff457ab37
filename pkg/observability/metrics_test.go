package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/viewflux/viewflux/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.EngineMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	em, err := observability.NewEngineMetrics(meter)
	require.NoError(t, err)

	return em, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func TestEngineMetrics_RecordTransaction(t *testing.T) {
	t.Parallel()
	em, reader := setupTestMeter(t)
	ctx := context.Background()

	em.RecordTransaction(ctx, "filter", 3, time.Microsecond*50)

	rm := collectMetrics(t, reader)

	txTotal := findMetric(rm, "viewflux.transactions.total")
	require.NotNil(t, txTotal, "viewflux.transactions.total metric not found")

	txDuration := findMetric(rm, "viewflux.transaction.duration.seconds")
	require.NotNil(t, txDuration, "viewflux.transaction.duration.seconds metric not found")

	editOps := findMetric(rm, "viewflux.edit.ops")
	require.NotNil(t, editOps, "viewflux.edit.ops metric not found")
}

func TestEngineMetrics_TrackListener(t *testing.T) {
	t.Parallel()
	em, reader := setupTestMeter(t)
	ctx := context.Background()

	done := em.TrackListener(ctx, "flatten")

	rm := collectMetrics(t, reader)

	listeners := findMetric(rm, "viewflux.listeners.active")
	require.NotNil(t, listeners, "viewflux.listeners.active metric not found")

	sum, ok := listeners.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)

	done()

	rm = collectMetrics(t, reader)
	listeners = findMetric(rm, "viewflux.listeners.active")
	require.NotNil(t, listeners)

	sum, ok = listeners.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}
