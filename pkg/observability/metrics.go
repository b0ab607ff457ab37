package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTransactionsTotal   = "viewflux.transactions.total"
	metricTransactionDuration = "viewflux.transaction.duration.seconds"
	metricEditOps             = "viewflux.edit.ops"
	metricActiveListeners     = "viewflux.listeners.active"

	attrView = "view"
)

// durationBucketBoundaries covers 1us to 1s; transactions are in-memory
// index updates and fan-out, never I/O.
var durationBucketBoundaries = []float64{
	0.000001, 0.00001, 0.0001, 0.001, 0.01, 0.1, 0.25, 0.5, 1,
}

// opCountBucketBoundaries covers single-edit transactions up to bulk loads.
var opCountBucketBoundaries = []float64{1, 2, 5, 10, 50, 100, 500, 1000, 10000}

// EngineMetrics holds the OTel instruments for collection engine activity.
type EngineMetrics struct {
	transactionsTotal   metric.Int64Counter
	transactionDuration metric.Float64Histogram
	editOps             metric.Int64Histogram
	activeListeners     metric.Int64UpDownCounter
}

// NewEngineMetrics creates the engine metric instruments from the given meter.
func NewEngineMetrics(mt metric.Meter) (*EngineMetrics, error) {
	txTotal, err := mt.Int64Counter(metricTransactionsTotal,
		metric.WithDescription("Total number of committed transactions"),
		metric.WithUnit("{transaction}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTransactionsTotal, err)
	}

	txDuration, err := mt.Float64Histogram(metricTransactionDuration,
		metric.WithDescription("Transaction duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTransactionDuration, err)
	}

	ops, err := mt.Int64Histogram(metricEditOps,
		metric.WithDescription("Number of edit operations per transaction"),
		metric.WithUnit("{op}"),
		metric.WithExplicitBucketBoundaries(opCountBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEditOps, err)
	}

	listeners, err := mt.Int64UpDownCounter(metricActiveListeners,
		metric.WithDescription("Number of active edit-channel listeners"),
		metric.WithUnit("{listener}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricActiveListeners, err)
	}

	return &EngineMetrics{
		transactionsTotal:   txTotal,
		transactionDuration: txDuration,
		editOps:             ops,
		activeListeners:     listeners,
	}, nil
}

// RecordTransaction records one committed transaction against a view with
// its operation count and duration.
func (em *EngineMetrics) RecordTransaction(ctx context.Context, view string, opCount int, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String(attrView, view))

	em.transactionsTotal.Add(ctx, 1, attrs)
	em.transactionDuration.Record(ctx, duration.Seconds(), attrs)
	em.editOps.Record(ctx, int64(opCount), attrs)
}

// TrackListener increments the active-listener gauge and returns a function
// to decrement it when the listener unsubscribes.
func (em *EngineMetrics) TrackListener(ctx context.Context, view string) func() {
	attrs := metric.WithAttributes(attribute.String(attrView, view))
	em.activeListeners.Add(ctx, 1, attrs)

	return func() {
		em.activeListeners.Add(ctx, -1, attrs)
	}
}
