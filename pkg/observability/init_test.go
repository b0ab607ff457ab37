package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viewflux/viewflux/pkg/observability"
)

func TestInit_MetricsDisabled(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.Config{
		ServiceName: "viewflux-test",
	})
	require.NoError(t, err)

	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
	assert.Nil(t, providers.Registry)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_MetricsEnabled(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.Config{
		ServiceName:    "viewflux-test",
		ServiceVersion: "0.0.0-test",
		Environment:    "test",
		MetricsEnabled: true,
	})
	require.NoError(t, err)

	require.NotNil(t, providers.Registry)

	em, err := observability.NewEngineMetrics(providers.Meter)
	require.NoError(t, err)

	em.RecordTransaction(context.Background(), "filter", 1, 0)

	families, err := providers.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	require.NoError(t, providers.Shutdown(context.Background()))
}

func TestInit_ShutdownTimeoutApplied(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.Config{
		ServiceName:        "viewflux-test",
		MetricsEnabled:     true,
		ShutdownTimeoutSec: 1,
	})
	require.NoError(t, err)

	require.NoError(t, providers.Shutdown(context.Background()))
}
