package observability

import (
	"context"
	"testing"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/actioncheck"
	"github.com/cavebatsofware/rate-limiter/internal/models"
	"github.com/cavebatsofware/rate-limiter/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupActionCheckProvider(t *testing.T) *Provider {
	t.Helper()
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9091}
	obs := models.ObservabilityConfig{
		ServiceName: "test",
		Tracing: models.TracingConfig{
			Enabled:    true,
			Exporter:   "stdout",
			SampleRate: 1.0,
		},
	}
	provider, err := Setup(metrics, obs, version.Info{})
	require.NoError(t, err)
	t.Cleanup(func() { provider.Shutdown(context.Background()) })
	return provider
}

func TestNewInstrumentedActionChecker(t *testing.T) {
	_ = setupActionCheckProvider(t)
	inner := actioncheck.NewMemoryChecker(0, time.Hour)

	instrumented, err := NewInstrumentedActionChecker(inner)
	require.NoError(t, err)
	assert.NotNil(t, instrumented)
}

func TestInstrumentedActionChecker_RecordAndCheck(t *testing.T) {
	_ = setupActionCheckProvider(t)
	inner := actioncheck.NewMemoryChecker(0, time.Hour)

	instrumented, err := NewInstrumentedActionChecker(inner)
	require.NoError(t, err)

	ctx := context.Background()

	err = instrumented.RecordAction(ctx, "203.0.113.7", "login_failed")
	assert.NoError(t, err)

	recent, err := instrumented.CheckRecentAction(ctx, "203.0.113.7", "login_failed", time.Minute)
	assert.NoError(t, err)
	assert.True(t, recent)

	recent, err = instrumented.CheckRecentAction(ctx, "203.0.113.7", "login_failed", 0)
	assert.NoError(t, err)
	assert.False(t, recent)
}

func TestInstrumentedActionChecker_CheckRecentAction_NoRecords(t *testing.T) {
	_ = setupActionCheckProvider(t)
	inner := actioncheck.NewMemoryChecker(0, time.Hour)

	instrumented, err := NewInstrumentedActionChecker(inner)
	require.NoError(t, err)

	recent, err := instrumented.CheckRecentAction(context.Background(), "203.0.113.7", "login_failed", time.Minute)
	assert.NoError(t, err)
	assert.False(t, recent)
}

func TestInstrumentedActionChecker_Close(t *testing.T) {
	_ = setupActionCheckProvider(t)
	inner := actioncheck.NewMemoryChecker(0, time.Hour)

	instrumented, err := NewInstrumentedActionChecker(inner)
	require.NoError(t, err)

	assert.NoError(t, instrumented.Close())
}

func TestInstrumentedActionChecker_ImplementsInterface(t *testing.T) {
	_ = setupActionCheckProvider(t)
	inner := actioncheck.NewMemoryChecker(0, time.Hour)

	instrumented, err := NewInstrumentedActionChecker(inner)
	require.NoError(t, err)

	var _ actioncheck.Checker = instrumented
}
