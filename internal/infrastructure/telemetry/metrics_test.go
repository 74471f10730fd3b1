package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/ledger/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
)

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.MetricsConfig{ServiceName: "ledger-backend"}

	mp, err := telemetry.NewMeterProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, mp.IsEnabled())
	assert.Equal(t, cfg, mp.GetConfig())
	assert.NotNil(t, mp.Meter("ledger"))
	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestNewMeterProvider_Enabled(t *testing.T) {
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: "localhost:4317",
		ServiceName:       "ledger-backend",
		Insecure:          true,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.True(t, mp.IsEnabled())
	assert.NotNil(t, mp.Meter("ledger"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = mp.Shutdown(ctx)
}

func TestCounter(t *testing.T) {
	reader, provider := newManualMeter(t)
	counter, err := telemetry.NewCounter(provider.Meter("ledger"), "requests_total", "Requests", "1")
	require.NoError(t, err)

	ctx := context.Background()
	counter.Add(ctx, 5, telemetry.AttrHTTPMethod.String("POST"))
	counter.Inc(ctx, telemetry.AttrHTTPMethod.String("POST"))
	counter.Inc(ctx, telemetry.AttrHTTPMethod.String("GET"))

	sum, ok := collect(t, reader)["requests_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	byMethod := map[string]int64{}
	for _, dp := range sum.DataPoints {
		method, _ := dp.Attributes.Value(telemetry.AttrHTTPMethod)
		byMethod[method.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"POST": 6, "GET": 1}, byMethod)
}

func TestHistogram(t *testing.T) {
	tests := []struct {
		name   string
		bounds []float64
	}{
		{"custom boundaries", telemetry.DBDurationBuckets},
		{"sdk default boundaries", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader, provider := newManualMeter(t)
			h, err := telemetry.NewHistogram(provider.Meter("ledger"), telemetry.HistogramOpts{
				Name:       "query_seconds",
				Unit:       "s",
				Boundaries: tt.bounds,
			})
			require.NoError(t, err)

			h.Record(context.Background(), 0.02)
			h.RecordDuration(context.Background(), 250*time.Millisecond)

			hist, ok := collect(t, reader)["query_seconds"].Data.(metricdata.Histogram[float64])
			require.True(t, ok)
			require.Len(t, hist.DataPoints, 1)
			dp := hist.DataPoints[0]
			assert.Equal(t, uint64(2), dp.Count)
			assert.InDelta(t, 0.27, dp.Sum, 1e-9)
			if tt.bounds != nil {
				assert.Equal(t, tt.bounds, dp.Bounds)
			} else {
				assert.NotEmpty(t, dp.Bounds)
			}
		})
	}
}

func TestGauge(t *testing.T) {
	reader, provider := newManualMeter(t)
	g, err := telemetry.NewGauge(provider.Meter("ledger"), "pool_connections", "Pool connections", "{connection}")
	require.NoError(t, err)

	g.Record(context.Background(), 3, telemetry.AttrDBState.String("idle"))
	g.Record(context.Background(), 7, telemetry.AttrDBState.String("idle"))

	gauge, ok := collect(t, reader)["pool_connections"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(7), gauge.DataPoints[0].Value)
}

func TestBuckets_Ascending(t *testing.T) {
	for name, buckets := range map[string][]float64{
		"http":    telemetry.HTTPDurationBuckets,
		"db":      telemetry.DBDurationBuckets,
		"posting": telemetry.PostingDurationBuckets,
	} {
		t.Run(name, func(t *testing.T) {
			require.NotEmpty(t, buckets)
			for i := 1; i < len(buckets); i++ {
				assert.Greater(t, buckets[i], buckets[i-1])
			}
		})
	}
}
