package xmon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return mp, reader
}

func collectGauges(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestEngine_OTelGauges(t *testing.T) {
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	e := New(Config{SampleInterval: time.Minute}, WithMeterProvider(mp))
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	for i := 0; i < 4; i++ {
		id := e.StartOperation("save-note", nil)
		e.EndOperation(id, i < 3, nil)
	}

	metrics := collectGauges(t, reader)
	require.Contains(t, metrics, metricOperationCount)
	require.Contains(t, metrics, metricOperationSuccessRate)
	require.Contains(t, metrics, metricOperationP95)

	count, ok := metrics[metricOperationCount].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, count.DataPoints, 1)
	assert.Equal(t, int64(4), count.DataPoints[0].Value)

	op, ok := count.DataPoints[0].Attributes.Value(attribute.Key("operation"))
	require.True(t, ok)
	assert.Equal(t, "save-note", op.AsString())

	rate, ok := metrics[metricOperationSuccessRate].Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, rate.DataPoints, 1)
	assert.InDelta(t, 0.75, rate.DataPoints[0].Value, 1e-9)
}

func TestEngine_OTelUnregisteredOnStop(t *testing.T) {
	mp, reader := newTestMeterProvider()
	defer func() { _ = mp.Shutdown(context.Background()) }()

	e := New(Config{SampleInterval: time.Minute}, WithMeterProvider(mp))
	require.NoError(t, e.Start(context.Background()))

	id := e.StartOperation("save-note", nil)
	e.EndOperation(id, true, nil)
	e.Stop()

	metrics := collectGauges(t, reader)
	if m, ok := metrics[metricOperationCount]; ok {
		gauge, isGauge := m.Data.(metricdata.Gauge[int64])
		require.True(t, isGauge)
		assert.Empty(t, gauge.DataPoints)
	}
}

func TestEngine_NoMeterProviderNoop(t *testing.T) {
	e := New(Config{SampleInterval: time.Minute})
	require.NoError(t, e.Start(context.Background()))
	defer e.Stop()

	id := e.StartOperation("save-note", nil)
	require.NotNil(t, e.EndOperation(id, true, nil))
}
