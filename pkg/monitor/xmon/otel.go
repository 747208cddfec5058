package xmon

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTel 指标名。
const (
	metricOperationCount       = "perfkit.operation.count"
	metricOperationSuccessRate = "perfkit.operation.success_rate"
	metricOperationP95         = "perfkit.operation.p95"
)

// registerGauges 注册 observable gauge，采集回调按操作名读取实时聚合。
func (e *Engine) registerGauges() error {
	meter := e.meterProvider.Meter(instrumentationName)

	count, err := meter.Int64ObservableGauge(
		metricOperationCount,
		metric.WithDescription("completed operations per name"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("xmon: create count gauge failed: %w", err)
	}

	successRate, err := meter.Float64ObservableGauge(
		metricOperationSuccessRate,
		metric.WithDescription("success rate per operation name"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("xmon: create success rate gauge failed: %w", err)
	}

	p95, err := meter.Float64ObservableGauge(
		metricOperationP95,
		metric.WithDescription("p95 latency per operation name"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("xmon: create p95 gauge failed: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for name, agg := range e.agg.Metrics() {
			attrs := metric.WithAttributes(attribute.String("operation", name))
			o.ObserveInt64(count, agg.Count, attrs)
			o.ObserveFloat64(successRate, agg.SuccessRate, attrs)
			o.ObserveFloat64(p95, agg.P95.Seconds(), attrs)
		}
		return nil
	}, count, successRate, p95)
	if err != nil {
		return fmt.Errorf("xmon: register callback failed: %w", err)
	}

	e.mu.Lock()
	e.registration = reg
	e.mu.Unlock()
	return nil
}
