package xmon

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/omeyang/perfkit/xmon"

// Option 引擎配置选项。
type Option func(*Engine)

// WithLogger 设置日志器。nil 时使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMeterProvider 设置 OTel MeterProvider 并启用指标桥接。
//
// 注册三个 observable gauge（perfkit.operation.count、
// perfkit.operation.success_rate、perfkit.operation.p95），
// 采集回调读取实时聚合数据。不设置时引擎不产生任何 OTel 指标。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.meterProvider = provider
		}
	}
}

// WithTracerProvider 设置 OTel TracerProvider。
//
// 设置后 [Engine.TrackOperation] 为每次调用打开一个 span
// 并记录错误状态。不设置时追踪为空操作。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(e *Engine) {
		if provider != nil {
			e.tracerProvider = provider
		}
	}
}
