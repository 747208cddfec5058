package xtrack

import (
	"go.opentelemetry.io/otel/trace"
)

// DefaultHistoryLimit 为已完成记录历史的默认容量。
const DefaultHistoryLimit = 1000

// Option 配置 Tracker 的选项函数。
type Option func(*options)

type options struct {
	historyLimit int
	sinks        []Sink
	threshold    ThresholdFunc
	tracer       trace.Tracer
}

func defaultOptions() *options {
	return &options{
		historyLimit: DefaultHistoryLimit,
	}
}

// WithHistoryLimit 设置已完成记录历史的容量上限。
// 非正值时保持默认值。
func WithHistoryLimit(limit int) Option {
	return func(o *options) {
		if limit > 0 {
			o.historyLimit = limit
		}
	}
}

// WithSink 注册完成回调。
// 每条记录进入终态后按注册顺序同步调用各 Sink。可多次调用以注册多个。
func WithSink(sink Sink) Option {
	return func(o *options) {
		if sink != nil {
			o.sinks = append(o.sinks, sink)
		}
	}
}

// WithThresholdFunc 设置时延阈值判定函数。
// 判定结果写入记录的 ExceedsThreshold 字段并随 EndResult 返回。
// 未设置时所有记录视为未超阈值。
func WithThresholdFunc(fn ThresholdFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.threshold = fn
		}
	}
}

// WithTracerProvider 设置 TracerProvider。
//
// 设置后 [Tracker.Track] 会为每次被包装的执行打开一个 span，
// 失败时记录错误状态。Start/End 裸调用不产生 span，因为两次调用
// 之间没有可传递的 context。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *options) {
		if provider != nil {
			o.tracer = provider.Tracer(instrumentationName)
		}
	}
}
