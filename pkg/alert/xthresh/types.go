package xthresh

import "time"

// Severity 表示违规严重度。
type Severity string

// 严重度分级，按 时延/阈值 比值划分。
const (
	// SeverityLow 比值 < 1.2。
	SeverityLow Severity = "low"
	// SeverityMedium 比值 < 1.5。
	SeverityMedium Severity = "medium"
	// SeverityHigh 比值 < 2.0。
	SeverityHigh Severity = "high"
	// SeverityCritical 比值 ≥ 2.0。
	SeverityCritical Severity = "critical"
)

// severityFor 按比值计算严重度。
func severityFor(ratio float64) Severity {
	switch {
	case ratio < 1.2:
		return SeverityLow
	case ratio < 1.5:
		return SeverityMedium
	case ratio < 2.0:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

// Violation 为一次阈值违规记录。
type Violation struct {
	// Timestamp 为违规发生时刻。
	Timestamp time.Time `json:"timestamp"`

	// OperationName 为操作名。
	OperationName string `json:"operationName"`

	// Duration 为实际时延。
	Duration time.Duration `json:"duration"`

	// Threshold 为配置阈值。
	Threshold time.Duration `json:"threshold"`

	// Excess = max(0, Duration − Threshold)。
	Excess time.Duration `json:"excess"`

	// Severity 为严重度分级。
	Severity Severity `json:"severity"`
}

// CheckResult 为一次阈值判定的结果。
type CheckResult struct {
	// Exceeded 表示是否超限。未配置阈值时恒为 false。
	Exceeded bool `json:"exceeded"`

	// Threshold 为该操作的配置阈值，未配置时为 0。
	Threshold time.Duration `json:"threshold"`

	// Excess = max(0, 时延 − 阈值)。
	Excess time.Duration `json:"excess"`

	// Severity 为超限时的严重度，未超限时为空。
	Severity Severity `json:"severity,omitempty"`
}

// 升级事件类型。
const (
	// EventTypeAlert 表示阈值告警。
	EventTypeAlert = "threshold_alert"
	// EventTypeAutoScale 表示自动扩容触发。
	EventTypeAutoScale = "auto_scale_trigger"
)

// Alert 为一次阈值告警，追加写入进程生命周期内的告警日志。
type Alert struct {
	// Timestamp 为告警时刻。
	Timestamp time.Time `json:"timestamp"`

	// OperationName 为操作名。
	OperationName string `json:"operationName"`

	// Violation 为触发本次告警的违规。
	Violation Violation `json:"violation"`

	// Type 恒为 [EventTypeAlert]。
	Type string `json:"type"`
}

// AutoScaleEvent 为一次自动扩容触发信号。本包只记录不执行。
type AutoScaleEvent struct {
	// Timestamp 为触发时刻。
	Timestamp time.Time `json:"timestamp"`

	// OperationName 为操作名。
	OperationName string `json:"operationName"`

	// Violation 为触发本次信号的违规。
	Violation Violation `json:"violation"`

	// Type 恒为 [EventTypeAutoScale]。
	Type string `json:"type"`
}
