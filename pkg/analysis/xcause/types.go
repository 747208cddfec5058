package xcause

import "time"

// Category 表示失败类别。
type Category string

// 失败类别取值。
const (
	CategoryTimeout     Category = "timeout"
	CategoryPermission  Category = "permission"
	CategoryNotFound    Category = "not_found"
	CategoryNetwork     Category = "network"
	CategoryValidation  Category = "validation"
	CategoryResource    Category = "resource"
	CategoryApplication Category = "application"
	CategoryUnknown     Category = "unknown"
)

// CategoryStat 为单个类别的统计。
type CategoryStat struct {
	// Category 为类别。
	Category Category `json:"category"`

	// Count 为该类别的失败次数。
	Count int `json:"count"`

	// Percent 为占全部失败的百分比。
	Percent float64 `json:"percent"`
}

// RateReport 为成功率统计。
type RateReport struct {
	// Total 为窗口内完成总数。
	Total int `json:"total"`

	// Success 为成功数。
	Success int `json:"success"`

	// Errors 为失败数。
	Errors int `json:"errors"`

	// SuccessRate ∈ [0,1]；Total 为 0 时取 1（无证据视为健康）。
	SuccessRate float64 `json:"successRate"`

	// ErrorRate = 1 − SuccessRate（Total > 0 时）。
	ErrorRate float64 `json:"errorRate"`
}

// CauseType 表示根因信号类型。
type CauseType string

// 根因信号类型取值。
const (
	// CauseSpike 表示失败尖峰（1 分钟桶内超过 5 次）。
	CauseSpike CauseType = "spike"
	// CauseRepeated 表示单操作反复失败（窗口内超过 10 次）。
	CauseRepeated CauseType = "repeated_failure"
	// CauseCorrelated 表示跨操作关联失败（5 秒内共现）。
	CauseCorrelated CauseType = "correlated_failures"
)

// RootCause 为一条根因信号。
type RootCause struct {
	// Type 为信号类型。
	Type CauseType `json:"type"`

	// Description 为人类可读描述。
	Description string `json:"description"`

	// Operations 为涉及的操作名（有序、去重）。
	Operations []string `json:"operations"`

	// Count 为涉及的失败次数。
	Count int `json:"count"`

	// Recommendation 为处置建议。
	Recommendation string `json:"recommendation"`

	// Bucket 为尖峰信号的时间桶起点，其余类型为零值。
	Bucket time.Time `json:"bucket,omitempty"`
}

// TrendDirection 表示成功率趋势方向。
type TrendDirection string

// 趋势方向取值。
const (
	TrendImproving TrendDirection = "improving"
	TrendDegrading TrendDirection = "degrading"
	TrendStable    TrendDirection = "stable"
)

// HealthStatus 表示整体健康状态。
type HealthStatus string

// 健康状态取值。
const (
	// HealthHealthy 成功率 ≥ 90%。
	HealthHealthy HealthStatus = "healthy"
	// HealthDegraded 成功率 < 90%。
	HealthDegraded HealthStatus = "degraded"
	// HealthCritical 成功率 < 80%。
	HealthCritical HealthStatus = "critical"
)

// Health 为健康评估。
type Health struct {
	// Status 为整体状态。
	Status HealthStatus `json:"status"`

	// Recommendations 为类别驱动的处置建议。
	Recommendations []string `json:"recommendations"`
}

// Report 为一次完整错误分析的结果。
type Report struct {
	// Rate 为窗口内成功率统计。
	Rate RateReport `json:"rate"`

	// Categories 为失败分类统计，按次数降序。
	Categories []CategoryStat `json:"categories"`

	// RootCauses 为根因信号列表。
	RootCauses []RootCause `json:"rootCauses"`

	// Trend 为成功率趋势。
	Trend TrendDirection `json:"trend"`

	// Health 为健康评估。
	Health Health `json:"health"`
}
