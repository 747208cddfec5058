package xtrack

import "time"

// MetadataKeyErrorKind 是元数据中显式错误类别的保留键。
//
// 调用方可在失败点打上错误类别标签（如 "timeout"、"network"），
// 下游错误分析会优先采用此标签，而非对错误消息做子串推断。
const MetadataKeyErrorKind = "error_kind"

// Record 表示一次被追踪操作的完整记录。
//
// Start 创建后记录处于在途状态（EndTime 为零值）；End 恰好一次地将其
// 置为终态，之后不再变化。对外暴露的始终是值拷贝，调用方无法改写内部状态。
type Record struct {
	// ID 唯一标识一次 Start 调用。
	ID string

	// Name 为操作名称，聚合统计按此分组。
	Name string

	// StartTime 为开始时刻。
	StartTime time.Time

	// EndTime 为结束时刻，在途时为零值。
	EndTime time.Time

	// Duration 为端到端时延，终态后有效。
	Duration time.Duration

	// Success 表示操作是否成功，终态后有效。
	Success bool

	// MemoryDelta 为结束与开始时堆占用之差（字节），可为负。
	MemoryDelta int64

	// Metadata 为调用方附加的不透明键值对。
	Metadata map[string]string

	// Err 为失败时捕获的错误消息，成功时为空。
	Err string

	// ExceedsThreshold 表示时延是否超过该操作配置的阈值。
	ExceedsThreshold bool

	// startHeap 为开始时的堆占用快照，用于计算 MemoryDelta。
	startHeap uint64
}

// Active 报告记录是否仍在途。
func (r Record) Active() bool {
	return r.EndTime.IsZero()
}

// ErrorKind 返回显式标注的错误类别，未标注时返回空字符串。
func (r Record) ErrorKind() string {
	return r.Metadata[MetadataKeyErrorKind]
}

// EndResult 为 End 的返回值，汇总本次操作的度量结果。
type EndResult struct {
	// Latency 为端到端时延。
	Latency time.Duration

	// Success 表示操作是否成功。
	Success bool

	// MemoryDelta 为堆占用增量（字节）。
	MemoryDelta int64

	// ExceedsThreshold 表示时延是否超过配置阈值。
	ExceedsThreshold bool
}
