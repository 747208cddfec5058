package xres

import (
	"runtime"
	"time"
)

// Sample 为一次进程资源快照。
type Sample struct {
	// Timestamp 为采集时刻。
	Timestamp time.Time `json:"timestamp"`

	// HeapUsed 为当前堆占用字节数。
	HeapUsed uint64 `json:"heapUsed"`

	// HeapTotal 为运行时向操作系统保留的堆字节数。
	HeapTotal uint64 `json:"heapTotal"`

	// RSS 为进程常驻内存字节数（非 Unix 平台为 0）。
	RSS uint64 `json:"rss"`

	// External 为堆外的运行时内存（栈、span 元数据等）字节数。
	External uint64 `json:"external"`

	// CPUUser 为用户态 CPU 累计秒数（非 Unix 平台为 0）。
	CPUUser float64 `json:"cpuUser"`

	// CPUSystem 为内核态 CPU 累计秒数（非 Unix 平台为 0）。
	CPUSystem float64 `json:"cpuSystem"`
}

// 采集函数变量，支持测试中 mock 替换以注入失败路径。
// 设计决策: 使用包级变量 mock 模式（与 xtrack 的时钟/堆快照一致）。
// 注意：mock 测试不可使用 t.Parallel()，因为替换包级变量会引发竞态。
var captureFunc = Capture

// Capture 采集一次进程资源快照。
//
// 堆指标来自 runtime.MemStats；CPU 与 RSS 来自平台相关实现，
// 平台实现失败时返回错误，堆指标不会部分返回。
func Capture() (Sample, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := Sample{
		Timestamp: time.Now(),
		HeapUsed:  ms.HeapAlloc,
		HeapTotal: ms.HeapSys,
		External:  ms.Sys - ms.HeapSys,
	}

	if err := captureOS(&s); err != nil {
		return Sample{}, err
	}
	return s, nil
}
