package xagg

import (
	"sort"
	"sync"
	"time"

	"github.com/omeyang/perfkit/internal/statutil"
	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// DefaultSampleLimit 为每个操作名保留的时延样本窗口默认容量。
const DefaultSampleLimit = 1000

// Aggregate 为单个操作名的统计快照。
type Aggregate struct {
	// Name 为操作名。
	Name string `json:"name"`

	// Count 为完成总次数。
	Count int64 `json:"count"`

	// SuccessCount 为成功次数。
	SuccessCount int64 `json:"successCount"`

	// ErrorCount 为失败次数。
	ErrorCount int64 `json:"errorCount"`

	// TotalDuration 为时延累计。
	TotalDuration time.Duration `json:"totalDuration"`

	// AvgDuration = TotalDuration / Count。
	AvgDuration time.Duration `json:"avgDuration"`

	// SuccessRate = SuccessCount / Count，∈ [0,1]。
	SuccessRate float64 `json:"successRate"`

	// P50/P90/P95/P99 为时延窗口的线性插值百分位数。
	P50 time.Duration `json:"p50"`
	P90 time.Duration `json:"p90"`
	P95 time.Duration `json:"p95"`
	P99 time.Duration `json:"p99"`
}

// entry 为单个操作名的内部状态。
type entry struct {
	agg     Aggregate
	samples []time.Duration // 环形时延窗口
	head    int
}

// Aggregator 维护按操作名分组的运行统计。
//
// 实现 [xtrack.Sink]，可直接注册到 Tracker 上。所有方法并发安全。
type Aggregator struct {
	sampleLimit int

	mu      sync.RWMutex
	entries map[string]*entry
}

// Option 配置 Aggregator 的选项函数。
type Option func(*Aggregator)

// WithSampleLimit 设置每个操作名的时延样本窗口容量。
// 非正值时保持默认值。
func WithSampleLimit(limit int) Option {
	return func(a *Aggregator) {
		if limit > 0 {
			a.sampleLimit = limit
		}
	}
}

// New 创建 Aggregator。
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		sampleLimit: DefaultSampleLimit,
		entries:     make(map[string]*entry),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// OnComplete 实现 [xtrack.Sink]：将完成记录并入对应操作名的统计。
func (a *Aggregator) OnComplete(rec xtrack.Record) {
	a.Record(rec.Name, rec.Duration, rec.Success)
}

// Record 将一次完成结果并入统计。
//
// 时延样本进入 FIFO 窗口（满时淘汰最旧），百分位数立即重算。
// 非正时延参与计数与成功率，但不进入百分位样本。
func (a *Aggregator) Record(name string, duration time.Duration, success bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	e, ok := a.entries[name]
	if !ok {
		e = &entry{
			agg:     Aggregate{Name: name},
			samples: make([]time.Duration, 0, a.sampleLimit),
		}
		a.entries[name] = e
	}

	e.agg.Count++
	if success {
		e.agg.SuccessCount++
	} else {
		e.agg.ErrorCount++
	}
	e.agg.TotalDuration += duration
	e.agg.AvgDuration = e.agg.TotalDuration / time.Duration(e.agg.Count)
	e.agg.SuccessRate = float64(e.agg.SuccessCount) / float64(e.agg.Count)

	if duration > 0 {
		if len(e.samples) < a.sampleLimit {
			e.samples = append(e.samples, duration)
		} else {
			e.samples[e.head] = duration
		}
		e.head = (e.head + 1) % a.sampleLimit
	}

	e.recomputePercentiles()
}

// recomputePercentiles 在当前样本窗口上重算百分位数。
func (e *entry) recomputePercentiles() {
	if len(e.samples) == 0 {
		return
	}
	sorted := make([]float64, len(e.samples))
	for i, d := range e.samples {
		sorted[i] = float64(d)
	}
	sort.Float64s(sorted)

	e.agg.P50 = time.Duration(statutil.PercentileSorted(sorted, 50))
	e.agg.P90 = time.Duration(statutil.PercentileSorted(sorted, 90))
	e.agg.P95 = time.Duration(statutil.PercentileSorted(sorted, 95))
	e.agg.P99 = time.Duration(statutil.PercentileSorted(sorted, 99))
}

// Metrics 返回操作名到统计快照的映射。
func (a *Aggregator) Metrics() map[string]Aggregate {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string]Aggregate, len(a.entries))
	for name, e := range a.entries {
		out[name] = e.agg
	}
	return out
}

// Get 返回单个操作名的统计快照。未知名称返回零值和 false。
func (a *Aggregator) Get(name string) (Aggregate, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, ok := a.entries[name]
	if !ok {
		return Aggregate{}, false
	}
	return e.agg, true
}
