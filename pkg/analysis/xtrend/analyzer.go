package xtrend

import (
	"log/slog"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/omeyang/perfkit/internal/statutil"
)

// 分析参数常量。
const (
	// SampleCap 为内存采样历史容量。
	SampleCap = 100

	// minAnalysisSamples 为输出趋势分析所需的最少样本数。
	minAnalysisSamples = 10

	// trendWindow 为趋势回归的样本窗口。
	trendWindow = 20

	// gcWindow 为 GC 有效性的样本窗口。
	gcWindow = 10

	// leakMinSamples 为泄漏启发式所需的最少样本数。
	leakMinSamples = 30

	// leakWindow 为递增占比的样本窗口。
	leakWindow = 30

	// slopeIncreasing/slopeDecreasing 为趋势斜率阈值（MB/s）。
	slopeIncreasing = 0.5
	slopeDecreasing = -0.5

	// leakSlopeFloor 为泄漏判定的最小斜率（MB/s）。
	leakSlopeFloor = 1.0

	// leakIncreaseRatio 为泄漏判定的递增占比门限。
	leakIncreaseRatio = 0.7

	// leakGCCeiling 为泄漏判定的 GC 有效性上限。
	leakGCCeiling = 0.3

	// leakWarnConfidence 为记录告警日志的置信度门限。
	leakWarnConfidence = 0.7
)

// Trend 表示内存使用趋势。
type Trend string

// 趋势取值。
const (
	// TrendIncreasing 斜率 > 0.5 MB/s。
	TrendIncreasing Trend = "increasing"
	// TrendDecreasing 斜率 < −0.5 MB/s。
	TrendDecreasing Trend = "decreasing"
	// TrendStable 其余情况。
	TrendStable Trend = "stable"
	// TrendUnknown 样本不足，尚无法判断。
	TrendUnknown Trend = "unknown"
)

// Status 表示堆使用率健康状态。
type Status string

// 健康状态取值。
const (
	// StatusHealthy 堆使用率 ≤ 75%。
	StatusHealthy Status = "healthy"
	// StatusWarning 堆使用率 > 75%。
	StatusWarning Status = "warning"
	// StatusCritical 堆使用率 > 90%。
	StatusCritical Status = "critical"
)

// MemorySample 为一次内存快照（资源快照的内存子集）。
type MemorySample struct {
	// Timestamp 为采集时刻。
	Timestamp time.Time `json:"timestamp"`

	// HeapUsed 为堆占用字节数。
	HeapUsed uint64 `json:"heapUsed"`

	// HeapTotal 为堆保留字节数。
	HeapTotal uint64 `json:"heapTotal"`
}

// Report 为一次采样后的趋势报告。
type Report struct {
	// Sample 为本次快照。
	Sample MemorySample `json:"sample"`

	// SampleCount 为当前历史条数。
	SampleCount int `json:"sampleCount"`

	// Trend 为内存趋势，样本不足时为 [TrendUnknown]。
	Trend Trend `json:"trend"`

	// Slope 为回归斜率（MB/s），样本不足时为 0。
	Slope float64 `json:"slope"`

	// GCEffectiveness ∈ [0,1]，样本不足时为 0。
	GCEffectiveness float64 `json:"gcEffectiveness"`

	// HasLeak 表示是否命中泄漏启发式。
	HasLeak bool `json:"hasLeak"`

	// LeakConfidence ∈ [0,1]，泄漏判定的置信度。
	LeakConfidence float64 `json:"leakConfidence"`
}

// Assessment 为趋势报告叠加堆使用率评估。
type Assessment struct {
	Report

	// HeapUsagePercent = HeapUsed/HeapTotal·100。
	HeapUsagePercent float64 `json:"heapUsagePercent"`

	// Status 为健康状态。
	Status Status `json:"status"`

	// Recommendation 为对应的处置建议。
	Recommendation string `json:"recommendation"`
}

// 采集函数变量，支持测试中 mock 替换。
var captureMemory = func() MemorySample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemorySample{
		Timestamp: time.Now(),
		HeapUsed:  ms.HeapAlloc,
		HeapTotal: ms.HeapSys,
	}
}

// Option 配置 Analyzer 的选项函数。
type Option func(*Analyzer)

// WithLogger 设置日志记录器。默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(a *Analyzer) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Analyzer 维护封顶 100 条的内存采样历史并计算趋势/泄漏信号。
// 所有方法并发安全。
type Analyzer struct {
	logger *slog.Logger

	mu      sync.Mutex
	samples []MemorySample
}

// New 创建 Analyzer。
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		logger:  slog.Default(),
		samples: make([]MemorySample, 0, SampleCap),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(a)
	}
	return a
}

// Sample 采集一次内存快照、并入历史并返回趋势报告。
func (a *Analyzer) Sample() Report {
	return a.Observe(captureMemory())
}

// Observe 将外部采集的内存快照并入历史并返回趋势报告。
// 历史超过容量时淘汰最旧样本。
func (a *Analyzer) Observe(s MemorySample) Report {
	a.mu.Lock()

	if len(a.samples) >= SampleCap {
		a.samples = append(a.samples[1:], s)
	} else {
		a.samples = append(a.samples, s)
	}

	report := a.analyzeLocked(s)
	a.mu.Unlock()

	if report.HasLeak && report.LeakConfidence > leakWarnConfidence {
		a.logger.Warn("memory leak suspected",
			slog.Float64("confidence", report.LeakConfidence),
			slog.Float64("slopeMBPerSec", report.Slope),
			slog.Float64("gcEffectiveness", report.GCEffectiveness),
		)
	}
	return report
}

// analyzeLocked 在当前历史上计算趋势报告。调用方必须持有 a.mu。
func (a *Analyzer) analyzeLocked(latest MemorySample) Report {
	report := Report{
		Sample:      latest,
		SampleCount: len(a.samples),
		Trend:       TrendUnknown,
	}
	if len(a.samples) < minAnalysisSamples {
		return report
	}

	report.Slope = a.slopeLocked()
	switch {
	case report.Slope > slopeIncreasing:
		report.Trend = TrendIncreasing
	case report.Slope < slopeDecreasing:
		report.Trend = TrendDecreasing
	default:
		report.Trend = TrendStable
	}

	report.GCEffectiveness = a.gcEffectivenessLocked()

	if len(a.samples) >= leakMinSamples {
		ratio := a.increaseRatioLocked()
		report.LeakConfidence = statutil.Clamp01(
			0.4*ratio +
				0.4*math.Min(report.Slope, 5)/5 +
				0.2*(1-report.GCEffectiveness))
		report.HasLeak = report.Trend == TrendIncreasing &&
			report.Slope > leakSlopeFloor &&
			ratio > leakIncreaseRatio &&
			report.GCEffectiveness < leakGCCeiling
	}
	return report
}

// slopeLocked 在最近 trendWindow 条样本上回归堆占用（MB）对经过时间（s）。
func (a *Analyzer) slopeLocked() float64 {
	window := tail(a.samples, trendWindow)
	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	base := window[0].Timestamp
	for i, s := range window {
		xs[i] = s.Timestamp.Sub(base).Seconds()
		ys[i] = float64(s.HeapUsed) / (1024 * 1024)
	}
	slope, ok := statutil.LinearSlope(xs, ys)
	if !ok {
		return 0
	}
	return slope
}

// gcEffectivenessLocked 计算最近 gcWindow 条样本上 总下降/总上升 的比值。
// 没有观察到上升时取 1.0（假定健康）。
func (a *Analyzer) gcEffectivenessLocked() float64 {
	window := tail(a.samples, gcWindow)

	var increase, decrease float64
	for i := 1; i < len(window); i++ {
		delta := float64(window[i].HeapUsed) - float64(window[i-1].HeapUsed)
		if delta > 0 {
			increase += delta
		} else {
			decrease += -delta
		}
	}
	if increase == 0 {
		return 1.0
	}
	return statutil.Clamp01(decrease / increase)
}

// increaseRatioLocked 计算最近 leakWindow 条样本中相邻递增的占比。
func (a *Analyzer) increaseRatioLocked() float64 {
	window := tail(a.samples, leakWindow)
	if len(window) < 2 {
		return 0
	}

	increasing := 0
	for i := 1; i < len(window); i++ {
		if window[i].HeapUsed > window[i-1].HeapUsed {
			increasing++
		}
	}
	return float64(increasing) / float64(len(window)-1)
}

// Analyze 在最新趋势报告之上叠加堆使用率评估。
// 尚无样本时先采集一次。
func (a *Analyzer) Analyze() Assessment {
	a.mu.Lock()
	n := len(a.samples)
	a.mu.Unlock()

	var report Report
	if n == 0 {
		report = a.Sample()
	} else {
		a.mu.Lock()
		report = a.analyzeLocked(a.samples[len(a.samples)-1])
		a.mu.Unlock()
	}

	assessment := Assessment{Report: report}
	if report.Sample.HeapTotal > 0 {
		assessment.HeapUsagePercent = float64(report.Sample.HeapUsed) / float64(report.Sample.HeapTotal) * 100
	}

	switch {
	case assessment.HeapUsagePercent > 90:
		assessment.Status = StatusCritical
		assessment.Recommendation = "heap usage critical: increase memory limits or reduce cache/history sizes"
	case assessment.HeapUsagePercent > 75:
		assessment.Status = StatusWarning
		assessment.Recommendation = "heap usage elevated: monitor growth and consider trimming caches"
	default:
		assessment.Status = StatusHealthy
		assessment.Recommendation = "heap usage healthy: no action needed"
	}
	return assessment
}

// History 返回内存采样历史快照（最旧在前）。
func (a *Analyzer) History() []MemorySample {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]MemorySample, len(a.samples))
	copy(out, a.samples)
	return out
}

// tail 返回切片的最后 n 个元素（不拷贝）。
func tail(s []MemorySample, n int) []MemorySample {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
