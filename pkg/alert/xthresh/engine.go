package xthresh

import (
	"log/slog"
	"sync"
	"time"
)

// 固定升级策略常量。
// 设计决策: 升级阈值是硬编码策略而非配置项，避免各宿主各调一套
// 导致告警语义漂移；导出常量以便文档与测试引用。
const (
	// ViolationRetention 为违规记录的保留时长。
	ViolationRetention = time.Hour

	// AlertWindow 为告警升级的追溯窗口。
	AlertWindow = 5 * time.Minute

	// AlertViolationLimit 为告警升级的违规次数门限（严格大于才触发）。
	AlertViolationLimit = 5

	// AutoScaleWindow 为扩容升级的追溯窗口。
	AutoScaleWindow = 10 * time.Minute

	// AutoScaleViolationLimit 为扩容升级的 high/critical 违规次数门限
	// （严格大于才触发）。
	AutoScaleViolationLimit = 10
)

// 时间函数变量，支持测试中 mock 替换以构造确定性时间窗口。
var timeNow = time.Now

// Option 配置 Engine 的选项函数。
type Option func(*Engine)

// WithLogger 设置日志记录器。默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithThresholds 设置初始阈值映射。
func WithThresholds(thresholds map[string]time.Duration) Option {
	return func(e *Engine) {
		for name, d := range thresholds {
			e.thresholds[name] = d
		}
	}
}

// Engine 按操作名判定时延阈值并维护升级状态。所有方法并发安全。
type Engine struct {
	logger *slog.Logger

	mu         sync.Mutex
	thresholds map[string]time.Duration
	violations map[string][]Violation
	alerts     []Alert
	autoScale  []AutoScaleEvent
}

// New 创建 Engine。
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:     slog.Default(),
		thresholds: make(map[string]time.Duration),
		violations: make(map[string][]Violation),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(e)
	}
	return e
}

// SetThreshold 设置单个操作的阈值。非正值视为删除该阈值。
func (e *Engine) SetThreshold(name string, threshold time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if threshold <= 0 {
		delete(e.thresholds, name)
		return
	}
	e.thresholds[name] = threshold
}

// SetThresholds 批量设置阈值，逐项语义与 [Engine.SetThreshold] 一致。
func (e *Engine) SetThresholds(thresholds map[string]time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, d := range thresholds {
		if d <= 0 {
			delete(e.thresholds, name)
			continue
		}
		e.thresholds[name] = d
	}
}

// Threshold 返回操作的配置阈值。未配置返回 0 和 false。
func (e *Engine) Threshold(name string) (time.Duration, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	d, ok := e.thresholds[name]
	return d, ok
}

// Check 判定一次时延。
//
// 未配置阈值 → 恒不超限。超限时记录违规（按操作名保留，裁剪到最近
// 一小时），并检查两级升级：最近 5 分钟内该操作违规超过 5 次 → Alert；
// 最近 10 分钟内 high/critical 违规超过 10 次 → AutoScaleEvent。
// 升级只产生日志与追加记录，Check 永不返回错误。
func (e *Engine) Check(name string, duration time.Duration) CheckResult {
	now := timeNow()

	e.mu.Lock()
	threshold, ok := e.thresholds[name]
	if !ok {
		e.mu.Unlock()
		return CheckResult{Exceeded: false}
	}

	result := CheckResult{
		Threshold: threshold,
		Exceeded:  duration > threshold,
	}
	if duration > threshold {
		result.Excess = duration - threshold
	}
	if !result.Exceeded {
		e.mu.Unlock()
		return result
	}

	result.Severity = severityFor(float64(duration) / float64(threshold))

	v := Violation{
		Timestamp:     now,
		OperationName: name,
		Duration:      duration,
		Threshold:     threshold,
		Excess:        result.Excess,
		Severity:      result.Severity,
	}

	kept := pruneViolations(e.violations[name], now.Add(-ViolationRetention))
	kept = append(kept, v)
	e.violations[name] = kept

	var (
		recent     int
		recentHigh int
	)
	alertCutoff := now.Add(-AlertWindow)
	scaleCutoff := now.Add(-AutoScaleWindow)
	for _, old := range kept {
		if old.Timestamp.After(alertCutoff) {
			recent++
		}
		if old.Timestamp.After(scaleCutoff) &&
			(old.Severity == SeverityHigh || old.Severity == SeverityCritical) {
			recentHigh++
		}
	}

	var (
		alert *Alert
		scale *AutoScaleEvent
	)
	if recent > AlertViolationLimit {
		a := Alert{
			Timestamp:     now,
			OperationName: name,
			Violation:     v,
			Type:          EventTypeAlert,
		}
		e.alerts = append(e.alerts, a)
		alert = &a
	}
	if recentHigh > AutoScaleViolationLimit {
		s := AutoScaleEvent{
			Timestamp:     now,
			OperationName: name,
			Violation:     v,
			Type:          EventTypeAutoScale,
		}
		e.autoScale = append(e.autoScale, s)
		scale = &s
	}
	e.mu.Unlock()

	e.logger.Debug("threshold exceeded",
		slog.String("operation", name),
		slog.Duration("duration", duration),
		slog.Duration("threshold", threshold),
		slog.String("severity", string(v.Severity)),
	)
	if alert != nil {
		e.logger.Warn("performance alert",
			slog.String("operation", name),
			slog.Int("violations", recent),
			slog.Duration("window", AlertWindow),
		)
	}
	if scale != nil {
		e.logger.Warn("auto-scale trigger",
			slog.String("operation", name),
			slog.Int("violations", recentHigh),
			slog.Duration("window", AutoScaleWindow),
		)
	}

	return result
}

// pruneViolations 丢弃 cutoff 之前的违规。
func pruneViolations(vs []Violation, cutoff time.Time) []Violation {
	kept := vs[:0]
	for _, v := range vs {
		if v.Timestamp.After(cutoff) {
			kept = append(kept, v)
		}
	}
	return kept
}

// Violations 返回操作的违规记录快照（最近一小时内）。
func (e *Engine) Violations(name string) []Violation {
	now := timeNow()

	e.mu.Lock()
	defer e.mu.Unlock()

	kept := pruneViolations(e.violations[name], now.Add(-ViolationRetention))
	e.violations[name] = kept

	out := make([]Violation, len(kept))
	copy(out, kept)
	return out
}

// Alerts 返回告警日志快照（进程生命周期内追加写）。
func (e *Engine) Alerts() []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Alert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// AutoScaleEvents 返回扩容信号日志快照（进程生命周期内追加写）。
func (e *Engine) AutoScaleEvents() []AutoScaleEvent {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]AutoScaleEvent, len(e.autoScale))
	copy(out, e.autoScale)
	return out
}
