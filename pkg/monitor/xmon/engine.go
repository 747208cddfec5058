package xmon

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/omeyang/perfkit/internal/statutil"
	"github.com/omeyang/perfkit/pkg/alert/xthresh"
	"github.com/omeyang/perfkit/pkg/analysis/xcause"
	"github.com/omeyang/perfkit/pkg/analysis/xtrend"
	"github.com/omeyang/perfkit/pkg/metrics/xagg"
	"github.com/omeyang/perfkit/pkg/report/xreport"
	"github.com/omeyang/perfkit/pkg/sample/xres"
	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// exportCronSpec 每日零点导出一次快照。
const exportCronSpec = "0 0 * * *"

// 时钟变量，支持测试中 mock 替换。
var timeNow = time.Now

// Engine 为性能监控引擎门面。
//
// 通过 [New] 创建后各查询方法立即可用；[Start] 武装后台部分
// （资源采样、趋势喂样、定期导出、OTel 采集），[Stop] 解除并做
// 最终导出。所有方法并发安全。
type Engine struct {
	cfg    Config
	logger *slog.Logger

	tracker *xtrack.Tracker
	agg     *xagg.Aggregator
	thresh  *xthresh.Engine
	sampler *xres.Sampler
	trend   *xtrend.Analyzer
	cause   *xcause.Analyzer

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	mu           sync.Mutex
	running      bool
	startedAt    time.Time
	cancel       context.CancelFunc
	grp          *errgroup.Group
	cron         *cron.Cron
	registration metric.Registration
}

// New 创建引擎并装配全部组件。
//
// 完成的操作依次经过：追踪器落史、聚合器更新统计、阈值引擎评估
// 并驱动告警升级。cfg 中的零值字段回填为默认值。
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.normalize(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	e.thresh = xthresh.New(
		xthresh.WithLogger(e.logger),
		xthresh.WithThresholds(e.cfg.Thresholds),
	)
	e.agg = xagg.New()

	// 设计决策: 追踪器的阈值回调即告警管道入口——每次 End 只做一次
	// Check，其结果同时决定记录的 exceedsThreshold 标记和告警升级。
	trackOpts := []xtrack.Option{
		xtrack.WithHistoryLimit(e.cfg.HistoryLimit),
		xtrack.WithSink(e.agg),
		xtrack.WithThresholdFunc(func(name string, duration time.Duration) bool {
			return e.thresh.Check(name, duration).Exceeded
		}),
	}
	if e.tracerProvider != nil {
		trackOpts = append(trackOpts, xtrack.WithTracerProvider(e.tracerProvider))
	}
	e.tracker = xtrack.New(trackOpts...)

	e.sampler = xres.New(
		xres.WithInterval(e.cfg.SampleInterval),
		xres.WithWindow(e.cfg.WindowSize),
		xres.WithLogger(e.logger),
		xres.WithFlushFunc(e.export),
	)
	e.trend = xtrend.New(xtrend.WithLogger(e.logger))
	e.cause = xcause.New(e.tracker)

	return e
}

// Start 武装后台部分：资源采样循环、内存趋势喂样循环、每日导出
// 定时任务与 OTel 采集回调。已在运行时返回 [ErrAlreadyStarted]。
//
// ctx 取消等价于调用 Stop（但最终导出只由 Stop 保证）。
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	runCtx, cancel := context.WithCancel(ctx)
	grp, grpCtx := errgroup.WithContext(runCtx)
	e.running = true
	e.startedAt = timeNow()
	e.cancel = cancel
	e.grp = grp
	e.mu.Unlock()

	if err := e.sampler.Start(runCtx); err != nil {
		// 采样器泄漏到运行态只可能是 Stop/Start 交错，回滚引擎状态。
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		cancel()
		return err
	}

	grp.Go(func() error {
		e.trendLoop(grpCtx)
		return nil
	})

	if e.cfg.ExportPath != "" {
		c := cron.New()
		if _, err := c.AddFunc(exportCronSpec, func() {
			e.export(context.Background())
		}); err != nil {
			e.logger.Warn("export schedule rejected",
				slog.String("spec", exportCronSpec),
				slog.Any("error", err))
		} else {
			c.Start()
			e.mu.Lock()
			e.cron = c
			e.mu.Unlock()
		}
	}

	if e.meterProvider != nil {
		if err := e.registerGauges(); err != nil {
			e.logger.Warn("otel gauge registration failed",
				slog.Any("error", err))
		}
	}

	e.logger.Info("monitoring engine started",
		slog.Duration("window", e.cfg.WindowSize),
		slog.Duration("interval", e.cfg.SampleInterval))
	return nil
}

// Stop 解除后台部分：停定时任务、取消循环并等待退出、停采样器
// （触发最终导出）、注销 OTel 回调。未启动或已停止时为空操作。
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	cancel := e.cancel
	grp := e.grp
	c := e.cron
	reg := e.registration
	e.cron = nil
	e.registration = nil
	e.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
	cancel()
	_ = grp.Wait()
	e.sampler.Stop()
	if reg != nil {
		_ = reg.Unregister()
	}

	e.logger.Info("monitoring engine stopped")
}

// trendLoop 周期性把最新资源采样喂给内存趋势分析器。
// 采样器尚无数据时直接采集一次运行时快照。
func (e *Engine) trendLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.SampleInterval)
	defer ticker.Stop()

	var lastSeen time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s, ok := e.sampler.Latest(); ok {
				// 采样与喂样间隔相同，去重避免同一条样本重复入史。
				if s.Timestamp.Equal(lastSeen) {
					continue
				}
				lastSeen = s.Timestamp
				e.trend.Observe(xtrend.MemorySample{
					Timestamp: s.Timestamp,
					HeapUsed:  s.HeapUsed,
					HeapTotal: s.HeapTotal,
				})
				continue
			}
			e.trend.Sample()
		}
	}
}

// ----------------------------------------------------------------------------
// 操作生命周期
// ----------------------------------------------------------------------------

// StartOperation 开始追踪一个操作，返回唯一操作 ID。
func (e *Engine) StartOperation(name string, metadata map[string]string) string {
	return e.tracker.Start(name, metadata)
}

// EndOperation 结束操作。未知 ID 返回 nil（空操作）。
// result 为 error 时其消息被记入历史供错误分析使用。
func (e *Engine) EndOperation(id string, success bool, result any) *xtrack.EndResult {
	return e.tracker.End(id, success, result)
}

// TrackOperation 包裹执行 fn 并自动记录起止与成败。
// fn 的 error 原样返回。
func (e *Engine) TrackOperation(ctx context.Context, name string, fn func(ctx context.Context) error, metadata map[string]string) error {
	return e.tracker.Track(ctx, name, fn, metadata)
}

// ----------------------------------------------------------------------------
// 查询
// ----------------------------------------------------------------------------

// GetMetrics 返回全部操作的聚合统计。
func (e *Engine) GetMetrics() map[string]xagg.Aggregate {
	return e.agg.Metrics()
}

// GetDetailedMetrics 返回完整快照：聚合统计、资源采样、内存评估、
// 错误分析与告警日志。
func (e *Engine) GetDetailedMetrics() xreport.Snapshot {
	return e.Snapshot()
}

// GetSuccessRate 返回指定操作在窗口内的成功率统计。
// name 为空表示全部操作，window 非正表示不限时间。
func (e *Engine) GetSuccessRate(name string, window time.Duration) xcause.RateReport {
	return e.cause.SuccessRate(name, window)
}

// CalculatePercentiles 对窗口内已完成操作的时延计算给定分位点。
//
// window 非正表示不限时间。excludeOutliers 为 true 时先用 IQR 围栏
// 剔除离群样本再计算。无样本时返回空 map。
func (e *Engine) CalculatePercentiles(percentiles []float64, window time.Duration, excludeOutliers bool) map[float64]time.Duration {
	out := make(map[float64]time.Duration, len(percentiles))
	if len(percentiles) == 0 {
		return out
	}

	cutoff := time.Time{}
	if window > 0 {
		cutoff = timeNow().Add(-window)
	}

	var samples []float64
	for _, rec := range e.tracker.History(0) {
		if rec.Duration <= 0 {
			continue
		}
		if !cutoff.IsZero() && rec.EndTime.Before(cutoff) {
			continue
		}
		samples = append(samples, float64(rec.Duration))
	}
	if len(samples) == 0 {
		return out
	}

	if excludeOutliers {
		samples = statutil.FilterOutliers(samples)
	}

	for _, p := range percentiles {
		out[p] = time.Duration(statutil.Percentile(samples, p))
	}
	return out
}

// GetMemoryUsage 返回当前内存趋势评估。
func (e *Engine) GetMemoryUsage() xtrend.Assessment {
	return e.trend.Analyze()
}

// GetActiveOperations 返回进行中的操作记录。
func (e *Engine) GetActiveOperations() []xtrack.Record {
	return e.tracker.Active()
}

// GetLongRunningOperations 返回运行时长严格超过 threshold 的进行中操作。
func (e *Engine) GetLongRunningOperations(threshold time.Duration) []xtrack.Record {
	return e.tracker.LongRunning(threshold)
}

// GetHistory 返回最近 limit 条已完成记录，limit 非正表示全部。
func (e *Engine) GetHistory(limit int) []xtrack.Record {
	return e.tracker.History(limit)
}

// Alerts 返回告警日志。
func (e *Engine) Alerts() []xthresh.Alert {
	return e.thresh.Alerts()
}

// AutoScaleEvents 返回扩容信号日志。
func (e *Engine) AutoScaleEvents() []xthresh.AutoScaleEvent {
	return e.thresh.AutoScaleEvents()
}

// ----------------------------------------------------------------------------
// 阈值管理
// ----------------------------------------------------------------------------

// SetThreshold 设置单个操作的时长阈值，非正值删除该阈值。
func (e *Engine) SetThreshold(name string, threshold time.Duration) {
	e.thresh.SetThreshold(name, threshold)
}

// SetThresholds 整体替换阈值表。
func (e *Engine) SetThresholds(thresholds map[string]time.Duration) {
	e.thresh.SetThresholds(thresholds)
}

// ----------------------------------------------------------------------------
// 报告
// ----------------------------------------------------------------------------

// Snapshot 汇集各组件的当前状态。
func (e *Engine) Snapshot() xreport.Snapshot {
	now := timeNow()

	e.mu.Lock()
	var uptime time.Duration
	if !e.startedAt.IsZero() {
		uptime = now.Sub(e.startedAt)
	}
	e.mu.Unlock()

	snap := xreport.Snapshot{
		GeneratedAt:     now,
		Uptime:          uptime,
		Operations:      e.agg.Metrics(),
		Alerts:          e.thresh.Alerts(),
		AutoScaleEvents: e.thresh.AutoScaleEvents(),
	}

	if latest, ok := e.sampler.Latest(); ok {
		snap.Resource = &latest
	}
	assessment := e.trend.Analyze()
	snap.Memory = &assessment
	errReport := e.cause.Analyze(e.cfg.WindowSize)
	snap.Errors = &errReport

	return snap
}

// GenerateReport 渲染 markdown 格式的性能报告。
func (e *Engine) GenerateReport() string {
	return xreport.Markdown(e.Snapshot())
}

// ExportToCSV 渲染 CSV 格式的聚合统计表。
func (e *Engine) ExportToCSV() string {
	return xreport.CSV(e.Snapshot())
}
