package xreport

import (
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/omeyang/perfkit/pkg/alert/xthresh"
	"github.com/omeyang/perfkit/pkg/analysis/xcause"
	"github.com/omeyang/perfkit/pkg/analysis/xtrend"
	"github.com/omeyang/perfkit/pkg/metrics/xagg"
	"github.com/omeyang/perfkit/pkg/sample/xres"
)

// Snapshot 为报告与 JSON 导出共用的引擎状态快照。
type Snapshot struct {
	// GeneratedAt 为快照生成时刻。
	GeneratedAt time.Time `json:"generatedAt"`

	// Uptime 为引擎运行时长。
	Uptime time.Duration `json:"uptime"`

	// Operations 为操作名到聚合统计的映射。
	Operations map[string]xagg.Aggregate `json:"operations"`

	// Resource 为最近一条资源采样，可能为空。
	Resource *xres.Sample `json:"resource,omitempty"`

	// Memory 为内存评估，可能为空。
	Memory *xtrend.Assessment `json:"memory,omitempty"`

	// Errors 为错误分析报告，可能为空。
	Errors *xcause.Report `json:"errors,omitempty"`

	// Alerts 为告警日志。
	Alerts []xthresh.Alert `json:"alerts,omitempty"`

	// AutoScaleEvents 为扩容信号日志。
	AutoScaleEvents []xthresh.AutoScaleEvent `json:"autoScaleEvents,omitempty"`
}

// Totals 汇总全部操作的完成数与失败数。
func (s Snapshot) Totals() (count, errors int64) {
	for _, agg := range s.Operations {
		count += agg.Count
		errors += agg.ErrorCount
	}
	return count, errors
}

// sortedNames 返回排序后的操作名，保证输出确定。
func (s Snapshot) sortedNames() []string {
	names := make([]string, 0, len(s.Operations))
	for name := range s.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Markdown 渲染 Markdown 格式的性能报告。
func Markdown(s Snapshot) string {
	var b strings.Builder

	b.WriteString("# Performance Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Uptime: %s\n\n", s.Uptime.Round(time.Second))

	count, errs := s.Totals()
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Total operations: %d\n", count)
	fmt.Fprintf(&b, "- Failed operations: %d\n", errs)
	if count > 0 {
		fmt.Fprintf(&b, "- Error rate: %.2f%%\n", float64(errs)/float64(count)*100)
	}
	fmt.Fprintf(&b, "- Alerts: %d\n", len(s.Alerts))
	fmt.Fprintf(&b, "- Auto-scale triggers: %d\n\n", len(s.AutoScaleEvents))

	if len(s.Operations) > 0 {
		b.WriteString("## Operations\n\n")
		b.WriteString("| Operation | Count | Success Rate | Avg | P50 | P90 | P95 | P99 |\n")
		b.WriteString("|---|---|---|---|---|---|---|---|\n")
		for _, name := range s.sortedNames() {
			agg := s.Operations[name]
			fmt.Fprintf(&b, "| %s | %d | %.1f%% | %s | %s | %s | %s | %s |\n",
				name, agg.Count, agg.SuccessRate*100,
				ms(agg.AvgDuration), ms(agg.P50), ms(agg.P90), ms(agg.P95), ms(agg.P99))
		}
		b.WriteString("\n")
	}

	if s.Resource != nil {
		b.WriteString("## Resources\n\n")
		fmt.Fprintf(&b, "- Heap used: %s\n", mib(s.Resource.HeapUsed))
		fmt.Fprintf(&b, "- Heap total: %s\n", mib(s.Resource.HeapTotal))
		fmt.Fprintf(&b, "- RSS: %s\n", mib(s.Resource.RSS))
		fmt.Fprintf(&b, "- CPU user/system: %.2fs / %.2fs\n\n",
			s.Resource.CPUUser, s.Resource.CPUSystem)
	}

	if s.Memory != nil {
		b.WriteString("## Memory\n\n")
		fmt.Fprintf(&b, "- Status: %s (%.1f%% of heap)\n", s.Memory.Status, s.Memory.HeapUsagePercent)
		fmt.Fprintf(&b, "- Trend: %s (%.2f MB/s)\n", s.Memory.Trend, s.Memory.Slope)
		if s.Memory.HasLeak {
			fmt.Fprintf(&b, "- Leak suspected: confidence %.2f\n", s.Memory.LeakConfidence)
		}
		fmt.Fprintf(&b, "- Recommendation: %s\n\n", s.Memory.Recommendation)
	}

	if s.Errors != nil {
		b.WriteString("## Errors\n\n")
		fmt.Fprintf(&b, "- Health: %s\n", s.Errors.Health.Status)
		fmt.Fprintf(&b, "- Trend: %s\n", s.Errors.Trend)
		for _, cs := range s.Errors.Categories {
			fmt.Fprintf(&b, "- %s: %d (%.1f%%)\n", cs.Category, cs.Count, cs.Percent)
		}
		for _, cause := range s.Errors.RootCauses {
			fmt.Fprintf(&b, "- [%s] %s — %s\n", cause.Type, cause.Description, cause.Recommendation)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// CSV 渲染 CSV 格式的每操作统计表。
// 列为 Operation,Count,Success Rate,Avg Duration,P50,P90,P99，时延单位毫秒。
func CSV(s Snapshot) string {
	var b strings.Builder
	w := csv.NewWriter(&b)

	// strings.Builder 的写入不会失败，csv.Writer 的错误只能来自底层写入。
	_ = w.Write([]string{"Operation", "Count", "Success Rate", "Avg Duration", "P50", "P90", "P99"})
	for _, name := range s.sortedNames() {
		agg := s.Operations[name]
		_ = w.Write([]string{
			name,
			fmt.Sprintf("%d", agg.Count),
			fmt.Sprintf("%.4f", agg.SuccessRate),
			msNumber(agg.AvgDuration),
			msNumber(agg.P50),
			msNumber(agg.P90),
			msNumber(agg.P99),
		})
	}
	w.Flush()
	return b.String()
}

// ms 将时延格式化为毫秒字符串（带单位）。
func ms(d time.Duration) string {
	return fmt.Sprintf("%.2fms", float64(d)/float64(time.Millisecond))
}

// msNumber 将时延格式化为纯数字毫秒。
func msNumber(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d)/float64(time.Millisecond))
}

// mib 将字节数格式化为 MiB。
func mib(b uint64) string {
	return fmt.Sprintf("%.1fMiB", float64(b)/(1024*1024))
}
