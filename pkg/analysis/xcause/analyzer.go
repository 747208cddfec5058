package xcause

import (
	"time"

	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// 时间函数变量，支持测试中 mock 替换以构造确定性时间窗口。
var timeNow = time.Now

// HistorySource 提供已完成记录的访问。[xtrack.Tracker] 直接满足此接口。
type HistorySource interface {
	// History 返回最近 limit 条已完成记录，limit 非正时返回全部。
	History(limit int) []xtrack.Record
}

// Analyzer 在完成记录历史上做错误分析。
//
// Analyzer 自身无状态：每次调用都在 source 的当前快照上计算，
// 计算成本由 source 的历史容量上限约束。
type Analyzer struct {
	source HistorySource
}

// New 创建 Analyzer。
func New(source HistorySource) *Analyzer {
	return &Analyzer{source: source}
}

// filter 返回按操作名与追溯窗口过滤后的记录。
// name 为空匹配全部；window 非正表示不限时间。
func (a *Analyzer) filter(name string, window time.Duration) []xtrack.Record {
	records := a.source.History(0)
	if name == "" && window <= 0 {
		return records
	}

	var cutoff time.Time
	if window > 0 {
		cutoff = timeNow().Add(-window)
	}

	out := make([]xtrack.Record, 0, len(records))
	for _, rec := range records {
		if name != "" && rec.Name != name {
			continue
		}
		if window > 0 && !rec.EndTime.After(cutoff) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// rate 在给定记录上统计成功率。
func rate(records []xtrack.Record) RateReport {
	r := RateReport{Total: len(records)}
	for _, rec := range records {
		if rec.Success {
			r.Success++
		} else {
			r.Errors++
		}
	}
	if r.Total == 0 {
		// 无证据视为健康而非失败。
		r.SuccessRate = 1
		return r
	}
	r.SuccessRate = float64(r.Success) / float64(r.Total)
	r.ErrorRate = float64(r.Errors) / float64(r.Total)
	return r
}

// SuccessRate 统计可选操作名与追溯窗口内的成功率。
func (a *Analyzer) SuccessRate(name string, window time.Duration) RateReport {
	return rate(a.filter(name, window))
}

// Analyze 产出完整错误分析报告：成功率、失败分类、根因、趋势与健康评估。
// window 非正表示分析全部历史。
func (a *Analyzer) Analyze(window time.Duration) Report {
	records := a.filter("", window)

	failures := make([]xtrack.Record, 0, len(records))
	for _, rec := range records {
		if !rec.Success {
			failures = append(failures, rec)
		}
	}

	report := Report{
		Rate:       rate(records),
		Categories: categorize(failures),
		RootCauses: rootCauses(failures),
		Trend:      successTrend(records),
	}
	report.Health = assessHealth(report.Rate, report.Categories)
	return report
}
