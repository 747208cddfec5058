package xcause

import (
	"sort"
	"time"

	"github.com/omeyang/perfkit/internal/statutil"
	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// 趋势与健康评估参数常量。
const (
	// trendPeriod 为成功率趋势的区间宽度。
	trendPeriod = 5 * time.Minute

	// trendPeriods 为对比所需的区间数（最近 3 对比此前 3）。
	trendPeriods = 3

	// trendShiftPoints 为判定方向偏移的百分点门限。
	trendShiftPoints = 5.0

	// healthDegradedRate/healthCriticalRate 为健康分级门限。
	healthDegradedRate = 0.90
	healthCriticalRate = 0.80

	// categoryShare 为触发类别建议的失败占比门限（百分比）。
	categoryShare = 30.0
)

// successTrend 把记录切成 5 分钟成功率区间，对比最近 3 个区间均值
// 与此前 3 个区间均值：偏移超过 +5 个百分点为 improving，
// 低于 −5 为 degrading，区间不足 6 个时为 stable。
func successTrend(records []xtrack.Record) TrendDirection {
	type bucket struct {
		total   int
		success int
	}
	buckets := make(map[time.Time]*bucket)
	for _, rec := range records {
		b := rec.EndTime.Truncate(trendPeriod)
		entry, ok := buckets[b]
		if !ok {
			entry = &bucket{}
			buckets[b] = entry
		}
		entry.total++
		if rec.Success {
			entry.success++
		}
	}

	if len(buckets) < 2*trendPeriods {
		return TrendStable
	}

	keys := make([]time.Time, 0, len(buckets))
	for b := range buckets {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	rates := make([]float64, 0, len(keys))
	for _, b := range keys {
		entry := buckets[b]
		rates = append(rates, float64(entry.success)/float64(entry.total)*100)
	}

	recent := statutil.Mean(rates[len(rates)-trendPeriods:])
	prior := statutil.Mean(rates[len(rates)-2*trendPeriods : len(rates)-trendPeriods])

	switch shift := recent - prior; {
	case shift > trendShiftPoints:
		return TrendImproving
	case shift < -trendShiftPoints:
		return TrendDegrading
	default:
		return TrendStable
	}
}

// assessHealth 从成功率与失败分类推导健康状态与建议。
func assessHealth(r RateReport, categories []CategoryStat) Health {
	h := Health{Status: HealthHealthy}
	switch {
	case r.Total > 0 && r.SuccessRate < healthCriticalRate:
		h.Status = HealthCritical
		h.Recommendations = append(h.Recommendations,
			"success rate below 80%: page the on-call and inspect recent failures")
	case r.Total > 0 && r.SuccessRate < healthDegradedRate:
		h.Status = HealthDegraded
		h.Recommendations = append(h.Recommendations,
			"success rate below 90%: review the dominant failure categories")
	}

	for _, cs := range categories {
		if cs.Percent <= categoryShare {
			continue
		}
		switch cs.Category {
		case CategoryTimeout:
			h.Recommendations = append(h.Recommendations,
				"timeout errors dominate: consider raising operation timeouts or reducing payload sizes")
		case CategoryResource:
			h.Recommendations = append(h.Recommendations,
				"resource errors dominate: check memory/CPU scaling and concurrency limits")
		}
	}
	return h
}
