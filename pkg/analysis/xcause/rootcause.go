package xcause

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// 根因检测参数常量。
const (
	// spikeBucket 为尖峰检测的时间桶宽度。
	spikeBucket = time.Minute

	// spikeLimit 为尖峰判定的单桶失败门限（严格大于才触发）。
	spikeLimit = 5

	// repeatedLimit 为反复失败判定的单操作门限（严格大于才触发）。
	repeatedLimit = 10

	// correlationGap 为关联失败判定的共现时间间隔。
	correlationGap = 5 * time.Second

	// correlationMinOps 为关联信号要求的最少共现操作数。
	correlationMinOps = 2
)

// rootCauses 在失败记录上检测三类根因信号。
func rootCauses(failures []xtrack.Record) []RootCause {
	var out []RootCause
	out = append(out, detectSpikes(failures)...)
	out = append(out, detectRepeated(failures)...)
	out = append(out, detectCorrelated(failures)...)
	return out
}

// detectSpikes 将失败按 1 分钟桶分组，单桶超过 5 次报告为尖峰。
func detectSpikes(failures []xtrack.Record) []RootCause {
	buckets := make(map[time.Time][]xtrack.Record)
	for _, rec := range failures {
		b := rec.EndTime.Truncate(spikeBucket)
		buckets[b] = append(buckets[b], rec)
	}

	keys := make([]time.Time, 0, len(buckets))
	for b := range buckets {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	var out []RootCause
	for _, b := range keys {
		recs := buckets[b]
		if len(recs) <= spikeLimit {
			continue
		}
		ops := distinctNames(recs)
		out = append(out, RootCause{
			Type:  CauseSpike,
			Count: len(recs),
			Description: fmt.Sprintf("failure spike: %d failures within one minute at %s",
				len(recs), b.Format(time.RFC3339)),
			Operations:     ops,
			Recommendation: "inspect logs around the spike window for a shared trigger",
			Bucket:         b,
		})
	}
	return out
}

// detectRepeated 报告窗口内失败超过 10 次的单个操作。
func detectRepeated(failures []xtrack.Record) []RootCause {
	counts := make(map[string]int)
	for _, rec := range failures {
		counts[rec.Name]++
	}

	names := make([]string, 0, len(counts))
	for name, n := range counts {
		if n > repeatedLimit {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []RootCause
	for _, name := range names {
		out = append(out, RootCause{
			Type:           CauseRepeated,
			Count:          counts[name],
			Description:    fmt.Sprintf("operation %q failed %d times in the window", name, counts[name]),
			Operations:     []string{name},
			Recommendation: "add retry logic with backoff for this operation",
		})
	}
	return out
}

// detectCorrelated 报告 5 秒内共现的跨操作失败组。
//
// 对每条失败，收集 5 秒内不同操作名的其他失败，形成共现集合；
// 集合去重后，含 ≥2 个不同操作的组报告为关联信号。
func detectCorrelated(failures []xtrack.Record) []RootCause {
	seen := make(map[string]struct{})
	var out []RootCause

	for i, rec := range failures {
		group := map[string]struct{}{rec.Name: {}}
		count := 1
		for j, other := range failures {
			if i == j || other.Name == rec.Name {
				continue
			}
			gap := rec.EndTime.Sub(other.EndTime)
			if gap < 0 {
				gap = -gap
			}
			if gap <= correlationGap {
				group[other.Name] = struct{}{}
				count++
			}
		}
		if len(group) < correlationMinOps {
			continue
		}

		ops := make([]string, 0, len(group))
		for name := range group {
			ops = append(ops, name)
		}
		sort.Strings(ops)
		key := strings.Join(ops, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, RootCause{
			Type:           CauseCorrelated,
			Count:          count,
			Description:    fmt.Sprintf("correlated failures across %s within %s", strings.Join(ops, ", "), correlationGap),
			Operations:     ops,
			Recommendation: "inspect shared dependencies between these operations",
		})
	}
	return out
}

// distinctNames 返回记录中去重且有序的操作名。
func distinctNames(recs []xtrack.Record) []string {
	set := make(map[string]struct{}, len(recs))
	for _, rec := range recs {
		set[rec.Name] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
