package xcause

import (
	"sort"
	"strings"

	"github.com/omeyang/perfkit/pkg/track/xtrack"
)

// categoryPatterns 为子串匹配规则，按列出顺序优先匹配。
// timeout 排在 network 之前，让 "connection timeout" 归入 timeout。
var categoryPatterns = []struct {
	category Category
	keywords []string
}{
	{CategoryTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{CategoryPermission, []string{"permission", "unauthorized", "forbidden", "access denied"}},
	{CategoryNotFound, []string{"not found", "no such", "enoent", "404"}},
	{CategoryNetwork, []string{"network", "connection", "refused", "unreachable", "broken pipe", "dns"}},
	{CategoryValidation, []string{"invalid", "validation", "malformed", "parse"}},
	{CategoryResource, []string{"out of memory", "resource", "exhausted", "too many", "quota", "capacity"}},
	{CategoryApplication, []string{"panic", "nil pointer", "index out of range", "assertion"}},
}

// knownCategories 为所有合法类别，用于校验显式标注。
var knownCategories = map[Category]struct{}{
	CategoryTimeout:     {},
	CategoryPermission:  {},
	CategoryNotFound:    {},
	CategoryNetwork:     {},
	CategoryValidation:  {},
	CategoryResource:    {},
	CategoryApplication: {},
	CategoryUnknown:     {},
}

// classify 确定单条失败记录的类别。
// 显式 error_kind 标注（合法值）优先，其次消息子串匹配，兜底 unknown。
func classify(rec xtrack.Record) Category {
	if kind := Category(rec.ErrorKind()); kind != "" {
		if _, ok := knownCategories[kind]; ok {
			return kind
		}
	}

	msg := strings.ToLower(rec.Err)
	if msg == "" {
		return CategoryUnknown
	}
	for _, p := range categoryPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(msg, kw) {
				return p.category
			}
		}
	}
	return CategoryUnknown
}

// categorize 统计失败分类，按次数降序（同次数按类别名稳定排序）。
func categorize(failures []xtrack.Record) []CategoryStat {
	if len(failures) == 0 {
		return nil
	}

	counts := make(map[Category]int)
	for _, rec := range failures {
		counts[classify(rec)]++
	}

	out := make([]CategoryStat, 0, len(counts))
	for cat, n := range counts {
		out = append(out, CategoryStat{
			Category: cat,
			Count:    n,
			Percent:  float64(n) / float64(len(failures)) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
