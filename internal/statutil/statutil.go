// Package statutil 提供 perfkit 各分析组件共享的统计计算函数。
//
// 所有函数均为纯函数，不持有状态，由调用方保证输入切片的所有权。
// 计算成本受调用方的采样窗口上限约束，不会无界增长。
package statutil

import (
	"math"
	"sort"
)

// =============================================================================
// 百分位数
// =============================================================================

// PercentileSorted 在已升序排序的样本上计算第 p 百分位数（p 取值 [0,100]）。
//
// 使用线性插值法：index = (p/100)·(n−1)，在相邻样本间按比例插值。
// 相比 nearest-rank 方法，小样本下不会出现阶梯跳变。
//
// 空样本返回 0。p 越界时钳制到 [0,100]。
func PercentileSorted(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}

	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Percentile 计算未排序样本的第 p 百分位数。
// 内部复制并排序，不修改输入切片。
func Percentile(samples []float64, p float64) float64 {
	return PercentileSorted(sortedCopy(samples), p)
}

// sortedCopy 返回升序排序的副本。
func sortedCopy(samples []float64) []float64 {
	out := make([]float64, len(samples))
	copy(out, samples)
	sort.Float64s(out)
	return out
}

// =============================================================================
// IQR 离群值过滤
// =============================================================================

// FilterOutliers 使用 IQR 方法过滤离群样本。
//
// 保留落在 [Q1 − 1.5·IQR, Q3 + 1.5·IQR] 区间内的样本，返回新切片。
// 样本数少于 4 时无法稳定估计四分位数，原样返回副本。
func FilterOutliers(samples []float64) []float64 {
	sorted := sortedCopy(samples)
	if len(sorted) < 4 {
		return sorted
	}

	q1 := PercentileSorted(sorted, 25)
	q3 := PercentileSorted(sorted, 75)
	iqr := q3 - q1
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	out := make([]float64, 0, len(sorted))
	for _, v := range sorted {
		if v >= lo && v <= hi {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// 最小二乘线性回归
// =============================================================================

// LinearSlope 计算 (xs, ys) 的最小二乘回归斜率。
//
// 样本数少于 2 或 xs 方差为 0（全部 x 相同）时返回 0, false。
func LinearSlope(xs, ys []float64) (slope float64, ok bool) {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0, false
	}

	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}

	denom := float64(n)*sumXX - sumX*sumX
	if denom == 0 {
		return 0, false
	}
	return (float64(n)*sumXY - sumX*sumY) / denom, true
}

// =============================================================================
// 辅助函数
// =============================================================================

// Mean 计算算术平均值。空样本返回 0。
func Mean(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v
	}
	return sum / float64(len(samples))
}

// Clamp01 将 v 钳制到 [0,1]。
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
