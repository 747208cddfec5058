// Package xagg 按操作名维护运行统计与滑动窗口百分位数。
//
// 每条完成记录进入后：计数、成功率即时更新，时延样本追加到有界窗口
// （FIFO，默认 1000 条），p50/p90/p95/p99 在每次写入时急切重算——
// 以可控的 CPU 开销换取读路径永远新鲜，样本窗口有上限所以代价有界。
//
// 百分位数使用线性插值（而非 nearest-rank），只统计正时延样本。
package xagg
