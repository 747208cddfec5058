// Package xtrend 基于内存采样历史做趋势与泄漏分析。
//
// # 功能概览
//
//   - [Analyzer.Sample]: 采集一次内存快照并返回叠加了趋势分析的报告
//   - [Analyzer.Observe]: 摄入外部采样（如 xres 的周期快照）
//   - [Analyzer.Analyze]: 在报告之上叠加堆使用率评估与建议
//
// # 分析规则
//
// 历史封顶 100 条。样本 ≥10 后开始输出分析：
//
//   - 趋势：最近 20 条样本上 堆占用(MB) 对 经过时间(s) 的最小二乘斜率，
//     >0.5 MB/s 为 increasing，<−0.5 为 decreasing，其余 stable
//   - GC 有效性：最近 10 条样本相邻差值中 总下降/总上升 的比值，
//     无上升时取 1.0（视为健康）
//   - 泄漏启发式（需 ≥30 条）：increasing 且斜率 >1.0 MB/s 且最近 30 条
//     中相邻递增占比 >0.7 且 GC 有效性 <0.3；置信度为加权混合
//     0.4·递增占比 + 0.4·min(斜率,5)/5 + 0.2·(1−GC 有效性)，钳制 [0,1]，
//     超过 0.7 记录一条告警日志
//
// 泄漏嫌疑是策略信号：只记日志、可查询，永不作为错误抛出。
package xtrend
