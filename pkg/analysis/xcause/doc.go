// Package xcause 对已完成操作记录做失败分类与根因分析。
//
// # 功能概览
//
//   - [Analyzer.SuccessRate]: 按可选操作名与时间窗口统计成功率
//   - [Analyzer.Analyze]: 完整报告——失败分类、根因、趋势与健康评估
//
// # 分析规则
//
// 失败分类优先采用记录上显式标注的 error_kind 元数据（见
// [github.com/omeyang/perfkit/pkg/track/xtrack.MetadataKeyErrorKind]），
// 未标注时退回到错误消息子串匹配。子串匹配对自由文本天然脆弱，
// 显式标注是推荐路径。
//
// 根因检测三类信号：
//
//   - spike：失败按 1 分钟桶分组，单桶超过 5 次
//   - repeated：单个操作名在窗口内失败超过 10 次
//   - correlated：不同操作名的失败在 5 秒内共现，去重后共现集合
//     ≥2 个操作
//
// 趋势把窗口切成 5 分钟成功率区间，最近 3 个区间均值对比此前
// 3 个：偏移超过 +5 个百分点为 improving，低于 −5 为 degrading。
package xcause
