// Package xreport 将引擎各组件的快照拼装为人类可读视图。
//
// 本包只读且无状态：[Markdown] 与 [CSV] 对同一 [Snapshot] 的输出
// 确定（操作按名称排序），从不改动任何引擎状态。快照本身也是
// JSON 导出的载体（见 xmon 的导出面）。
package xreport
