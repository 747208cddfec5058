// Package xthresh 提供时延阈值判定、严重度分级与告警升级能力。
//
// # 功能概览
//
//   - [Engine.SetThreshold] / [Engine.SetThresholds]: 随时设置操作名到阈值的映射
//   - [Engine.Check]: 判定一次时延，必要时记录违规并触发升级
//   - [Engine.Violations] / [Engine.Alerts] / [Engine.AutoScaleEvents]: 只读查询
//
// # 升级策略
//
// 未配置阈值的操作永不超限。超限时按 时延/阈值 比值分级：
// <1.2 low、<1.5 medium、<2.0 high，其余 critical。
//
// 违规按操作名保留并裁剪到最近一小时。同一操作在最近 5 分钟内
// 累计超过 5 次违规时升级为 Alert；最近 10 分钟内累计超过 10 次
// high/critical 违规时升级为 AutoScaleEvent。两个升级常量是固定策略
// （[AlertViolationLimit] 等），不可配置。
//
// 本包永不返回错误：策略信号（超限、告警、扩容触发）只是日志副作用
// 加可查询状态，执行（真正扩容）是外部职责。
package xthresh
