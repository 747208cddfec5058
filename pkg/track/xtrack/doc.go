// Package xtrack 提供单次操作生命周期追踪能力。
//
// # 功能概览
//
//   - [Tracker.Start]: 开始追踪一次命名操作，返回唯一 id
//   - [Tracker.End]: 结束追踪，计算时延与堆内存增量，记录进入有界历史
//   - [Tracker.Track]: 包装执行函数，自动完成 start/end 与错误捕获
//   - [Tracker.Active] / [Tracker.LongRunning]: 在途操作巡检
//   - [Tracker.History]: 只读访问已完成记录的 FIFO 历史
//
// # 生命周期语义
//
// 每次 Start 生成碰撞安全的唯一 id（名称 + 纳秒时间戳 + 随机后缀），
// 记录进入在途集合。End 将记录标记为终态并移入历史，同一 id 的第二次
// End 调用返回 nil（幂等空操作，不是错误）——重复结束绝不能让调用方崩溃。
//
// 历史为严格 FIFO 有界集合：超出容量时淘汰最旧记录。
//
// # 未结束操作
//
// 调用方 Start 后不 End 会在在途集合中泄漏一个条目。本包不做 TTL 自动清理，
// 只提供 [Tracker.LongRunning] 供外部看门狗轮询。
package xtrack
