// Package xres 提供进程级资源的周期采样能力。
//
// # 功能概览
//
//   - [Sampler.Start] / [Sampler.Stop]: 显式武装/解除周期采样循环
//   - [Sampler.Samples] / [Sampler.Latest]: 读取有界采样历史
//   - [Capture]: 一次性采集当前资源快照
//
// 采样循环独立于操作追踪路径，默认每 10 秒采集一次堆内存、RSS 与
// CPU 时间，写入容量为 窗口时长/采样间隔 的环形缓冲（默认 360 条，
// 对应 1 小时窗口）。单次采集失败只跳过该周期，循环本身永不退出。
//
// Stop 保证在返回前执行一次最终 flush 回调（作用域式获取/释放纪律），
// 并且幂等。
//
// # 平台支持
//
// CPU 时间与 RSS 在 Unix 平台通过 getrusage 获取；其他平台退化为
// 仅内存统计（CPU/RSS 为零），堆指标在所有平台可用。
package xres
