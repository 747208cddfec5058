// Package xmon 提供性能监控引擎门面。
//
// Engine 将操作追踪（xtrack）、指标聚合（xagg）、资源采样（xres）、
// 阈值告警（xthresh）、内存趋势（xtrend）与错误分析（xcause）装配为
// 单一入口，并负责生命周期、配置加载、定期导出与 OTel 桥接。
//
// 基本用法：
//
//	cfg := xmon.DefaultConfig()
//	cfg.Thresholds = map[string]time.Duration{"save-note": 200 * time.Millisecond}
//
//	engine := xmon.New(cfg)
//	if err := engine.Start(ctx); err != nil {
//	    return err
//	}
//	defer engine.Stop()
//
//	id := engine.StartOperation("save-note", nil)
//	// ... 业务逻辑 ...
//	engine.EndOperation(id, true, nil)
//
// 引擎内部的任何失败（导出写盘、采样失败）都只记录日志，
// 不会向宿主传播 —— 监控组件不得拖垮宿主进程。
package xmon
