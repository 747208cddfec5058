package xmon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce 默认防抖时间。
// 编辑器保存往往触发多个事件，防抖窗口内只重载一次。
const DefaultWatchDebounce = 100 * time.Millisecond

// WatchOption 监视器配置选项。
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
}

// WithDebounce 设置防抖时间。非正值保持默认。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// Watcher 监视配置文件的阈值热更新。
// 通过 [Engine.WatchThresholds] 创建，使用完毕调用 [Watcher.Stop]。
type Watcher struct {
	engine   *Engine
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	ctx      context.Context
	cancel   context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// WatchThresholds 监视配置文件并把其中的 thresholds 表热应用到引擎。
//
// 监视文件所在目录而非文件本身——编辑器保存可能先删后建或原子
// rename，直接监视文件会丢事件。文件变更经防抖后重新加载，解析
// 失败只记录日志，现有阈值保持不变。
//
// 返回的监视器已在后台运行。
func (e *Engine) WatchThresholds(path string, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if _, err := detectFormat(path); err != nil {
		return nil, err
	}

	options := &watchOptions{debounce: DefaultWatchDebounce}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xmon: failed to create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := fsWatcher.Add(dir); err != nil {
		closeErr := fsWatcher.Close()
		return nil, errors.Join(
			fmt.Errorf("xmon: failed to watch directory %s: %w", dir, err),
			closeErr,
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		engine:   e,
		path:     path,
		watcher:  fsWatcher,
		debounce: options.debounce,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	go w.run()
	return w, nil
}

// Stop 停止监视。幂等。
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	w.cancel()
	err := w.watcher.Close()
	<-w.done
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	filename := filepath.Base(w.path)

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event, filename)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.engine.logger.Warn("threshold watch error",
				slog.String("path", w.path),
				slog.Any("error", err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, filename string) {
	if filepath.Base(event.Name) != filename {
		return
	}
	// Write 直接写入；Create/Rename 覆盖编辑器的原子写入模式。
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

// reload 重新加载配置并应用阈值表。
func (w *Watcher) reload() {
	select {
	case <-w.ctx.Done():
		return
	default:
	}

	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.engine.logger.Warn("threshold reload failed",
			slog.String("path", w.path),
			slog.Any("error", err))
		return
	}

	w.engine.SetThresholds(cfg.Thresholds)
	w.engine.logger.Info("thresholds reloaded",
		slog.String("path", w.path),
		slog.Int("count", len(cfg.Thresholds)))
}
