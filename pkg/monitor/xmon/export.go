package xmon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v5"
)

const (
	exportFilePattern = "metrics-%s.json"
	exportDateLayout  = "2006-01-02"

	exportAttempts   = 3
	exportRetryDelay = 100 * time.Millisecond
)

// 文件写入变量，支持测试中注入失败路径。
var writeFile = os.WriteFile

// export 把当前快照写入导出目录的当日文件（metrics-YYYY-MM-DD.json）。
//
// 同一天内多次导出覆盖同一文件。写入失败重试后记录日志并吞掉——
// 导出失败不得影响宿主。ExportPath 为空时为空操作。
func (e *Engine) export(ctx context.Context) {
	if e.cfg.ExportPath == "" {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	snap := e.Snapshot()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		e.logger.Warn("snapshot marshal failed", slog.Any("error", err))
		return
	}

	path := filepath.Join(e.cfg.ExportPath,
		fmt.Sprintf(exportFilePattern, snap.GeneratedAt.Format(exportDateLayout)))

	err = retry.New(
		retry.Context(ctx),
		retry.Attempts(exportAttempts),
		retry.Delay(exportRetryDelay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		if err := os.MkdirAll(e.cfg.ExportPath, 0o750); err != nil {
			return err
		}
		return writeFile(path, data, 0o600)
	})
	if err != nil {
		e.logger.Warn("snapshot export failed",
			slog.String("path", path),
			slog.Any("error", err))
		return
	}

	e.logger.Debug("snapshot exported", slog.String("path", path))
}
