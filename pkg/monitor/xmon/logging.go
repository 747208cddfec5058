package xmon

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 文件日志默认轮转策略。
const (
	// DefaultLogMaxSizeMB 单个日志文件最大大小（MB）。
	DefaultLogMaxSizeMB = 100

	// DefaultLogMaxBackups 保留的备份文件数量。
	DefaultLogMaxBackups = 7

	// DefaultLogMaxAgeDays 备份保留天数。
	DefaultLogMaxAgeDays = 30
)

// LoggerOption 文件日志配置选项。
type LoggerOption func(*loggerOptions)

type loggerOptions struct {
	level      slog.Level
	maxSizeMB  int
	maxBackups int
	maxAgeDays int
	compress   bool
}

// WithLogLevel 设置最低日志级别。默认 slog.LevelInfo。
func WithLogLevel(level slog.Level) LoggerOption {
	return func(o *loggerOptions) {
		o.level = level
	}
}

// WithLogMaxSize 设置单个日志文件最大大小（MB）。非正值保持默认。
func WithLogMaxSize(mb int) LoggerOption {
	return func(o *loggerOptions) {
		if mb > 0 {
			o.maxSizeMB = mb
		}
	}
}

// WithLogMaxBackups 设置保留的备份文件数量。负值保持默认。
func WithLogMaxBackups(n int) LoggerOption {
	return func(o *loggerOptions) {
		if n >= 0 {
			o.maxBackups = n
		}
	}
}

// WithLogMaxAge 设置备份保留天数。负值保持默认。
func WithLogMaxAge(days int) LoggerOption {
	return func(o *loggerOptions) {
		if days >= 0 {
			o.maxAgeDays = days
		}
	}
}

// WithLogCompress 设置是否 gzip 压缩备份文件。
func WithLogCompress(compress bool) LoggerOption {
	return func(o *loggerOptions) {
		o.compress = compress
	}
}

// NewFileLogger 构造写入轮转文件的 JSON 日志器。
//
// 适合希望引擎日志与宿主日志分流的场景：
//
//	logger, closer, err := xmon.NewFileLogger("/var/log/app/perfkit.log")
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	engine := xmon.New(cfg, xmon.WithLogger(logger))
//
// 返回的 closer 负责关闭底层轮转文件。
func NewFileLogger(path string, opts ...LoggerOption) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return nil, nil, ErrEmptyLogPath
	}

	options := &loggerOptions{
		level:      slog.LevelInfo,
		maxSizeMB:  DefaultLogMaxSizeMB,
		maxBackups: DefaultLogMaxBackups,
		maxAgeDays: DefaultLogMaxAgeDays,
		compress:   true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    options.maxSizeMB,
		MaxBackups: options.maxBackups,
		MaxAge:     options.maxAgeDays,
		Compress:   options.compress,
	}

	handler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level: options.level,
	})
	return slog.New(handler), rotator, nil
}
