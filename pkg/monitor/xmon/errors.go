package xmon

import "errors"

var (
	// ErrAlreadyStarted 表示引擎已在运行中。
	ErrAlreadyStarted = errors.New("xmon: engine already started")

	// ErrEmptyPath 表示配置文件路径为空。
	ErrEmptyPath = errors.New("xmon: empty config path")

	// ErrUnsupportedFormat 表示不支持的配置格式。
	ErrUnsupportedFormat = errors.New("xmon: unsupported config format")

	// ErrLoadFailed 表示配置加载失败。
	ErrLoadFailed = errors.New("xmon: failed to load config")

	// ErrParseFailed 表示配置解析失败。
	ErrParseFailed = errors.New("xmon: failed to parse config")

	// ErrEmptyLogPath 表示日志文件路径为空。
	ErrEmptyLogPath = errors.New("xmon: empty log file path")
)
