package xmon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// 默认配置值。
const (
	// DefaultWindowSize 默认采样窗口时长。
	DefaultWindowSize = time.Hour

	// DefaultSampleInterval 默认资源采样间隔。
	DefaultSampleInterval = 10 * time.Second

	// DefaultHistoryLimit 默认操作历史容量。
	DefaultHistoryLimit = 1000
)

// Format 配置文件格式。
type Format string

const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

// Config 引擎配置。
//
// 零值字段在 [New] 中回填为默认值，因此手工构造时只需设置关心的字段。
type Config struct {
	// WindowSize 资源采样窗口时长，决定环形缓冲容量。
	WindowSize time.Duration

	// SampleInterval 资源采样间隔。
	SampleInterval time.Duration

	// Thresholds 操作名到时长阈值的映射，可在运行期通过
	// [Engine.SetThresholds] 更新。
	Thresholds map[string]time.Duration

	// ExportPath 快照导出目录。为空时禁用文件导出。
	ExportPath string

	// HistoryLimit 操作历史 FIFO 容量。
	HistoryLimit int
}

// DefaultConfig 返回全默认值的配置。
func DefaultConfig() Config {
	return Config{
		WindowSize:     DefaultWindowSize,
		SampleInterval: DefaultSampleInterval,
		HistoryLimit:   DefaultHistoryLimit,
	}
}

// normalize 回填零值字段。
func (c Config) normalize() Config {
	if c.WindowSize <= 0 {
		c.WindowSize = DefaultWindowSize
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = DefaultSampleInterval
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	return c
}

// fileConfig 为配置文件的落盘 schema。
// 时长字段以毫秒整数表达，便于 YAML/JSON 手写。
type fileConfig struct {
	WindowSizeMS     int64            `koanf:"metricsWindowSize"`
	SampleIntervalMS int64            `koanf:"metricsSampleInterval"`
	ExportPath       string           `koanf:"metricsExportPath"`
	HistoryLimit     int              `koanf:"historyLimit"`
	ThresholdsMS     map[string]int64 `koanf:"thresholds"`
}

// LoadConfig 从文件加载配置。
// 根据扩展名自动检测格式（.yaml/.yml 或 .json）。
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, ErrEmptyPath
	}

	format, err := detectFormat(path)
	if err != nil {
		return Config{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	return LoadConfigBytes(data, format)
}

// LoadConfigBytes 从字节数据加载配置。
// 需要显式指定格式，适用于内嵌配置或 ConfigMap 场景。
// 空数据返回全默认配置。
func LoadConfigBytes(data []byte, format Format) (Config, error) {
	k := koanf.New(".")

	if len(data) > 0 {
		parser, err := parserFor(format)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(data), parser); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
		}
	}

	var fc fileConfig
	if err := k.Unmarshal("", &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrParseFailed, err)
	}

	cfg := Config{
		WindowSize:     time.Duration(fc.WindowSizeMS) * time.Millisecond,
		SampleInterval: time.Duration(fc.SampleIntervalMS) * time.Millisecond,
		ExportPath:     fc.ExportPath,
		HistoryLimit:   fc.HistoryLimit,
	}
	if len(fc.ThresholdsMS) > 0 {
		cfg.Thresholds = make(map[string]time.Duration, len(fc.ThresholdsMS))
		for name, ms := range fc.ThresholdsMS {
			cfg.Thresholds[name] = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg.normalize(), nil
}

func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

func parserFor(format Format) (koanf.Parser, error) {
	switch format {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return json.Parser(), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}
