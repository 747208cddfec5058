package xmon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestWatchThresholds_AppliesOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perfkit.yaml")
	writeConfig(t, path, "thresholds:\n  save-note: 200\n")

	e := New(DefaultConfig())
	w, err := e.WatchThresholds(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	writeConfig(t, path, "thresholds:\n  save-note: 500\n  search: 150\n")

	require.Eventually(t, func() bool {
		d, ok := e.thresh.Threshold("search")
		return ok && d == 150*time.Millisecond
	}, 2*time.Second, 10*time.Millisecond)

	d, ok := e.thresh.Threshold("save-note")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, d)
}

func TestWatchThresholds_RemovedEntriesDropped(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perfkit.yaml")
	writeConfig(t, path, "thresholds:\n  save-note: 200\n")

	e := New(DefaultConfig())
	e.SetThreshold("save-note", 200*time.Millisecond)

	w, err := e.WatchThresholds(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	writeConfig(t, path, "thresholds:\n  search: 150\n")

	require.Eventually(t, func() bool {
		_, ok := e.thresh.Threshold("search")
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, ok := e.thresh.Threshold("save-note")
	assert.False(t, ok)
}

func TestWatchThresholds_MalformedFileKeepsExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perfkit.json")
	writeConfig(t, path, `{"thresholds":{"save-note":200}}`)

	e := New(DefaultConfig())
	e.SetThreshold("save-note", 200*time.Millisecond)

	w, err := e.WatchThresholds(path, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)
	defer func() { _ = w.Stop() }()

	writeConfig(t, path, "{not json")

	// 解析失败不应清掉现有阈值；留出防抖加重载的时间
	time.Sleep(200 * time.Millisecond)

	d, ok := e.thresh.Threshold("save-note")
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, d)
}

func TestWatchThresholds_Errors(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("empty path", func(t *testing.T) {
		_, err := e.WatchThresholds("")
		assert.ErrorIs(t, err, ErrEmptyPath)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := e.WatchThresholds("/tmp/perfkit.toml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestWatcher_StopIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "perfkit.yaml")
	writeConfig(t, path, "thresholds: {}\n")

	e := New(DefaultConfig())
	w, err := e.WatchThresholds(path)
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	// 第二次 Stop 不应 panic 或阻塞
	_ = w.Stop()
}
