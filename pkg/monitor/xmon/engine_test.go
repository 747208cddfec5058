package xmon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestEngine_OperationLifecycle(t *testing.T) {
	e := New(DefaultConfig())

	id := e.StartOperation("save-note", map[string]string{"notebook": "work"})
	require.NotEmpty(t, id)

	active := e.GetActiveOperations()
	require.Len(t, active, 1)
	assert.Equal(t, "save-note", active[0].Name)

	result := e.EndOperation(id, true, nil)
	require.NotNil(t, result)
	assert.True(t, result.Success)

	assert.Empty(t, e.GetActiveOperations())

	history := e.GetHistory(0)
	require.Len(t, history, 1)
	assert.Equal(t, "work", history[0].Metadata["notebook"])

	metrics := e.GetMetrics()
	require.Contains(t, metrics, "save-note")
	assert.Equal(t, int64(1), metrics["save-note"].Count)
	assert.Equal(t, 1.0, metrics["save-note"].SuccessRate)
}

func TestEngine_EndOperation_UnknownID(t *testing.T) {
	e := New(DefaultConfig())
	assert.Nil(t, e.EndOperation("no-such-id", true, nil))
}

func TestEngine_ThresholdWiring(t *testing.T) {
	e := New(DefaultConfig())
	e.SetThreshold("slow-op", time.Nanosecond)

	id := e.StartOperation("slow-op", nil)
	time.Sleep(time.Millisecond)
	result := e.EndOperation(id, true, nil)

	require.NotNil(t, result)
	assert.True(t, result.ExceedsThreshold)

	history := e.GetHistory(1)
	require.Len(t, history, 1)
	assert.True(t, history[0].ExceedsThreshold)

	// 同一次 Check 同时驱动越界标记与违规记录
	assert.Len(t, e.thresh.Violations("slow-op"), 1)
}

func TestEngine_ThresholdFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Thresholds = map[string]time.Duration{"search": time.Nanosecond}
	e := New(cfg)

	id := e.StartOperation("search", nil)
	time.Sleep(time.Millisecond)
	result := e.EndOperation(id, true, nil)

	require.NotNil(t, result)
	assert.True(t, result.ExceedsThreshold)
}

func TestEngine_TrackOperation(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("success", func(t *testing.T) {
		called := false
		err := e.TrackOperation(context.Background(), "sync", func(ctx context.Context) error {
			called = true
			return nil
		}, nil)
		require.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("failure returns original error", func(t *testing.T) {
		wantErr := errors.New("disk full")
		err := e.TrackOperation(context.Background(), "sync", func(ctx context.Context) error {
			return wantErr
		}, nil)
		assert.ErrorIs(t, err, wantErr)
	})

	metrics := e.GetMetrics()
	require.Contains(t, metrics, "sync")
	assert.Equal(t, int64(2), metrics["sync"].Count)
	assert.Equal(t, int64(1), metrics["sync"].ErrorCount)
}

func TestEngine_GetSuccessRate(t *testing.T) {
	e := New(DefaultConfig())

	for i := 0; i < 3; i++ {
		id := e.StartOperation("save-note", nil)
		e.EndOperation(id, true, nil)
	}
	id := e.StartOperation("save-note", nil)
	e.EndOperation(id, false, errors.New("connection timeout"))

	report := e.GetSuccessRate("save-note", 0)
	assert.Equal(t, 4, report.Total)
	assert.InDelta(t, 0.75, report.SuccessRate, 1e-9)
	assert.InDelta(t, 0.25, report.ErrorRate, 1e-9)
}

func TestEngine_CalculatePercentiles(t *testing.T) {
	e := New(DefaultConfig())

	t.Run("no samples", func(t *testing.T) {
		assert.Empty(t, e.CalculatePercentiles([]float64{50, 95}, 0, false))
	})

	for i := 0; i < 20; i++ {
		id := e.StartOperation("op", nil)
		e.EndOperation(id, true, nil)
	}

	t.Run("empty percentile list", func(t *testing.T) {
		assert.Empty(t, e.CalculatePercentiles(nil, 0, false))
	})

	t.Run("with samples", func(t *testing.T) {
		out := e.CalculatePercentiles([]float64{50, 95, 99}, 0, false)
		require.Len(t, out, 3)
		assert.GreaterOrEqual(t, out[95], out[50])
		assert.GreaterOrEqual(t, out[99], out[95])
	})

	t.Run("outlier fencing keeps result", func(t *testing.T) {
		out := e.CalculatePercentiles([]float64{50}, 0, true)
		require.Contains(t, out, 50.0)
		assert.Greater(t, out[50], time.Duration(0))
	})

	t.Run("expired window excludes all", func(t *testing.T) {
		// 所有记录都刚完成，负向窗口之外不可能有样本
		out := e.CalculatePercentiles([]float64{50}, time.Nanosecond, false)
		// 单纳秒窗口内记录大概率已过期；有则值必为正
		if len(out) != 0 {
			assert.Greater(t, out[50], time.Duration(0))
		}
	})
}

func TestEngine_Snapshot(t *testing.T) {
	e := New(DefaultConfig())

	id := e.StartOperation("save-note", nil)
	e.EndOperation(id, true, nil)

	snap := e.Snapshot()
	assert.False(t, snap.GeneratedAt.IsZero())
	assert.Zero(t, snap.Uptime) // 未启动
	require.Contains(t, snap.Operations, "save-note")
	require.NotNil(t, snap.Memory)
	require.NotNil(t, snap.Errors)
	assert.Equal(t, 1, snap.Errors.Rate.Total)
}

func TestEngine_Reports(t *testing.T) {
	e := New(DefaultConfig())

	id := e.StartOperation("ai-consolidate", nil)
	e.EndOperation(id, true, nil)

	md := e.GenerateReport()
	assert.Contains(t, md, "# Performance Report")
	assert.Contains(t, md, "ai-consolidate")

	csv := e.ExportToCSV()
	assert.Contains(t, csv, "Operation,Count,Success Rate,Avg Duration,P50,P90,P99")
	assert.Contains(t, csv, "ai-consolidate")
}

func TestEngine_StartStop(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		WindowSize:     time.Second,
		SampleInterval: 20 * time.Millisecond,
		ExportPath:     dir,
	}
	e := New(cfg)

	require.NoError(t, e.Start(context.Background()))
	assert.ErrorIs(t, e.Start(context.Background()), ErrAlreadyStarted)

	id := e.StartOperation("save-note", nil)
	e.EndOperation(id, true, nil)

	// 采样循环最终产出资源快照
	require.Eventually(t, func() bool {
		return e.Snapshot().Resource != nil
	}, 2*time.Second, 10*time.Millisecond)

	e.Stop()
	e.Stop() // 幂等

	// Stop 触发最终导出
	exportFile := filepath.Join(dir, fmt.Sprintf("metrics-%s.json", time.Now().Format("2006-01-02")))
	data, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "save-note")

	// 停止后可再次启动
	require.NoError(t, e.Start(context.Background()))
	e.Stop()
}

func TestEngine_Start_ContextCancel(t *testing.T) {
	e := New(Config{SampleInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, e.Start(ctx))

	cancel()
	e.Stop()
}

func TestEngine_LongRunning(t *testing.T) {
	e := New(DefaultConfig())

	id := e.StartOperation("stuck-op", nil)
	time.Sleep(2 * time.Millisecond)

	long := e.GetLongRunningOperations(time.Millisecond)
	require.Len(t, long, 1)
	assert.Equal(t, "stuck-op", long[0].Name)

	assert.Empty(t, e.GetLongRunningOperations(time.Hour))
	e.EndOperation(id, true, nil)
}
