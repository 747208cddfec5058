package xres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestCapture(t *testing.T) {
	s, err := Capture()
	require.NoError(t, err)
	assert.False(t, s.Timestamp.IsZero())
	assert.Greater(t, s.HeapUsed, uint64(0))
	assert.GreaterOrEqual(t, s.HeapTotal, s.HeapUsed)
}

func TestSampler_Capacity(t *testing.T) {
	t.Run("default window", func(t *testing.T) {
		s := New()
		// 1 小时窗口 / 10 秒间隔 = 360。
		assert.Equal(t, 360, s.Capacity())
	})

	t.Run("custom", func(t *testing.T) {
		s := New(WithInterval(time.Second), WithWindow(5*time.Second))
		assert.Equal(t, 5, s.Capacity())
	})

	t.Run("at least one slot", func(t *testing.T) {
		s := New(WithInterval(time.Minute), WithWindow(time.Second))
		assert.Equal(t, 1, s.Capacity())
	})
}

func TestSampler_StartStop(t *testing.T) {
	s := New(WithInterval(5*time.Millisecond), WithWindow(time.Second))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)

	// 等待至少几次采样。
	require.Eventually(t, func() bool {
		return len(s.Samples()) >= 3
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	s.Stop() // 幂等

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Greater(t, latest.HeapUsed, uint64(0))
}

func TestSampler_StopFlushesOnce(t *testing.T) {
	var mu sync.Mutex
	flushes := 0
	s := New(
		WithInterval(time.Millisecond),
		WithWindow(time.Second),
		WithFlushFunc(func(ctx context.Context) {
			mu.Lock()
			flushes++
			mu.Unlock()
		}),
	)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, flushes)
}

func TestSampler_StopWithoutStart(t *testing.T) {
	called := false
	s := New(WithFlushFunc(func(ctx context.Context) { called = true }))
	s.Stop()
	assert.False(t, called)
}

func TestSampler_RingEviction(t *testing.T) {
	s := New(WithInterval(time.Millisecond), WithWindow(3*time.Millisecond))
	require.Equal(t, 3, s.Capacity())

	// 直接驱动 tick，绕开真实时钟。
	for i := 0; i < 10; i++ {
		s.tick()
	}

	samples := s.Samples()
	require.Len(t, samples, 3)
	// 最旧在前。
	assert.True(t, !samples[0].Timestamp.After(samples[2].Timestamp))
}

func TestSampler_CaptureFailureSkipsTick(t *testing.T) {
	old := captureFunc
	defer func() { captureFunc = old }()

	calls := 0
	captureFunc = func() (Sample, error) {
		calls++
		if calls%2 == 0 {
			return Sample{}, errors.New("simulated failure")
		}
		return Sample{Timestamp: time.Now(), HeapUsed: 1}, nil
	}

	s := New(WithInterval(time.Millisecond), WithWindow(time.Second))
	for i := 0; i < 6; i++ {
		s.tick()
	}

	// 一半的 tick 失败被吞掉，不应进入缓冲，也不应 panic。
	assert.Len(t, s.Samples(), 3)
}

func TestSampler_ContextCancelStopsLoop(t *testing.T) {
	s := New(WithInterval(time.Millisecond), WithWindow(time.Second))
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, s.Start(ctx))
	cancel()

	// 循环退出后 Stop 仍安全（仍会 flush + 等待 done 关闭）。
	s.Stop()
}
