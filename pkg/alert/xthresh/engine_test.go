package xthresh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_NoThreshold(t *testing.T) {
	e := New()

	res := e.Check("unconfigured", time.Hour)
	assert.False(t, res.Exceeded)
	assert.Zero(t, res.Threshold)
	assert.Empty(t, e.Violations("unconfigured"))
}

func TestEngine_NotExceeded(t *testing.T) {
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	res := e.Check("op", 100*time.Millisecond) // 等于阈值不算超限
	assert.False(t, res.Exceeded)
	assert.Zero(t, res.Excess)
	assert.Empty(t, e.Violations("op"))
}

func TestEngine_SeverityTiers(t *testing.T) {
	cases := []struct {
		duration time.Duration
		want     Severity
	}{
		{115 * time.Millisecond, SeverityLow},
		{140 * time.Millisecond, SeverityMedium},
		{180 * time.Millisecond, SeverityHigh},
		{250 * time.Millisecond, SeverityCritical},
	}

	for _, tc := range cases {
		t.Run(string(tc.want), func(t *testing.T) {
			e := New()
			e.SetThreshold("op", 100*time.Millisecond)

			res := e.Check("op", tc.duration)
			require.True(t, res.Exceeded)
			assert.Equal(t, tc.want, res.Severity)
			assert.Equal(t, tc.duration-100*time.Millisecond, res.Excess)
		})
	}
}

func TestEngine_AlertOnSixthViolation(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	// 5 分钟窗口内 6 次违规：恰好在第 6 次触发一个 Alert，不能更早。
	for i := 0; i < 6; i++ {
		timeNow = func() time.Time { return base.Add(time.Duration(i) * 30 * time.Second) }
		e.Check("op", 110*time.Millisecond)
		if i < 5 {
			assert.Empty(t, e.Alerts(), "alert emitted too early at violation %d", i+1)
		}
	}

	alerts := e.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, "op", alerts[0].OperationName)
	assert.Equal(t, EventTypeAlert, alerts[0].Type)
}

func TestEngine_AlertWindowExpires(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	// 6 次违规分散在 6 分多钟：任何 5 分钟窗口内都不超过 5 次。
	for i := 0; i < 6; i++ {
		timeNow = func() time.Time { return base.Add(time.Duration(i) * 65 * time.Second) }
		e.Check("op", 110*time.Millisecond)
	}
	assert.Empty(t, e.Alerts())
}

func TestEngine_AutoScaleOnEleventhHighViolation(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	// 11 次 critical 违规落在 10 分钟窗口内 → 第 11 次触发扩容信号。
	for i := 0; i < 11; i++ {
		timeNow = func() time.Time { return base.Add(time.Duration(i) * 50 * time.Second) }
		e.Check("op", 250*time.Millisecond)
		if i < 10 {
			assert.Empty(t, e.AutoScaleEvents(), "auto-scale emitted too early at violation %d", i+1)
		}
	}

	events := e.AutoScaleEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeAutoScale, events[0].Type)
}

func TestEngine_LowViolationsDoNotAutoScale(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	// low 严重度违规不计入扩容升级，即使次数很多。
	for i := 0; i < 20; i++ {
		timeNow = func() time.Time { return base.Add(time.Duration(i) * time.Second) }
		e.Check("op", 110*time.Millisecond)
	}
	assert.Empty(t, e.AutoScaleEvents())
	assert.NotEmpty(t, e.Alerts())
}

func TestEngine_ViolationRetention(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	e := New()
	e.SetThreshold("op", 100*time.Millisecond)

	timeNow = func() time.Time { return base }
	e.Check("op", 150*time.Millisecond)

	// 一小时后旧违规被裁剪。
	timeNow = func() time.Time { return base.Add(ViolationRetention + time.Minute) }
	e.Check("op", 150*time.Millisecond)

	vs := e.Violations("op")
	require.Len(t, vs, 1)
	assert.Equal(t, base.Add(ViolationRetention+time.Minute), vs[0].Timestamp)
}

func TestEngine_SetThresholds(t *testing.T) {
	e := New(WithThresholds(map[string]time.Duration{"a": time.Second}))

	e.SetThresholds(map[string]time.Duration{
		"b": 2 * time.Second,
		"a": 0, // 非正值删除
	})

	_, ok := e.Threshold("a")
	assert.False(t, ok)
	d, ok := e.Threshold("b")
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d)
}

func TestEngine_PerOperationIsolation(t *testing.T) {
	old := timeNow
	defer func() { timeNow = old }()

	base := time.Now()
	timeNow = func() time.Time { return base }

	e := New()
	e.SetThreshold("a", 100*time.Millisecond)
	e.SetThreshold("b", 100*time.Millisecond)

	// a 与 b 各 3 次违规：单个操作不足 5 次，不应互相累计成告警。
	for i := 0; i < 3; i++ {
		e.Check("a", 120*time.Millisecond)
		e.Check("b", 120*time.Millisecond)
	}
	assert.Empty(t, e.Alerts())
}
