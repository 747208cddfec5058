package xres

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// 默认采样参数。
const (
	// DefaultInterval 为默认采样间隔。
	DefaultInterval = 10 * time.Second

	// DefaultWindow 为默认保留窗口。
	DefaultWindow = time.Hour
)

// FlushFunc 在 Stop 返回前被调用恰好一次，用于最终导出等收尾动作。
type FlushFunc func(ctx context.Context)

// Option 配置 Sampler 的选项函数。
type Option func(*Sampler)

// WithInterval 设置采样间隔。非正值时保持默认值。
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithWindow 设置保留窗口。非正值时保持默认值。
// 环形缓冲容量为 窗口/间隔（至少 1）。
func WithWindow(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithLogger 设置日志记录器。默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithFlushFunc 设置 Stop 时的最终 flush 回调。
func WithFlushFunc(fn FlushFunc) Option {
	return func(s *Sampler) {
		if fn != nil {
			s.flush = fn
		}
	}
}

// Sampler 以固定间隔采集进程资源快照，保留有界历史。
//
// 生命周期为显式的武装/解除：Start 启动后台循环，Stop 取消循环、
// 等待退出并执行最终 flush。两者都并发安全，Stop 幂等。
type Sampler struct {
	interval time.Duration
	window   time.Duration
	logger   *slog.Logger
	flush    FlushFunc

	mu      sync.Mutex
	buf     []Sample
	head    int
	count   int
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New 创建 Sampler。缓冲在首次 Start 前按 窗口/间隔 分配。
func New(opts ...Option) *Sampler {
	s := &Sampler{
		interval: DefaultInterval,
		window:   DefaultWindow,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}

	size := int(s.window / s.interval)
	if size < 1 {
		size = 1
	}
	s.buf = make([]Sample, size)
	return s
}

// Start 武装采样循环。已在运行时返回 [ErrAlreadyStarted]。
//
// 循环在每个间隔采集一次快照写入环形缓冲；单次采集失败只记录日志并
// 跳过该周期，循环不会因此退出。ctx 取消等价于调用 Stop（但不触发
// 最终 flush——flush 只由 Stop 保证）。
func (s *Sampler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go s.loop(loopCtx, done)
	return nil
}

// loop 为后台采样循环。
func (s *Sampler) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick 执行一次采集。失败被吞掉，只留一条日志。
func (s *Sampler) tick() {
	sample, err := captureFunc()
	if err != nil {
		s.logger.Warn("resource sample skipped",
			slog.String("error", err.Error()))
		return
	}

	s.mu.Lock()
	s.buf[s.head] = sample
	s.head = (s.head + 1) % len(s.buf)
	if s.count < len(s.buf) {
		s.count++
	}
	s.mu.Unlock()
}

// Stop 解除采样循环：取消、等待循环退出，然后执行最终 flush。
// 未启动或已停止时为空操作。并发调用安全，flush 至多执行一次。
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	flush := s.flush
	s.mu.Unlock()

	cancel()
	<-done

	if flush != nil {
		flush(context.Background())
	}
}

// Samples 返回采样历史快照，按时间顺序（最旧在前）。
func (s *Sampler) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Sample, 0, s.count)
	start := s.head - s.count
	for i := 0; i < s.count; i++ {
		idx := (start + i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out
}

// Latest 返回最近一条采样。尚无采样时返回零值和 false。
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return Sample{}, false
	}
	idx := (s.head - 1 + len(s.buf)) % len(s.buf)
	return s.buf[idx], true
}

// Capacity 返回环形缓冲容量（窗口/间隔）。
func (s *Sampler) Capacity() int {
	return len(s.buf)
}
