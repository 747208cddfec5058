package xtrack

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

const instrumentationName = "github.com/omeyang/perfkit/xtrack"

// 时间与堆快照函数变量，支持测试中 mock 替换以构造确定性时序。
// 设计决策: 使用包级变量 mock 模式（与 xres 的采集函数一致）。
// 注意：mock 测试不可使用 t.Parallel()，因为替换包级变量会引发竞态。
var (
	timeNow  = time.Now
	readHeap = heapInUse
)

// heapInUse 返回当前堆占用字节数。
func heapInUse() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// Sink 在记录进入终态后接收完成通知。
//
// OnComplete 在 End 的调用路径上同步执行，收到的是记录的值拷贝。
// 耗时实现会拖慢 End 调用方。
type Sink interface {
	OnComplete(rec Record)
}

// SinkFunc 将普通函数适配为 Sink。
type SinkFunc func(rec Record)

// OnComplete 调用底层函数。
func (f SinkFunc) OnComplete(rec Record) { f(rec) }

// ThresholdFunc 判定给定操作的时延是否超过配置阈值。
type ThresholdFunc func(name string, duration time.Duration) bool

// Tracker 追踪命名操作的生命周期。
//
// 所有方法并发安全。在途集合与历史由互斥锁保护：id 对每次 Start 唯一，
// 并发的 Start/End 不会相互碰撞，但 map 本身需要加锁（多线程运行时）。
type Tracker struct {
	opts *options

	mu      sync.Mutex
	active  map[string]*Record
	history []Record // 环形缓冲
	head    int      // 下一个写入位置
	count   int      // 已写入条数（≤ cap）
}

// New 创建 Tracker。
func New(opts ...Option) *Tracker {
	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}
	return &Tracker{
		opts:    options,
		active:  make(map[string]*Record),
		history: make([]Record, options.historyLimit),
	}
}

// Start 开始追踪一次命名操作，返回唯一 id。
//
// id 由名称、纳秒时间戳和随机后缀组成，对每次调用碰撞安全。
// metadata 为不透明键值对，内部拷贝存储，调用方后续修改不影响记录。
// Start 总是成功，没有失败模式。
func (t *Tracker) Start(name string, metadata map[string]string) string {
	now := timeNow()
	id := fmt.Sprintf("%s-%d-%s", name, now.UnixNano(), randomSuffix())

	rec := &Record{
		ID:        id,
		Name:      name,
		StartTime: now,
		Metadata:  copyMetadata(metadata),
		startHeap: readHeap(),
	}

	t.mu.Lock()
	t.active[id] = rec
	t.mu.Unlock()

	return id
}

// End 结束 id 对应的操作。
//
// id 未知或已结束时返回 nil 且不改变任何状态——这是刻意的幂等空操作，
// 不是错误：重复结束绝不能让调用方崩溃。
//
// 首次结束时计算时延与堆内存增量，记录移入 FIFO 历史（超容量淘汰最旧），
// 执行阈值判定，随后按注册顺序同步通知各 Sink。
// result 为可选结果载荷；当其实现 error 时捕获错误消息，其余载荷不保留。
func (t *Tracker) End(id string, success bool, result any) *EndResult {
	now := timeNow()
	heap := readHeap()

	t.mu.Lock()
	rec, ok := t.active[id]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.active, id)

	rec.EndTime = now
	rec.Duration = now.Sub(rec.StartTime)
	rec.Success = success
	rec.MemoryDelta = int64(heap) - int64(rec.startHeap)
	if err, isErr := result.(error); isErr && err != nil {
		rec.Err = err.Error()
	}
	if t.opts.threshold != nil {
		rec.ExceedsThreshold = t.opts.threshold(rec.Name, rec.Duration)
	}

	t.appendHistoryLocked(*rec)
	done := *rec
	sinks := t.opts.sinks
	t.mu.Unlock()

	// 设计决策: Sink 回调在锁外执行，Sink 实现可以安全地回读 Tracker
	// 而不会死锁；代价是回调看到的历史可能已包含后续记录。
	for _, sink := range sinks {
		sink.OnComplete(done)
	}

	return &EndResult{
		Latency:          done.Duration,
		Success:          done.Success,
		MemoryDelta:      done.MemoryDelta,
		ExceedsThreshold: done.ExceedsThreshold,
	}
}

// Track 包装执行 fn：自动 Start，fn 正常返回时以成功结束，
// 失败时捕获错误、以失败结束，并将原始错误原样返回给调用方。
// 这是引擎中唯一向调用方传播失败的路径。
//
// 配置了 TracerProvider 时，fn 在一个以操作名命名的 span 内执行。
func (t *Tracker) Track(ctx context.Context, name string, fn func(ctx context.Context) error, metadata map[string]string) error {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}

	id := t.Start(name, metadata)

	if t.opts.tracer == nil {
		if err := fn(ctx); err != nil {
			t.End(id, false, err)
			return err
		}
		t.End(id, true, nil)
		return nil
	}

	spanCtx, span := t.opts.tracer.Start(ctx, name)
	err := fn(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()

	if err != nil {
		t.End(id, false, err)
		return err
	}
	t.End(id, true, nil)
	return nil
}

// Active 返回所有在途记录的快照。
func (t *Tracker) Active() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Record, 0, len(t.active))
	for _, rec := range t.active {
		out = append(out, *rec)
	}
	return out
}

// LongRunning 返回在途时长超过 threshold 的记录快照，供外部看门狗轮询。
// 本包不做 TTL 自动清理，未结束的操作会一直占据在途集合。
func (t *Tracker) LongRunning(threshold time.Duration) []Record {
	now := timeNow()

	t.mu.Lock()
	defer t.mu.Unlock()

	var out []Record
	for _, rec := range t.active {
		if now.Sub(rec.StartTime) > threshold {
			out = append(out, *rec)
		}
	}
	return out
}

// History 返回最近 limit 条已完成记录，按完成顺序（最旧在前）。
// limit 非正或超过现存条数时返回全部。
func (t *Tracker) History(limit int) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := t.count
	if limit > 0 && limit < n {
		n = limit
	}

	out := make([]Record, 0, n)
	// head 指向下一个写入位置，最旧记录位于 head-count（环形回绕）。
	start := t.head - n
	for i := 0; i < n; i++ {
		idx := (start + i + len(t.history)) % len(t.history)
		out = append(out, t.history[idx])
	}
	return out
}

// appendHistoryLocked 将终态记录写入环形历史，满时覆盖最旧条目。
// 调用方必须持有 t.mu。
func (t *Tracker) appendHistoryLocked(rec Record) {
	t.history[t.head] = rec
	t.head = (t.head + 1) % len(t.history)
	if t.count < len(t.history) {
		t.count++
	}
}

// randomSuffix 返回 8 位随机十六进制后缀。
func randomSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// copyMetadata 拷贝元数据，nil 输入返回 nil。
func copyMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
