package registers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/buffer"
	"github.com/perf-monitor/pkg/metrics"
	"github.com/perf-monitor/pkg/monitor"
)

// AgentOptions 采样循环参数，启动后不可修改
type AgentOptions struct {
	Interval        time.Duration // 两次采样之间的休眠时长
	BatchSize       int           // 触发抽取的缓冲区长度，同时也是每批的大小
	DeliveryTimeout time.Duration // 单个批次投递的超时，0 表示不限制
}

// Agent 采样循环：定时采集快照写入共享缓冲区，满批后交给 Sender 异步投递
type Agent struct {
	name    string
	opts    AgentOptions
	source  SnapshotSource
	sender  Sender
	buf     *buffer.Buffer[monitor.Snapshot]
	counter *buffer.SentCounter
	metrics *metrics.PipelineMetrics
	logger  *zap.Logger
	clock   clockwork.Clock

	inflight sync.WaitGroup
}

// NewAgent 创建采样循环，缓冲区与计数器由调用方构造后传入
func NewAgent(
	opts AgentOptions,
	source SnapshotSource,
	sender Sender,
	buf *buffer.Buffer[monitor.Snapshot],
	counter *buffer.SentCounter,
	m *metrics.PipelineMetrics,
	logger *zap.Logger,
	clock clockwork.Clock,
) *Agent {
	return &Agent{
		name:    "sampling-loop",
		opts:    opts,
		source:  source,
		sender:  sender,
		buf:     buf,
		counter: counter,
		metrics: m,
		logger:  logger.With(zap.String("name", "sampling-loop")),
		clock:   clock,
	}
}

// Name 返回循环名称
func (a *Agent) Name() string { return a.name }

// Run 阻塞运行采样循环，直到 ctx 被取消
// 先做一次预热采集（结果丢弃，只为建立 CPU 增量基线），之后每轮 Tick 完成后休眠 Interval
func (a *Agent) Run(ctx context.Context) error {
	if _, err := a.source.Capture(ctx); err != nil {
		a.logger.Warn("warm-up capture failed", zap.Error(err))
	}
	a.logger.Info("sampling loop started",
		zap.Duration("interval", a.opts.Interval),
		zap.Int("batch_size", a.opts.BatchSize))

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("sampling loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case <-a.clock.After(a.opts.Interval):
		}
		a.Tick(ctx)
	}
}

// Tick 执行一轮采样：采集 → 追加 → 满批则抽取一批并异步投递
// 采集失败只记录日志，本轮跳过
func (a *Agent) Tick(ctx context.Context) {
	snap, err := a.source.Capture(ctx)
	if err != nil {
		a.logger.Warn("capture failed, skipping tick", zap.Error(err))
		return
	}

	a.buf.Append(snap)
	a.metrics.SnapshotsCollected.Inc()

	snapshots, ok := a.buf.ExtractBatch(a.opts.BatchSize)
	a.metrics.BufferLength.Set(float64(a.buf.Len()))
	if !ok {
		return
	}
	a.dispatch(ctx, monitor.Batch{ID: uuid.NewString(), Snapshots: snapshots})
}

// dispatch 每个批次一个 goroutine，不等待结果
// 投递使用与循环解耦的 context，循环退出不会中断已发出的请求
func (a *Agent) dispatch(ctx context.Context, batch monitor.Batch) {
	a.metrics.BatchesDispatched.Inc()
	a.logger.Info("batch dispatched", zap.String("batch_id", batch.ID), zap.Int("size", batch.Len()))

	deliverCtx := context.WithoutCancel(ctx)
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		c, cancel := deliverCtx, func() {}
		if a.opts.DeliveryTimeout > 0 {
			c, cancel = context.WithTimeout(deliverCtx, a.opts.DeliveryTimeout)
		}
		defer cancel()
		// 结果已由 Sender 记录，这里只补一条调试日志
		if err := a.sender.Deliver(c, batch); err != nil {
			a.logger.Debug("batch discarded", zap.String("batch_id", batch.ID), zap.Error(err))
		}
	}()
}

// Status 返回当前状态视图（最后一份缓冲快照、缓冲区长度、累计发送数）
func (a *Agent) Status() monitor.Status {
	last, ok, n := a.buf.View()
	st := monitor.Status{BufferSize: n, TotalSent: a.counter.Value()}
	if ok {
		st.LastItem = &last
	}
	return st
}

// Wait 等待已派发的投递结束，ctx 到期时返回 ctx.Err()
// 仅用于退出前尽力等待，不保证批次送达
func (a *Agent) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
