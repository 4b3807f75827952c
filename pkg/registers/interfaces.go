package registers

import (
	"context"

	"github.com/perf-monitor/pkg/monitor"
)

// SnapshotSource 快照来源：每次调用刷新主机视图并返回一份新快照
// 实现需可重复调用，单个进程读取失败只丢弃该条记录
type SnapshotSource interface {
	Capture(ctx context.Context) (monitor.Snapshot, error)
}

// Sender 批次投递：每次调用最多发起一次网络请求，失败不重试
type Sender interface {
	Deliver(ctx context.Context, batch monitor.Batch) error
}
