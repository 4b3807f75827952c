package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollectorMetrics 快照采集器自身及主机概览指标
type CollectorMetrics struct {
	CollectErrors   *prometheus.CounterVec   // 采集错误（按采集项）
	CollectDuration *prometheus.HistogramVec // 单次采集耗时
	DroppedRecords  prometheus.Counter       // 读取失败被丢弃的进程记录
	CPUUsageRatio   *prometheus.GaugeVec     // 每核使用率（0-1）
	MemoryUsed      *prometheus.GaugeVec     // 已用内存/交换分区（字节）
}

// NewCollectorMetrics 创建并注册采集器指标
func (f *MetricFactory) NewCollectorMetrics() *CollectorMetrics {
	return &CollectorMetrics{
		CollectErrors:   f.NewAgentCollectErrorsTotal(),
		CollectDuration: f.NewAgentCollectDurationSeconds(),
		DroppedRecords:  f.NewProcessRecordsDroppedTotal(),
		CPUUsageRatio:   f.NewCPUUsageRatio(),
		MemoryUsed:      f.NewMemoryUsedBytes(),
	}
}

// NewAgentCollectErrorsTotal 「采集错误总数」，collector 标签区分 cpu/memory/host/process/network
func (f *MetricFactory) NewAgentCollectErrorsTotal() *prometheus.CounterVec {
	return promauto.With(f.reg).NewCounterVec(
		prometheus.CounterOpts{
			Name: "agent_collect_errors_total",
			Help: "Total number of collection errors",
		},
		[]string{"collector"},
	)
}

// NewAgentCollectDurationSeconds 「采集耗时分布」
// 分桶：0.01s ~ 5.12s，覆盖进程枚举较慢的主机
func (f *MetricFactory) NewAgentCollectDurationSeconds() *prometheus.HistogramVec {
	return promauto.With(f.reg).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agent_collect_duration_seconds",
			Help:    "Duration of snapshot collection",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"collector"},
	)
}

func (f *MetricFactory) NewProcessRecordsDroppedTotal() prometheus.Counter {
	return promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
		Name: "agent_process_records_dropped_total",
		Help: "Process records skipped because they could not be read",
	})
}

// NewCPUUsageRatio CPU指标
func (f *MetricFactory) NewCPUUsageRatio() *prometheus.GaugeVec {
	return promauto.With(f.reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "cpu_usage_ratio",
		Help: "CPU usage ratio per core from the latest snapshot",
	}, []string{"core"})
}

// NewMemoryUsedBytes kind 取值 physical/swap
func (f *MetricFactory) NewMemoryUsedBytes() *prometheus.GaugeVec {
	return promauto.With(f.reg).NewGaugeVec(prometheus.GaugeOpts{
		Name: "memory_used_bytes",
		Help: "Used memory in bytes from the latest snapshot",
	}, []string{"kind"})
}
