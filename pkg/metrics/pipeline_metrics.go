package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PipelineMetrics 采样循环与缓冲区指标
type PipelineMetrics struct {
	SnapshotsCollected prometheus.Counter
	BufferLength       prometheus.Gauge
	BatchesDispatched  prometheus.Counter
}

// NewPipelineMetrics 创建并注册采样循环指标
func (f *MetricFactory) NewPipelineMetrics() *PipelineMetrics {
	return &PipelineMetrics{
		SnapshotsCollected: promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
			Name: "agent_snapshots_collected_total",
			Help: "Snapshots appended to the buffer",
		}),
		BufferLength: promauto.With(f.reg).NewGauge(prometheus.GaugeOpts{
			Name: "agent_buffer_length",
			Help: "Snapshots currently waiting in the buffer",
		}),
		BatchesDispatched: promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
			Name: "agent_batches_dispatched_total",
			Help: "Batches extracted from the buffer and handed to the transmitter",
		}),
	}
}
