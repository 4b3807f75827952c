package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 投递结果标签
const (
	OutcomeSuccess   = "success"
	OutcomeEncode    = "encode_error"
	OutcomeCompress  = "compress_error"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status_error"
)

// DeliveryMetrics 批次投递指标
type DeliveryMetrics struct {
	Deliveries    *prometheus.CounterVec   // 按 outcome 统计投递次数
	Duration      prometheus.Histogram     // 单次 HTTP 投递耗时
	PayloadBytes  *prometheus.HistogramVec // stage: raw/compressed
	SnapshotsSent prometheus.Counter       // 远端确认接收的快照数
}

// NewDeliveryMetrics 创建并注册投递指标
func (f *MetricFactory) NewDeliveryMetrics() *DeliveryMetrics {
	return &DeliveryMetrics{
		Deliveries: promauto.With(f.reg).NewCounterVec(prometheus.CounterOpts{
			Name: "agent_deliveries_total",
			Help: "Batch delivery attempts by outcome",
		}, []string{"outcome"}),
		Duration: promauto.With(f.reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "agent_delivery_duration_seconds",
			Help:    "Duration of a single batch POST",
			Buckets: prometheus.DefBuckets,
		}),
		PayloadBytes: promauto.With(f.reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "agent_payload_bytes",
			Help:    "Batch payload size before and after compression",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB ~ 16MiB
		}, []string{"stage"}),
		SnapshotsSent: promauto.With(f.reg).NewCounter(prometheus.CounterOpts{
			Name: "agent_snapshots_sent_total",
			Help: "Snapshots accepted by the remote collector",
		}),
	}
}
