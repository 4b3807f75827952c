package registers

import (
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/buffer"
	"github.com/perf-monitor/pkg/collector"
	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/metrics"
	"github.com/perf-monitor/pkg/monitor"
	"github.com/perf-monitor/pkg/transmitter"
)

// Pipeline 启动时组装好的采集管线
// Registry	*prometheus.Registry	指标注册器，供 /metrics 暴露或单元测试读取
// Collector	*collector.HostCollector	快照采集器，采样循环与 /api/snapshot 共用
// Agent	*Agent	                采样循环，持有缓冲区与发送计数器
type Pipeline struct {
	Registry  *prometheus.Registry
	Collector *collector.HostCollector
	Agent     *Agent
}

// InitPipeline 按配置组装：注册器 → 指标工厂 → 采集器 → 缓冲区/计数器 → 投递器 → 采样循环
// 共享状态全部在这里显式构造，不使用包级全局变量
func InitPipeline(cfg *config.Config, enableProcess bool, probe collector.Probe, client *http.Client, logger *zap.Logger, clock clockwork.Clock) (*Pipeline, error) {
	if err := cfg.Monitor.Validate(); err != nil {
		return nil, fmt.Errorf("invalid monitor config: %w", err)
	}
	if err := cfg.Delivery.Validate(); err != nil {
		return nil, fmt.Errorf("invalid delivery config: %w", err)
	}

	promReg := metrics.NewRegistry(enableProcess)
	factory := metrics.NewMetricFactory(metrics.NewPromRegistry(promReg))

	logger.Debug("collector enable status",
		zap.Bool("processes_enable", cfg.Monitor.Collectors.Processes.Enable),
		zap.Bool("network_enable", cfg.Monitor.Collectors.Network.Enable),
		zap.Strings("ignore_networks", cfg.Monitor.Collectors.Network.IgnoreNetworks),
	)

	hostCollector := collector.NewHostCollector(
		cfg.Monitor.Collectors,
		probe,
		factory.NewCollectorMetrics(),
		logger.Named("collector"),
		clock,
	)

	counter := buffer.NewSentCounter()
	sender := transmitter.New(cfg.Delivery, client, counter, factory.NewDeliveryMetrics(), logger.Named("transmitter"))

	agent := NewAgent(
		AgentOptions{
			Interval:        cfg.Monitor.Interval,
			BatchSize:       cfg.Monitor.BatchSize,
			DeliveryTimeout: cfg.Delivery.Timeout,
		},
		hostCollector,
		sender,
		buffer.New[monitor.Snapshot](),
		counter,
		factory.NewPipelineMetrics(),
		logger.Named("agent"),
		clock,
	)

	logger.Info("pipeline assembled",
		zap.String("collector", hostCollector.Name()),
		zap.String("server_url", cfg.Delivery.ServerURL),
		zap.Bool("compress", cfg.Delivery.Compress),
		zap.Duration("interval", cfg.Monitor.Interval),
		zap.Int("batch_size", cfg.Monitor.BatchSize),
	)
	return &Pipeline{Registry: promReg, Collector: hostCollector, Agent: agent}, nil
}
