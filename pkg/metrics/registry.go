package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registers 隔离 Prometheus 默认实现，业务侧只依赖该接口，单测时可替换为独立注册器
type Registers interface {
	prometheus.Registerer
	Gatherer() prometheus.Gatherer
}

// promRegistry Prometheus 实现，内部包裹官方的 *prometheus.Registry
type promRegistry struct {
	registry *prometheus.Registry
}

// NewPromRegistry 创建 Prometheus 指标注册器
func NewPromRegistry(registry *prometheus.Registry) Registers {
	return &promRegistry{registry: registry}
}

// MustRegister 实现 prometheus.Registerer
func (p *promRegistry) MustRegister(collectors ...prometheus.Collector) {
	for _, c := range collectors {
		if err := p.registry.Register(c); err != nil {
			panic(err)
		}
	}
}

// Register 实现 prometheus.Registerer
func (p *promRegistry) Register(collector prometheus.Collector) error {
	return p.registry.Register(collector)
}

// Unregister 实现 prometheus.Registerer
func (p *promRegistry) Unregister(collector prometheus.Collector) bool {
	return p.registry.Unregister(collector)
}

// Gatherer 供 /metrics 端点使用
func (p *promRegistry) Gatherer() prometheus.Gatherer {
	return p.registry
}

// NewRegistry 创建只包含进程指标（可选）的注册器，不注册 Go 运行时指标
func NewRegistry(enableProcess bool) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	if enableProcess {
		reg.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	}
	return reg
}
