package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/shirou/gopsutil/v3/net"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/metrics"
	"github.com/perf-monitor/pkg/monitor"
)

// HostCollector 快照采集器：每次调用刷新一次主机视图并生成一份不可变快照
type HostCollector struct {
	name    string
	cfg     config.CollectorConfig
	probe   Probe
	metrics *metrics.CollectorMetrics
	logger  *zap.Logger
	clock   clockwork.Clock

	mu      sync.Mutex                     // Capture 串行执行，probe 内部状态非并发安全
	lastNet map[string]net.IOCountersStat // 上一次的网卡计数，用于计算增量
	ignore  map[string]struct{}
}

// NewHostCollector 创建快照采集器
func NewHostCollector(cfg config.CollectorConfig, probe Probe, m *metrics.CollectorMetrics, logger *zap.Logger, clock clockwork.Clock) *HostCollector {
	ignore := make(map[string]struct{}, len(cfg.Network.IgnoreNetworks))
	for _, iface := range cfg.Network.IgnoreNetworks {
		ignore[iface] = struct{}{}
	}
	return &HostCollector{
		name:    "host-collector",
		cfg:     cfg,
		probe:   probe,
		metrics: m,
		logger:  logger,
		clock:   clock,
		lastNet: make(map[string]net.IOCountersStat),
		ignore:  ignore,
	}
}

// Name 返回采集器名称
func (c *HostCollector) Name() string { return c.name }

// Capture 采集一份快照
// CPU 或内存读取失败时返回错误；主机信息、进程、网卡读取失败只记录告警并留空
func (c *HostCollector) Capture(ctx context.Context) (monitor.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.clock.Now()
	defer func() {
		c.metrics.CollectDuration.WithLabelValues(c.name).Observe(c.clock.Since(start).Seconds())
	}()

	snap := monitor.Snapshot{Time: start}

	cpus, err := c.probe.CPUPercent(ctx)
	if err != nil {
		c.metrics.CollectErrors.WithLabelValues("cpu").Inc()
		return monitor.Snapshot{}, fmt.Errorf("get cpu usage failed: %w", err)
	}
	snap.CPU = cpus

	if snap.Memory, err = c.collectMemory(ctx); err != nil {
		c.metrics.CollectErrors.WithLabelValues("memory").Inc()
		return monitor.Snapshot{}, err
	}

	snap.System = c.collectSystem(ctx)

	if c.cfg.Processes.Enable {
		snap.Processes = c.collectProcesses(ctx)
	} else {
		snap.Processes = []monitor.ProcessInfo{}
	}

	if c.cfg.Network.Enable {
		snap.Network = c.collectNetwork(ctx)
	}

	c.updateGauges(snap)
	c.logger.Debug("snapshot collected",
		zap.Int("processes", len(snap.Processes)),
		zap.Int("cpus", len(snap.CPU)),
		zap.Int("interfaces", len(snap.Network)))
	return snap, nil
}

func (c *HostCollector) collectMemory(ctx context.Context) (monitor.MemoryInfo, error) {
	vm, err := c.probe.VirtualMemory(ctx)
	if err != nil {
		return monitor.MemoryInfo{}, fmt.Errorf("get virtual memory failed: %w", err)
	}
	info := monitor.MemoryInfo{Total: vm.Total, Used: vm.Used}

	swap, err := c.probe.SwapMemory(ctx)
	if err != nil {
		// 部分系统没有交换分区
		c.logger.Warn("failed to get swap memory", zap.Error(err))
		c.metrics.CollectErrors.WithLabelValues("swap").Inc()
		return info, nil
	}
	info.TotalSwap = swap.Total
	info.UsedSwap = swap.Used
	return info, nil
}

func (c *HostCollector) collectSystem(ctx context.Context) monitor.SystemInfo {
	info, err := c.probe.HostInfo(ctx)
	if err != nil || info == nil {
		c.logger.Warn("failed to get host info", zap.Error(err))
		c.metrics.CollectErrors.WithLabelValues("host").Inc()
		return monitor.SystemInfo{}
	}
	name := info.Platform
	if name == "" {
		name = info.OS
	}
	return monitor.SystemInfo{
		Name:          name,
		Hostname:      info.Hostname,
		Uptime:        info.Uptime,
		OSVersion:     info.PlatformVersion,
		KernelVersion: info.KernelVersion,
	}
}

// collectProcesses 单个进程读取失败（如已退出）时丢弃该条记录，不影响整份快照
func (c *HostCollector) collectProcesses(ctx context.Context) []monitor.ProcessInfo {
	handles, err := c.probe.Processes(ctx)
	if err != nil {
		c.logger.Warn("failed to list processes", zap.Error(err))
		c.metrics.CollectErrors.WithLabelValues("process").Inc()
		return []monitor.ProcessInfo{}
	}

	procs := make([]monitor.ProcessInfo, 0, len(handles))
	dropped := 0
	for _, h := range handles {
		rec, err := readProcess(ctx, h)
		if err != nil {
			dropped++
			continue
		}
		procs = append(procs, rec)
	}
	if dropped > 0 {
		c.metrics.DroppedRecords.Add(float64(dropped))
		c.logger.Debug("skipped unreadable processes", zap.Int("dropped", dropped))
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].PID < procs[j].PID })
	return procs
}

func readProcess(ctx context.Context, h ProcessHandle) (monitor.ProcessInfo, error) {
	name, err := h.Name(ctx)
	if err != nil {
		return monitor.ProcessInfo{}, err
	}
	usage, err := h.CPUPercent(ctx)
	if err != nil {
		return monitor.ProcessInfo{}, err
	}
	rss, err := h.RSS(ctx)
	if err != nil {
		return monitor.ProcessInfo{}, err
	}
	return monitor.ProcessInfo{PID: h.PID(), Name: name, CPUUsage: usage, Memory: rss}, nil
}

// collectNetwork 首次采样时增量为 0；计数器回绕或网卡重置时增量取当前值
func (c *HostCollector) collectNetwork(ctx context.Context) map[string]monitor.NetworkStats {
	counters, err := c.probe.NetIOCounters(ctx)
	if err != nil {
		c.logger.Warn("failed to get network counters", zap.Error(err))
		c.metrics.CollectErrors.WithLabelValues("network").Inc()
		return nil
	}

	out := make(map[string]monitor.NetworkStats, len(counters))
	seen := make(map[string]net.IOCountersStat, len(counters))
	for _, cur := range counters {
		if _, skip := c.ignore[cur.Name]; skip {
			continue
		}
		seen[cur.Name] = cur
		stats := monitor.NetworkStats{
			TotalReceived:    cur.BytesRecv,
			TotalTransmitted: cur.BytesSent,
		}
		if prev, ok := c.lastNet[cur.Name]; ok {
			stats.Received = counterDelta(prev.BytesRecv, cur.BytesRecv)
			stats.Transmitted = counterDelta(prev.BytesSent, cur.BytesSent)
		}
		out[cur.Name] = stats
	}
	c.lastNet = seen
	return out
}

func counterDelta(prev, cur uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}

func (c *HostCollector) updateGauges(snap monitor.Snapshot) {
	for i, usage := range snap.CPU {
		c.metrics.CPUUsageRatio.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(usage / 100)
	}
	c.metrics.MemoryUsed.WithLabelValues("physical").Set(float64(snap.Memory.Used))
	c.metrics.MemoryUsed.WithLabelValues("swap").Set(float64(snap.Memory.UsedSwap))
}
