package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/perf-monitor/pkg/config"
	"github.com/perf-monitor/pkg/metrics"
	"github.com/perf-monitor/pkg/monitor"
)

var errGone = errors.New("process exited")

type fakeProcess struct {
	pid     int32
	name    string
	cpu     float64
	rss     uint64
	nameErr error
	rssErr  error
}

func (f fakeProcess) PID() int32                                  { return f.pid }
func (f fakeProcess) Name(context.Context) (string, error)        { return f.name, f.nameErr }
func (f fakeProcess) CPUPercent(context.Context) (float64, error) { return f.cpu, nil }
func (f fakeProcess) RSS(context.Context) (uint64, error)         { return f.rss, f.rssErr }

type fakeProbe struct {
	cpus    []float64
	cpuErr  error
	hostErr error
	procs   []ProcessHandle
	net     [][]net.IOCountersStat // 每次调用依次返回
	netCall int
}

func (f *fakeProbe) HostInfo(context.Context) (*host.InfoStat, error) {
	if f.hostErr != nil {
		return nil, f.hostErr
	}
	return &host.InfoStat{
		Hostname:        "node-1",
		OS:              "linux",
		Platform:        "ubuntu",
		PlatformVersion: "24.04",
		KernelVersion:   "6.8.0",
		Uptime:          3600,
	}, nil
}

func (f *fakeProbe) CPUPercent(context.Context) ([]float64, error) { return f.cpus, f.cpuErr }

func (f *fakeProbe) VirtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return &mem.VirtualMemoryStat{Total: 16 << 30, Used: 4 << 30}, nil
}

func (f *fakeProbe) SwapMemory(context.Context) (*mem.SwapMemoryStat, error) {
	return &mem.SwapMemoryStat{Total: 2 << 30, Used: 1 << 20}, nil
}

func (f *fakeProbe) Processes(context.Context) ([]ProcessHandle, error) { return f.procs, nil }

func (f *fakeProbe) NetIOCounters(context.Context) ([]net.IOCountersStat, error) {
	if f.netCall >= len(f.net) {
		return nil, errors.New("no more counters")
	}
	out := f.net[f.netCall]
	f.netCall++
	return out, nil
}

func newTestCollector(t *testing.T, cfg config.CollectorConfig, probe Probe) (*HostCollector, *metrics.CollectorMetrics) {
	t.Helper()
	m := metrics.NewMetricFactory(metrics.NewPromRegistry(prometheus.NewRegistry())).NewCollectorMetrics()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	return NewHostCollector(cfg, probe, m, zap.NewNop(), clock), m
}

func enabledConfig() config.CollectorConfig {
	return config.CollectorConfig{
		Processes: config.ProcessCollectorConfig{Enable: true},
		Network:   config.NetworkCollectorConfig{Enable: true},
	}
}

func TestCaptureDropsUnreadableProcesses(t *testing.T) {
	probe := &fakeProbe{
		cpus: []float64{12.5, 40},
		procs: []ProcessHandle{
			fakeProcess{pid: 5, name: "sshd", cpu: 0.1, rss: 4096},
			fakeProcess{pid: 1, name: "init", cpu: 0, rss: 8192},
			fakeProcess{pid: 3, nameErr: errGone},
			fakeProcess{pid: 2, name: "bash", cpu: 1.5, rss: 2048},
			fakeProcess{pid: 4, name: "zombie", rssErr: errGone},
		},
		net: [][]net.IOCountersStat{{{Name: "eth0", BytesRecv: 100, BytesSent: 50}}},
	}
	c, m := newTestCollector(t, enabledConfig(), probe)

	snap, err := c.Capture(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Processes, 3)
	assert.Equal(t, []int32{1, 2, 5}, []int32{snap.Processes[0].PID, snap.Processes[1].PID, snap.Processes[2].PID})
	assert.Equal(t, float64(2), testutil.ToFloat64(m.DroppedRecords))

	// 其余字段不受影响
	assert.Equal(t, []float64{12.5, 40}, snap.CPU)
	assert.Equal(t, monitor.MemoryInfo{Total: 16 << 30, Used: 4 << 30, TotalSwap: 2 << 30, UsedSwap: 1 << 20}, snap.Memory)
	assert.Equal(t, monitor.SystemInfo{
		Name: "ubuntu", Hostname: "node-1", Uptime: 3600, OSVersion: "24.04", KernelVersion: "6.8.0",
	}, snap.System)
	assert.Equal(t, time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC), snap.Time)
}

func TestCaptureFailsOnCPUError(t *testing.T) {
	probe := &fakeProbe{cpuErr: errors.New("boom")}
	c, m := newTestCollector(t, enabledConfig(), probe)

	_, err := c.Capture(context.Background())
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CollectErrors.WithLabelValues("cpu")))
}

func TestCaptureHostInfoFailureLeavesSystemEmpty(t *testing.T) {
	probe := &fakeProbe{cpus: []float64{1}, hostErr: errors.New("no host")}
	cfg := enabledConfig()
	cfg.Network.Enable = false
	c, _ := newTestCollector(t, cfg, probe)

	snap, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.SystemInfo{}, snap.System)
	assert.Nil(t, snap.Network)
	assert.Empty(t, snap.Processes)
}

func TestCaptureNetworkDeltas(t *testing.T) {
	probe := &fakeProbe{
		cpus: []float64{1},
		net: [][]net.IOCountersStat{
			{{Name: "eth0", BytesRecv: 1000, BytesSent: 500}, {Name: "lo", BytesRecv: 1, BytesSent: 1}},
			{{Name: "eth0", BytesRecv: 1600, BytesSent: 700}, {Name: "lo", BytesRecv: 9, BytesSent: 9}},
			{{Name: "eth0", BytesRecv: 100, BytesSent: 800}},
		},
	}
	cfg := enabledConfig()
	cfg.Network.IgnoreNetworks = []string{"lo"}
	c, _ := newTestCollector(t, cfg, probe)

	first, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]monitor.NetworkStats{
		"eth0": {TotalReceived: 1000, TotalTransmitted: 500},
	}, first.Network)

	second, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, monitor.NetworkStats{
		Received: 600, Transmitted: 200, TotalReceived: 1600, TotalTransmitted: 700,
	}, second.Network["eth0"])

	// 计数器重置
	third, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(100), third.Network["eth0"].Received)
	assert.Equal(t, uint64(100), third.Network["eth0"].Transmitted)
}

func TestProcessesDisabled(t *testing.T) {
	probe := &fakeProbe{cpus: []float64{1}, procs: []ProcessHandle{fakeProcess{pid: 1, name: "init"}}}
	cfg := enabledConfig()
	cfg.Processes.Enable = false
	cfg.Network.Enable = false
	c, _ := newTestCollector(t, cfg, probe)

	snap, err := c.Capture(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Processes)
	assert.Empty(t, snap.Processes)
}
