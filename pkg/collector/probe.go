package collector

import (
	"context"
	"sync"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// Probe 主机原始数据来源，HostCollector 只依赖该接口，便于单测替换
type Probe interface {
	HostInfo(ctx context.Context) (*host.InfoStat, error)
	CPUPercent(ctx context.Context) ([]float64, error) // 每核，自上次调用以来的使用率
	VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error)
	SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error)
	Processes(ctx context.Context) ([]ProcessHandle, error)
	NetIOCounters(ctx context.Context) ([]net.IOCountersStat, error)
}

// ProcessHandle 单个进程的读取句柄，任一字段读取失败即丢弃该进程
type ProcessHandle interface {
	PID() int32
	Name(ctx context.Context) (string, error)
	CPUPercent(ctx context.Context) (float64, error)
	RSS(ctx context.Context) (uint64, error)
}

// gopsutilProbe 基于 gopsutil 的实现
// 进程对象跨采样复用，CPU 使用率才能按两次采样之间的增量计算
type gopsutilProbe struct {
	mu    sync.Mutex
	procs map[int32]*process.Process
}

// NewProbe 创建 gopsutil Probe
func NewProbe() Probe {
	return &gopsutilProbe{procs: make(map[int32]*process.Process)}
}

func (p *gopsutilProbe) HostInfo(ctx context.Context) (*host.InfoStat, error) {
	return host.InfoWithContext(ctx)
}

func (p *gopsutilProbe) CPUPercent(ctx context.Context) ([]float64, error) {
	return cpu.PercentWithContext(ctx, 0, true)
}

func (p *gopsutilProbe) VirtualMemory(ctx context.Context) (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemoryWithContext(ctx)
}

func (p *gopsutilProbe) SwapMemory(ctx context.Context) (*mem.SwapMemoryStat, error) {
	return mem.SwapMemoryWithContext(ctx)
}

func (p *gopsutilProbe) NetIOCounters(ctx context.Context) ([]net.IOCountersStat, error) {
	return net.IOCountersWithContext(ctx, true)
}

func (p *gopsutilProbe) Processes(ctx context.Context) ([]ProcessHandle, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	alive := make(map[int32]*process.Process, len(pids))
	handles := make([]ProcessHandle, 0, len(pids))
	for _, pid := range pids {
		proc, ok := p.procs[pid]
		if !ok {
			proc, err = process.NewProcessWithContext(ctx, pid)
			if err != nil {
				// 枚举与读取之间进程已退出
				handles = append(handles, failedProcess{pid: pid, err: err})
				continue
			}
		}
		alive[pid] = proc
		handles = append(handles, gopsutilProcess{proc: proc})
	}
	// 清理已退出的进程
	p.procs = alive
	return handles, nil
}

type gopsutilProcess struct {
	proc *process.Process
}

func (g gopsutilProcess) PID() int32 { return g.proc.Pid }

func (g gopsutilProcess) Name(ctx context.Context) (string, error) {
	return g.proc.NameWithContext(ctx)
}

func (g gopsutilProcess) CPUPercent(ctx context.Context) (float64, error) {
	return g.proc.PercentWithContext(ctx, 0)
}

func (g gopsutilProcess) RSS(ctx context.Context) (uint64, error) {
	info, err := g.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}

type failedProcess struct {
	pid int32
	err error
}

func (f failedProcess) PID() int32                                  { return f.pid }
func (f failedProcess) Name(context.Context) (string, error)        { return "", f.err }
func (f failedProcess) CPUPercent(context.Context) (float64, error) { return 0, f.err }
func (f failedProcess) RSS(context.Context) (uint64, error)         { return 0, f.err }
