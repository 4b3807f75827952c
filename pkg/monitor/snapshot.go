// Package monitor 定义采集快照、批次以及状态视图等跨模块共享的数据结构。
// 字段的 json 标签即上报给远端 collector 的线上格式。
package monitor

import "time"

// Snapshot 某一时刻的主机遥测快照，创建后不可修改
type Snapshot struct {
	Time      time.Time               `json:"time"`
	System    SystemInfo              `json:"system"`
	CPU       []float64               `json:"cpu"` // 每个逻辑核心的使用率（百分比）
	Memory    MemoryInfo              `json:"memory"`
	Processes []ProcessInfo           `json:"processes"`
	Network   map[string]NetworkStats `json:"network,omitempty"` // 网卡名 -> 计数器，关闭网络采集时为空
}

// SystemInfo 主机标识
type SystemInfo struct {
	Name          string `json:"name"`
	Hostname      string `json:"hostname"`
	Uptime        uint64 `json:"uptime,omitempty"` // 秒
	OSVersion     string `json:"os_version,omitempty"`
	KernelVersion string `json:"kernel_version,omitempty"`
}

// MemoryInfo 内存与交换分区（字节）
type MemoryInfo struct {
	Total     uint64 `json:"total"`
	Used      uint64 `json:"used"`
	TotalSwap uint64 `json:"total_swap"`
	UsedSwap  uint64 `json:"used_swap"`
}

// ProcessInfo 单个进程记录
type ProcessInfo struct {
	PID      int32   `json:"pid"`
	Name     string  `json:"name"`
	CPUUsage float64 `json:"cpu_usage"`
	Memory   uint64  `json:"memory"` // RSS，字节
}

// NetworkStats 网卡收发计数器（字节）
type NetworkStats struct {
	Received         uint64 `json:"received"`    // 本次采样间隔内的增量
	Transmitted      uint64 `json:"transmitted"` // 本次采样间隔内的增量
	TotalReceived    uint64 `json:"total_received"`
	TotalTransmitted uint64 `json:"total_transmitted"`
}

// Batch 从缓冲区头部摘下的一组快照，作为一次投递的独立单元
type Batch struct {
	ID        string     // 仅用于日志与 X-Batch-Id 请求头，不进入报文
	Snapshots []Snapshot // 保持采集顺序
}

// Len 批次中的快照数量
func (b Batch) Len() int { return len(b.Snapshots) }

// Status 缓冲区与投递情况的只读视图
type Status struct {
	LastItem   *Snapshot `json:"last_item"`
	BufferSize int       `json:"buffer_size"`
	TotalSent  uint64    `json:"total_sent"`
}
