package stress

import (
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ResourceUsage contains resource usage information
type ResourceUsage struct {
	CPUPercent          float64 `json:"cpu_percent"`
	MemoryRSS           uint64  `json:"memory_rss"`
	MemoryVMS           uint64  `json:"memory_vms"`
	HeapAlloc           uint64  `json:"heap_alloc"`
	SystemMemoryPercent float64 `json:"system_memory_percent"`
	GoroutineCount      int     `json:"goroutines"`
	ThreadCount         int32   `json:"threads"`
}

// ResourceMonitor samples the resources of the current process
type ResourceMonitor struct {
	process      *process.Process
	startCPUTime float64
	startTime    time.Time
}

// NewResourceMonitor creates a resource monitor whose CPU clock starts now.
// Sampling degrades to Go runtime figures when the process cannot be inspected.
func NewResourceMonitor() *ResourceMonitor {
	rm := &ResourceMonitor{startTime: time.Now()}
	proc, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return rm
	}
	rm.process = proc
	if cpuTime, err := proc.Times(); err == nil {
		rm.startCPUTime = cpuTime.Total()
	}
	return rm
}

// Sample returns current resource usage. Fields the platform cannot report
// are left zero.
func (rm *ResourceMonitor) Sample() ResourceUsage {
	var usage ResourceUsage

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	usage.HeapAlloc = memStats.HeapAlloc
	usage.GoroutineCount = runtime.NumGoroutine()

	if vmStat, err := mem.VirtualMemory(); err == nil {
		usage.SystemMemoryPercent = vmStat.UsedPercent
	}

	if rm.process == nil {
		return usage
	}

	if cpuTime, err := rm.process.Times(); err == nil {
		if elapsed := time.Since(rm.startTime).Seconds(); elapsed > 0 {
			usage.CPUPercent = ((cpuTime.Total() - rm.startCPUTime) / elapsed) * 100
		}
	}
	if memInfo, err := rm.process.MemoryInfo(); err == nil {
		usage.MemoryRSS = memInfo.RSS
		usage.MemoryVMS = memInfo.VMS
	}
	usage.ThreadCount, _ = rm.process.NumThreads()

	return usage
}
