// Package diagnostics periodically samples process and host resource
// usage and publishes it as its own Prometheus gauges, independent of
// the metrics package. Host CPU sampling uses
// gopsutil, which reads real host counters rather than approximating
// load from goroutine scheduling latency.
package diagnostics

import (
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler tracks process and host resource usage, refreshed by calling
// Update on a timer (see Collector).
type Sampler struct {
	mu            sync.RWMutex
	memoryStats   runtime.MemStats
	cpuPercent    float64
	hostMemUsed   uint64
	hostMemTotal  uint64
	lastUpdate    time.Time
}

func NewSampler() *Sampler {
	s := &Sampler{lastUpdate: time.Now()}
	s.Update()
	return s
}

// Update refreshes all tracked metrics. It blocks for up to one second
// sampling CPU usage (gopsutil's cpu.Percent requires an interval), so
// callers should invoke it from a background goroutine, not a hot path.
func (s *Sampler) Update() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	cpuPercents, err := cpu.Percent(time.Second, false)

	vm, vmErr := virtualMemory()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memoryStats = mem
	s.lastUpdate = time.Now()
	if err == nil && len(cpuPercents) > 0 {
		if s.cpuPercent == 0 {
			s.cpuPercent = cpuPercents[0]
		} else {
			const alpha = 0.3
			s.cpuPercent = alpha*cpuPercents[0] + (1-alpha)*s.cpuPercent
		}
	}
	if vmErr == nil {
		s.hostMemUsed = vm.Used
		s.hostMemTotal = vm.Total
	}
}

func virtualMemory() (*mem.VirtualMemoryStat, error) {
	return mem.VirtualMemory()
}

// HeapAllocMB returns the process's current heap allocation in megabytes.
func (s *Sampler) HeapAllocMB() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.memoryStats.HeapAlloc) / 1024 / 1024
}

// GoroutineCount returns the live goroutine count at the time of the
// call; it does not depend on Update.
func (s *Sampler) GoroutineCount() int { return runtime.NumGoroutine() }

// CPUPercent returns the smoothed host CPU usage percentage.
func (s *Sampler) CPUPercent() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cpuPercent
}

// HostMemoryUsedMB and HostMemoryTotalMB report whole-host memory, as
// opposed to this process's own heap.
func (s *Sampler) HostMemoryUsedMB() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.hostMemUsed) / 1024 / 1024
}

func (s *Sampler) HostMemoryTotalMB() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.hostMemTotal) / 1024 / 1024
}
