package diagnostics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector samples a Sampler on a fixed interval and republishes the
// result as Prometheus gauges. It is decoupled from any single Metrics
// struct so it can run even when the live WebSocket server is not in use
// (e.g. a headless recording-only process still wants process
// diagnostics).
type Collector struct {
	sampler  *Sampler
	interval time.Duration

	heapAllocMB  prometheus.Gauge
	goroutines   prometheus.Gauge
	cpuPercent   prometheus.Gauge
	hostMemUsed  prometheus.Gauge
	hostMemTotal prometheus.Gauge
}

// NewCollector constructs a Collector registered against reg, sampling
// every interval once Run is called.
func NewCollector(reg prometheus.Registerer, interval time.Duration) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		sampler:  NewSampler(),
		interval: interval,
		heapAllocMB: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_process_heap_alloc_mb",
			Help: "Current process heap allocation in megabytes.",
		}),
		goroutines: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_process_goroutines",
			Help: "Current goroutine count.",
		}),
		cpuPercent: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_host_cpu_percent",
			Help: "Smoothed host CPU usage percentage.",
		}),
		hostMemUsed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_host_memory_used_mb",
			Help: "Host memory in use, in megabytes.",
		}),
		hostMemTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "foxglove_host_memory_total_mb",
			Help: "Total host memory, in megabytes.",
		}),
	}
}

// Run samples on the configured interval until ctx is canceled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sampler.Update()
			c.heapAllocMB.Set(c.sampler.HeapAllocMB())
			c.goroutines.Set(float64(c.sampler.GoroutineCount()))
			c.cpuPercent.Set(c.sampler.CPUPercent())
			c.hostMemUsed.Set(c.sampler.HostMemoryUsedMB())
			c.hostMemTotal.Set(c.sampler.HostMemoryTotalMB())
		}
	}
}
