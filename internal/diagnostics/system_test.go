package diagnostics

import "testing"

func TestSamplerReportsProcessStats(t *testing.T) {
	s := NewSampler()
	if s.HeapAllocMB() < 0 {
		t.Fatalf("expected a non-negative heap size, got %v", s.HeapAllocMB())
	}
	if s.GoroutineCount() < 1 {
		t.Fatal("expected at least the current goroutine to be counted")
	}
}

func TestCPUPercentReportsStoredValue(t *testing.T) {
	s := &Sampler{cpuPercent: 42}
	if got := s.CPUPercent(); got != 42 {
		t.Fatalf("expected CPUPercent to report the stored value directly, got %v", got)
	}
}
