// Package monitor samples host resource usage for the session log and the
// terminal UI.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// DefaultHistory is the number of samples kept when Options.History is unset.
const DefaultHistory = 60

// GPUStats is a single GPU reading.
type GPUStats struct {
	LoadPercent   float64
	MemoryPercent float64
}

// GPU reports accelerator usage. Hosts without a supported GPU use NoGPU.
type GPU interface {
	Available() bool
	Sample() GPUStats
}

// NoGPU is the GPU of a host with no accelerator.
type NoGPU struct{}

func (NoGPU) Available() bool  { return false }
func (NoGPU) Sample() GPUStats { return GPUStats{} }

// Usage is a point-in-time resource reading.
type Usage struct {
	At           time.Time
	CPUPercent   float64
	RAMPercent   float64
	RAMUsedMB    float64
	RAMTotalMB   float64
	GPUAvailable bool
	GPU          GPUStats
}

// SystemInfo describes the host, reported once per session.
type SystemInfo struct {
	OS            string
	Platform      string
	Processor     string
	PhysicalCores int
	LogicalCores  int
	RAMTotalGB    float64
	HasGPU        bool
}

// Options configures a Monitor. Zero values use gopsutil and NoGPU.
type Options struct {
	GPU      GPU
	History  int
	OnSample func(Usage)
	Now      func() time.Time

	cpuPercent func(ctx context.Context) (float64, error)
	memory     func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

// Monitor samples resource usage and keeps a bounded history.
type Monitor struct {
	opts Options

	mu      sync.Mutex
	history []Usage
}

// New creates a monitor.
func New(opts Options) *Monitor {
	if opts.GPU == nil {
		opts.GPU = NoGPU{}
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.cpuPercent == nil {
		opts.cpuPercent = hostCPUPercent
	}
	if opts.memory == nil {
		opts.memory = mem.VirtualMemoryWithContext
	}
	return &Monitor{opts: opts}
}

func hostCPUPercent(ctx context.Context) (float64, error) {
	// zero interval compares against the previous call
	p, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(p) == 0 {
		return 0, fmt.Errorf("cpu percent: no data")
	}
	return p[0], nil
}

// Sample reads current usage and appends it to the history.
func (m *Monitor) Sample(ctx context.Context) (Usage, error) {
	cpuPct, err := m.opts.cpuPercent(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("sample cpu: %w", err)
	}
	vm, err := m.opts.memory(ctx)
	if err != nil {
		return Usage{}, fmt.Errorf("sample memory: %w", err)
	}
	u := Usage{
		At:           m.opts.Now(),
		CPUPercent:   cpuPct,
		RAMPercent:   vm.UsedPercent,
		RAMUsedMB:    float64(vm.Used) / (1 << 20),
		RAMTotalMB:   float64(vm.Total) / (1 << 20),
		GPUAvailable: m.opts.GPU.Available(),
	}
	if u.GPUAvailable {
		u.GPU = m.opts.GPU.Sample()
	}

	m.mu.Lock()
	m.history = append(m.history, u)
	if over := len(m.history) - m.opts.History; over > 0 {
		m.history = append(m.history[:0:0], m.history[over:]...)
	}
	m.mu.Unlock()

	if m.opts.OnSample != nil {
		m.opts.OnSample(u)
	}
	return u, nil
}

// Latest returns the most recent sample.
func (m *Monitor) Latest() (Usage, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Usage{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns a copy of the retained samples, oldest first.
func (m *Monitor) History() []Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Usage(nil), m.history...)
}

// Start samples every interval until ctx is done. Sampling errors are
// skipped.
func (m *Monitor) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = m.Sample(ctx)
		}
	}
}

// SystemInfo describes the host. Fields that cannot be read are left zero.
func (m *Monitor) SystemInfo(ctx context.Context) SystemInfo {
	info := SystemInfo{HasGPU: m.opts.GPU.Available()}
	if h, err := host.InfoWithContext(ctx); err == nil {
		info.OS = h.OS
		info.Platform = fmt.Sprintf("%s %s %s", h.Platform, h.PlatformVersion, h.KernelArch)
	}
	if c, err := cpu.InfoWithContext(ctx); err == nil && len(c) > 0 {
		info.Processor = c[0].ModelName
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCores = n
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.LogicalCores = n
	}
	if vm, err := m.opts.memory(ctx); err == nil {
		info.RAMTotalGB = float64(vm.Total) / (1 << 30)
	}
	return info
}
