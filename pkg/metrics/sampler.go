package metrics

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gopsnet "github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

// HostSampler reads CPU%, memory, disk, and network counters via gopsutil
// on a periodic basis.
type HostSampler struct {
	diskPath string
	proc     *process.Process
}

// NewHostSampler builds a HostSampler that also tracks the current
// process's own CPU/memory usage.
func NewHostSampler(diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &HostSampler{diskPath: diskPath, proc: proc}
}

// Sample implements Sampler.
func (h *HostSampler) Sample() ([]Event, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	now := time.Now()
	var events []Event

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		events = append(events, Event{Name: "system.cpu.percent", Value: pcts[0], Unit: "percent", Timestamp: now})
	} else if err != nil {
		return nil, fmt.Errorf("cpu sample: %w", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		events = append(events,
			Event{Name: "system.memory.used_percent", Value: vm.UsedPercent, Unit: "percent", Timestamp: now},
			Event{Name: "system.memory.available_bytes", Value: float64(vm.Available), Unit: "bytes", Timestamp: now},
		)
	} else {
		return nil, fmt.Errorf("memory sample: %w", err)
	}

	if du, err := disk.UsageWithContext(ctx, h.diskPath); err == nil {
		events = append(events, Event{Name: "system.disk.used_percent", Value: du.UsedPercent, Unit: "percent", Timestamp: now,
			Tags: map[string]string{"path": h.diskPath}})
	} else {
		return nil, fmt.Errorf("disk sample: %w", err)
	}

	if counters, err := gopsnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		events = append(events,
			Event{Name: "system.net.bytes_sent", Value: float64(counters[0].BytesSent), Unit: "bytes", Timestamp: now},
			Event{Name: "system.net.bytes_recv", Value: float64(counters[0].BytesRecv), Unit: "bytes", Timestamp: now},
		)
	}

	if h.proc != nil {
		if cpuPct, err := h.proc.CPUPercentWithContext(ctx); err == nil {
			events = append(events, Event{Name: "process.cpu.percent", Value: cpuPct, Unit: "percent", Timestamp: now})
		}
		if memInfo, err := h.proc.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			events = append(events, Event{Name: "process.memory.rss_bytes", Value: float64(memInfo.RSS), Unit: "bytes", Timestamp: now})
		}
	}

	return events, nil
}
