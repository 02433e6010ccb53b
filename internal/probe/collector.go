// Package probe implements the HVACPulse field probe.
// It collects local telemetry with gopsutil and reports it to the server
// data-plane (port 8788) as ordinary device heartbeats.
package probe

import (
	"math"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
)

// Snapshot holds one collection cycle's telemetry. Nil fields mean the
// reading was unavailable; they are omitted from the heartbeat rather than
// reported as zeros.
type Snapshot struct {
	CPUPct      *float64
	DiskFreeGB  *float64
	CollectedAt time.Time
}

// Collector gathers local telemetry.
type Collector struct {
	// SampleWindow is how long the CPU percentage is averaged over.
	SampleWindow time.Duration
}

// NewCollector creates a Collector with the default sample window.
func NewCollector() *Collector {
	return &Collector{SampleWindow: 500 * time.Millisecond}
}

// Collect gathers the current snapshot. Failed readings leave their field nil.
func (c *Collector) Collect() *Snapshot {
	snap := &Snapshot{CollectedAt: time.Now()}

	// CPU
	if pcts, err := cpu.Percent(c.SampleWindow, false); err == nil && len(pcts) > 0 {
		pct := round1(pcts[0])
		snap.CPUPct = &pct
	}

	// Disk (largest real partition)
	if free, ok := largestMountFree(); ok {
		snap.DiskFreeGB = &free
	}
	return snap
}

// ─── helpers ──────────────────────────────────────────────────────────────────

// largestMountFree returns the free space, in GB, of the largest physical
// partition. Pseudo filesystems are already excluded by Partitions(false).
func largestMountFree() (float64, bool) {
	partitions, err := disk.Partitions(false)
	if err != nil {
		return 0, false
	}
	var (
		found   bool
		maxSize uint64
		free    uint64
	)
	for _, p := range partitions {
		usage, err := disk.Usage(p.Mountpoint)
		if err != nil || usage.Total == 0 {
			continue
		}
		if usage.Total > maxSize {
			maxSize = usage.Total
			free = usage.Free
			found = true
		}
	}
	if !found {
		return 0, false
	}
	return gbFromBytes(free), true
}

// gbFromBytes converts bytes to gigabytes, rounded to one decimal place.
func gbFromBytes(b uint64) float64 {
	return round1(float64(b) / (1024 * 1024 * 1024))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
