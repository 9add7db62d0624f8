// Package sysparam reads named kernel parameters and raw CPU and memory
// counters. Every call is a direct read: nothing is cached and failures
// are reported to the caller once, without retries.
package sysparam

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
)

// clockTicks converts gopsutil's CPU seconds back into USER_HZ ticks
const clockTicks = 100

// CPUTicks holds the four cumulative CPU time counters from one read
type CPUTicks struct {
	User   uint64
	System uint64
	Idle   uint64
	Nice   uint64
}

// Total returns the sum of all four counters
func (t CPUTicks) Total() uint64 {
	return t.User + t.System + t.Idle + t.Nice
}

// MemoryPages holds page counts by category from one read
type MemoryPages struct {
	Free     uint64
	Active   uint64
	Inactive uint64
	Wired    uint64
	PageSize uint64
}

// ReadString returns the named parameter as a string. ok is false when the
// parameter does not exist or cannot be read.
func ReadString(name string) (string, bool) {
	return readString(name)
}

// ReadInt returns the named parameter as an integer. ok is false when the
// parameter does not exist, cannot be read or is not numeric.
func ReadInt(name string) (int64, bool) {
	return readInt(name)
}

// SampleCPUTicks returns aggregate user, system, idle and nice counters
func SampleCPUTicks(ctx context.Context) (CPUTicks, error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return CPUTicks{}, fmt.Errorf("failed to read cpu times: %w", err)
	}
	if len(times) == 0 {
		return CPUTicks{}, fmt.Errorf("no aggregate cpu times reported")
	}

	t := times[0]
	return CPUTicks{
		User:   toTicks(t.User),
		System: toTicks(t.System),
		Idle:   toTicks(t.Idle),
		Nice:   toTicks(t.Nice),
	}, nil
}

// SampleMemoryPages returns free, active, inactive and wired page counts
func SampleMemoryPages(ctx context.Context) (MemoryPages, error) {
	vmem, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return MemoryPages{}, fmt.Errorf("failed to read virtual memory: %w", err)
	}

	pageSize := uint64(os.Getpagesize())
	return MemoryPages{
		Free:     vmem.Free / pageSize,
		Active:   vmem.Active / pageSize,
		Inactive: vmem.Inactive / pageSize,
		Wired:    vmem.Wired / pageSize,
		PageSize: pageSize,
	}, nil
}

func toTicks(seconds float64) uint64 {
	if seconds <= 0 {
		return 0
	}
	return uint64(math.Round(seconds * clockTicks))
}
