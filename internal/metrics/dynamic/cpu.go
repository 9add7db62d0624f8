package dynamic

import (
	"context"

	"github.com/monify-labs/hostwatch/internal/sysparam"
)

// TickReader returns the cumulative CPU tick counters
type TickReader func(ctx context.Context) (sysparam.CPUTicks, error)

// CPUCollector derives CPU usage from successive tick samples. The
// baseline belongs to whichever goroutine calls Sample; it is not safe for
// concurrent use and must not be shared.
type CPUCollector struct {
	read     TickReader
	previous *sysparam.CPUTicks
}

// NewCPUCollector creates a collector reading ticks through read
func NewCPUCollector(read TickReader) *CPUCollector {
	if read == nil {
		read = sysparam.SampleCPUTicks
	}
	return &CPUCollector{read: read}
}

// Sample reads the counters and returns the busy fraction since the last
// call. ok is false on the first call and whenever no time has elapsed.
func (c *CPUCollector) Sample(ctx context.Context) (usage float64, ok bool, err error) {
	current, err := c.read(ctx)
	if err != nil {
		return 0, false, err
	}

	previous := c.previous
	c.previous = &current
	if previous == nil {
		return 0, false, nil
	}

	usage, ok = Usage(*previous, current)
	return usage, ok, nil
}

// Usage returns the fraction of non-idle ticks between two samples, in
// [0, 1]. ok is false when the total delta is zero or a counter went
// backwards (counter reset).
func Usage(previous, current sysparam.CPUTicks) (float64, bool) {
	if current.User < previous.User ||
		current.System < previous.System ||
		current.Idle < previous.Idle ||
		current.Nice < previous.Nice {
		return 0, false
	}

	busy := (current.User - previous.User) +
		(current.System - previous.System) +
		(current.Nice - previous.Nice)
	total := busy + (current.Idle - previous.Idle)
	if total == 0 {
		return 0, false
	}
	return float64(busy) / float64(total), true
}
