package agent

import (
	"context"
	"time"

	"github.com/monify-labs/hostwatch/internal/metrics/dynamic"
	"github.com/monify-labs/hostwatch/internal/store"
	"github.com/sirupsen/logrus"
)

// DynamicCollector samples CPU and memory on a fixed interval. Only the
// goroutine running Run (after the seeding Sample) touches the CPU tick
// baseline.
type DynamicCollector struct {
	store  *store.Store
	cpu    *dynamic.CPUCollector
	memory *dynamic.MemoryCollector
	log    *logrus.Entry
}

// NewDynamicCollector creates a new dynamic metrics collector
func NewDynamicCollector(s *store.Store, cpu *dynamic.CPUCollector, memory *dynamic.MemoryCollector, log *logrus.Entry) *DynamicCollector {
	return &DynamicCollector{
		store:  s,
		cpu:    cpu,
		memory: memory,
		log:    log,
	}
}

// Sample takes one CPU and memory reading and publishes it. A CPU reading
// without a usable delta leaves the published usage untouched.
func (d *DynamicCollector) Sample(ctx context.Context) {
	usage, ok, err := d.cpu.Sample(ctx)
	switch {
	case err != nil:
		d.log.WithError(err).Debug("Failed to sample CPU ticks")
	case ok:
		d.store.SetUsage(&usage)
	}

	memory, err := d.memory.Sample(ctx)
	if err != nil {
		d.log.WithError(err).Debug("Failed to sample memory pages")
		return
	}
	d.store.SetMemory(memory)
}

// Run samples every interval until ctx is cancelled. The quick overview
// is refreshed whenever it is older than overviewPeriod.
func (d *DynamicCollector) Run(ctx context.Context, interval time.Duration, overview *StaticCollector, overviewPeriod time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Sample(ctx)
			if overview != nil && overview.ShouldRefresh(overviewPeriod) {
				overview.Refresh(ctx)
			}
		}
	}
}
