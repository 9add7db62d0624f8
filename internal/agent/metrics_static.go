package agent

import (
	"context"
	"sync"
	"time"

	"github.com/monify-labs/hostwatch/internal/inventory"
	"github.com/monify-labs/hostwatch/internal/store"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

// StaticCollector publishes the quick overview. Uptime never goes
// backwards between refreshes.
type StaticCollector struct {
	store *store.Store
	read  func(ctx context.Context) models.HostSummary

	mu          sync.Mutex
	lastUptime  time.Duration
	lastRefresh time.Time
}

// NewStaticCollector creates a quick overview collector
func NewStaticCollector(s *store.Store, read func(ctx context.Context) models.HostSummary) *StaticCollector {
	return &StaticCollector{store: s, read: read}
}

// Refresh reads and publishes the host summary
func (s *StaticCollector) Refresh(ctx context.Context) {
	summary := s.read(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if summary.Uptime < 0 {
		summary.Uptime = 0
	}
	if summary.Uptime < s.lastUptime {
		summary.Uptime = s.lastUptime
	}
	s.lastUptime = summary.Uptime
	s.lastRefresh = time.Now()
	s.store.SetHost(summary)
}

// ShouldRefresh checks if the overview is older than period
func (s *StaticCollector) ShouldRefresh(period time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Force refresh if never collected
	if s.lastRefresh.IsZero() {
		return true
	}
	return time.Since(s.lastRefresh) >= period
}

// RefreshOverview re-reads OS identity and uptime on demand
func (a *Agent) RefreshOverview(ctx context.Context) {
	a.overview.Refresh(ctx)
}

// backgroundPass resolves the expensive inventory fields: serial number
// first, then storage, then displays and GPUs
func (a *Agent) backgroundPass(ctx context.Context) {
	start := time.Now()

	serial, err := a.inventory.SerialNumber(ctx)
	if err != nil || serial == "" {
		a.log.WithError(err).Warn("Serial number unavailable")
		serial = models.Unavailable
	}
	a.store.SetSerialNumber(serial)

	a.FetchStorageIfNeeded(false)
	a.collectGraphics(ctx)

	a.log.WithFields(logrus.Fields{
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("Background inventory pass finished")
}

// collectGraphics publishes displays and GPUs. Backends that derive both
// from one query are asked once; others are asked in parallel.
func (a *Agent) collectGraphics(ctx context.Context) {
	if combined, ok := a.inventory.(inventory.GraphicsSource); ok {
		displays, gpus, err := combined.DisplaysAndGPUs(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Failed to collect displays and GPUs")
			return
		}
		a.store.SetDisplays(displays)
		a.store.SetGPUs(inventory.UniqueSorted(gpus))
		return
	}

	var wg sync.WaitGroup

	// Displays
	wg.Add(1)
	go func() {
		defer wg.Done()
		displays, err := a.inventory.Displays(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Failed to collect displays")
			return
		}
		a.store.SetDisplays(displays)
	}()

	// GPUs
	wg.Add(1)
	go func() {
		defer wg.Done()
		gpus, err := a.inventory.GPUs(ctx)
		if err != nil {
			a.log.WithError(err).Warn("Failed to collect GPUs")
			return
		}
		a.store.SetGPUs(inventory.UniqueSorted(gpus))
	}()

	wg.Wait()
}
