package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/monify-labs/hostwatch/internal/config"
	"github.com/monify-labs/hostwatch/internal/inventory"
	"github.com/monify-labs/hostwatch/internal/metrics/dynamic"
	"github.com/monify-labs/hostwatch/internal/metrics/static"
	"github.com/monify-labs/hostwatch/internal/profiler"
	"github.com/monify-labs/hostwatch/internal/store"
	"github.com/monify-labs/hostwatch/internal/usb"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

// VolumeSource lists mounted filesystems and reads their free space
type VolumeSource interface {
	ListMountedVolumes(ctx context.Context) ([]models.MountedVolume, error)
	FreeSpace(ctx context.Context, path string) (uint64, bool)
}

// Agent keeps the telemetry store current. It owns the sampler, the USB
// subscription and the one-shot background inventory tasks.
type Agent struct {
	cfg   *config.Config
	log   *logrus.Entry
	store *store.Store

	inventory   inventory.Source
	volumes     VolumeSource
	hostInfo    func(ctx context.Context) models.HostSummary
	processor   func(ctx context.Context) static.ProcessorInfo
	ticks       dynamic.TickReader
	pages       dynamic.PageReader
	usbPlatform usb.Platform

	sampler    *DynamicCollector
	overview   *StaticCollector
	subscriber *usb.Subscriber

	ctx    context.Context
	cancel context.CancelFunc

	initOnce    sync.Once
	started     bool
	stopOnce    sync.Once
	background  sync.WaitGroup
	samplerDone chan struct{}

	// Guards storageGen so only the newest storage load publishes
	storageMu  sync.Mutex
	storageGen uint64
}

// Option configures an Agent
type Option func(*Agent)

// WithStore publishes into s instead of a fresh store
func WithStore(s *store.Store) Option {
	return func(a *Agent) { a.store = s }
}

// WithInventory replaces the configured inventory backend
func WithInventory(source inventory.Source) Option {
	return func(a *Agent) { a.inventory = source }
}

// WithVolumes replaces live mount enumeration
func WithVolumes(volumes VolumeSource) Option {
	return func(a *Agent) { a.volumes = volumes }
}

// WithHostInfo replaces the quick overview reader
func WithHostInfo(read func(ctx context.Context) models.HostSummary) Option {
	return func(a *Agent) { a.hostInfo = read }
}

// WithProcessorInfo replaces the static CPU facts reader
func WithProcessorInfo(read func(ctx context.Context) static.ProcessorInfo) Option {
	return func(a *Agent) { a.processor = read }
}

// WithTickReader replaces the CPU tick counter source
func WithTickReader(read dynamic.TickReader) Option {
	return func(a *Agent) { a.ticks = read }
}

// WithPageReader replaces the memory page counter source
func WithPageReader(read dynamic.PageReader) Option {
	return func(a *Agent) { a.pages = read }
}

// WithUSBPlatform replaces the USB notification platform
func WithUSBPlatform(platform usb.Platform) Option {
	return func(a *Agent) { a.usbPlatform = platform }
}

// New creates an agent from cfg. Nothing runs until Initialize.
func New(cfg *config.Config, log *logrus.Entry, opts ...Option) (*Agent, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &Agent{
		cfg:         cfg,
		log:         log.WithField("component", "agent"),
		hostInfo:    static.CollectHostSummary,
		processor:   static.CollectProcessorInfo,
		samplerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		a.store = store.New()
	}
	if a.volumes == nil {
		a.volumes = static.NewVolumeEnumerator()
	}
	if a.inventory == nil {
		var popts []profiler.Option
		if cfg.Inventory.Command != "" {
			popts = append(popts, profiler.WithCommand(cfg.Inventory.Command, cfg.Inventory.Args...))
		}
		popts = append(popts, profiler.WithTimeout(cfg.Inventory.Timeout))
		p := profiler.New(log.WithField("component", "profiler"), popts...)

		source, err := inventory.New(cfg.Inventory.Backend, p, log.WithField("component", "inventory"))
		if err != nil {
			return nil, fmt.Errorf("failed to create inventory: %w", err)
		}
		a.inventory = source
	}
	if a.usbPlatform == nil && cfg.USB.Enabled {
		a.usbPlatform = usb.NewPlatform()
	}

	a.ctx, a.cancel = context.WithCancel(context.Background())
	a.sampler = NewDynamicCollector(a.store, dynamic.NewCPUCollector(a.ticks), dynamic.NewMemoryCollector(a.pages), a.log)
	a.overview = NewStaticCollector(a.store, a.hostInfo)
	if a.usbPlatform != nil {
		a.subscriber = usb.NewSubscriber(a.usbPlatform, a.store.SetUSBDevices, log.WithField("component", "usb"))
	}

	return a, nil
}

// Initialize brings every metric to life. Only the first call has any
// effect; the agent runs until ctx is cancelled or Stop is called.
func (a *Agent) Initialize(ctx context.Context) {
	a.initOnce.Do(func() {
		a.started = true
		go func() {
			select {
			case <-ctx.Done():
				a.Stop()
			case <-a.ctx.Done():
			}
		}()

		// Quick overview and static CPU facts
		a.overview.Refresh(a.ctx)
		info := a.processor(a.ctx)
		a.store.SetProcessor(info.Brand, info.PhysicalCores)

		// Seed the tick baseline before the loop takes ownership of it
		a.sampler.Sample(a.ctx)
		go func() {
			defer close(a.samplerDone)
			a.sampler.Run(a.ctx, a.cfg.Interval, a.overview, a.cfg.Overview)
		}()

		if a.subscriber != nil {
			if err := a.subscriber.Start(a.ctx); err != nil {
				if errors.Is(err, usb.ErrUnsupported) {
					a.log.Info("USB notifications unsupported, device list will not update")
				} else {
					a.log.WithError(err).Warn("Failed to subscribe to USB events")
				}
			}
		}

		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.backgroundPass(a.ctx)
		}()

		a.log.WithFields(logrus.Fields{
			"interval":  a.cfg.Interval,
			"inventory": a.cfg.Inventory.Backend,
			"usb":       a.subscriber != nil,
		}).Info("Agent initialized")
	})
}

// Store returns the store the agent publishes into
func (a *Agent) Store() *store.Store {
	return a.store
}

// Snapshot returns a copy of the current telemetry
func (a *Agent) Snapshot() models.Snapshot {
	return a.store.Snapshot()
}

// Wait blocks until the background inventory tasks have finished
func (a *Agent) Wait() {
	a.background.Wait()
}

// Stop cancels the sampler, the USB subscription and any inventory query
// in flight, then waits for the sampler and event loop to exit
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		a.log.Info("Stopping agent")
		a.cancel()

		// Once consumed here, Initialize can no longer start anything
		a.initOnce.Do(func() { close(a.samplerDone) })
		<-a.samplerDone

		if a.started && a.subscriber != nil {
			<-a.subscriber.Done()
		}
	})
}
