// Package store holds the published telemetry state. Each slot is replaced
// as a whole under the lock, so readers never observe a partially written
// value, and observers are told which slot changed.
package store

import (
	"sync"
	"time"

	"github.com/monify-labs/hostwatch/pkg/models"
)

// Slot names a published field
type Slot string

const (
	SlotHost           Slot = "host"
	SlotSerial         Slot = "serial"
	SlotProcessor      Slot = "processor"
	SlotUsage          Slot = "usage"
	SlotMemory         Slot = "memory"
	SlotDisplays       Slot = "displays"
	SlotGPUs           Slot = "gpus"
	SlotDisks          Slot = "disks"
	SlotMountedVolumes Slot = "mounted_volumes"
	SlotUSBDevices     Slot = "usb_devices"
	SlotStorageState   Slot = "storage_state"
)

// subscriberBuffer is the per-observer backlog before changes are dropped
const subscriberBuffer = 64

// Store is the telemetry state container
type Store struct {
	mu        sync.RWMutex
	state     models.Snapshot
	updatedAt time.Time

	subMu       sync.Mutex
	subscribers map[chan Slot]struct{}
}

// New creates a Store holding placeholder values and empty collections
func New() *Store {
	return &Store{
		state: models.Snapshot{
			Host: models.HostSummary{
				OSVersion:     models.Pending,
				KernelRelease: models.Pending,
				Hostname:      models.Pending,
				SerialNumber:  models.Pending,
			},
			Processor:      models.ProcessorState{Brand: models.Pending},
			Displays:       []models.Display{},
			GPUs:           []string{},
			Disks:          []models.Disk{},
			MountedVolumes: []models.MountedVolume{},
			USBDevices:     []models.USBDevice{},
			StorageState:   models.StorageNotRequested,
		},
		subscribers: make(map[chan Slot]struct{}),
	}
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.state
	snap.Timestamp = s.updatedAt
	snap.Processor.Usage = copyFloat(s.state.Processor.Usage)
	snap.Displays = append([]models.Display{}, s.state.Displays...)
	snap.GPUs = append([]string{}, s.state.GPUs...)
	snap.Disks = copyDisks(s.state.Disks)
	snap.MountedVolumes = append([]models.MountedVolume{}, s.state.MountedVolumes...)
	snap.USBDevices = append([]models.USBDevice{}, s.state.USBDevices...)
	return snap
}

// StorageState returns the storage load state
func (s *Store) StorageState() models.StorageState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.StorageState
}

// SetHost replaces the quick overview fields, keeping the serial number
func (s *Store) SetHost(host models.HostSummary) {
	s.update(SlotHost, func(state *models.Snapshot) {
		host.SerialNumber = state.Host.SerialNumber
		state.Host = host
	})
}

// SetSerialNumber replaces the serial number
func (s *Store) SetSerialNumber(serial string) {
	s.update(SlotSerial, func(state *models.Snapshot) {
		state.Host.SerialNumber = serial
	})
}

// SetProcessor sets the static CPU facts
func (s *Store) SetProcessor(brand string, cores int) {
	s.update(SlotProcessor, func(state *models.Snapshot) {
		state.Processor.Brand = brand
		state.Processor.PhysicalCores = cores
	})
}

// SetUsage replaces the CPU usage fraction; nil means no reading yet
func (s *Store) SetUsage(usage *float64) {
	usage = copyFloat(usage)
	s.update(SlotUsage, func(state *models.Snapshot) {
		state.Processor.Usage = usage
	})
}

// SetMemory replaces the RAM figures
func (s *Store) SetMemory(memory models.MemoryState) {
	s.update(SlotMemory, func(state *models.Snapshot) {
		state.Memory = memory
	})
}

// SetDisplays replaces the display set
func (s *Store) SetDisplays(displays []models.Display) {
	displays = append([]models.Display{}, displays...)
	s.update(SlotDisplays, func(state *models.Snapshot) {
		state.Displays = displays
	})
}

// SetGPUs replaces the GPU name list
func (s *Store) SetGPUs(gpus []string) {
	gpus = append([]string{}, gpus...)
	s.update(SlotGPUs, func(state *models.Snapshot) {
		state.GPUs = gpus
	})
}

// SetDisks replaces the disk/partition tree
func (s *Store) SetDisks(disks []models.Disk) {
	disks = copyDisks(disks)
	s.update(SlotDisks, func(state *models.Snapshot) {
		state.Disks = disks
	})
}

// SetMountedVolumes replaces the mounted volume list
func (s *Store) SetMountedVolumes(volumes []models.MountedVolume) {
	volumes = append([]models.MountedVolume{}, volumes...)
	s.update(SlotMountedVolumes, func(state *models.Snapshot) {
		state.MountedVolumes = volumes
	})
}

// SetUSBDevices replaces the USB device list
func (s *Store) SetUSBDevices(devices []models.USBDevice) {
	devices = append([]models.USBDevice{}, devices...)
	s.update(SlotUSBDevices, func(state *models.Snapshot) {
		state.USBDevices = devices
	})
}

// SetStorageState replaces the storage load state
func (s *Store) SetStorageState(st models.StorageState) {
	s.update(SlotStorageState, func(state *models.Snapshot) {
		state.StorageState = st
	})
}

// CompareAndSetStorageState moves the storage state from any of from to
// to, reporting whether the transition happened
func (s *Store) CompareAndSetStorageState(to models.StorageState, from ...models.StorageState) bool {
	s.mu.Lock()
	current := s.state.StorageState
	allowed := false
	for _, candidate := range from {
		if candidate == current {
			allowed = true
			break
		}
	}
	if allowed {
		s.state.StorageState = to
		s.updatedAt = time.Now()
	}
	s.mu.Unlock()

	if allowed {
		s.notify(SlotStorageState)
	}
	return allowed
}

// Subscribe returns a channel that receives the name of every slot that
// changes. Slow observers miss changes rather than block writers.
func (s *Store) Subscribe() <-chan Slot {
	ch := make(chan Slot, subscriberBuffer)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it
func (s *Store) Unsubscribe(ch <-chan Slot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subscribers {
		if sub == ch {
			delete(s.subscribers, sub)
			close(sub)
			return
		}
	}
}

func (s *Store) update(slot Slot, apply func(*models.Snapshot)) {
	s.mu.Lock()
	apply(&s.state)
	s.updatedAt = time.Now()
	s.mu.Unlock()

	s.notify(slot)
}

func (s *Store) notify(slot Slot) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subscribers {
		select {
		case sub <- slot:
		default:
		}
	}
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyDisks(disks []models.Disk) []models.Disk {
	out := make([]models.Disk, len(disks))
	for i, disk := range disks {
		out[i] = disk
		out[i].Partitions = append([]models.Partition{}, disk.Partitions...)
	}
	return out
}
