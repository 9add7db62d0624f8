package store

import (
	"sync"
	"testing"
	"time"

	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStoreDefaults(t *testing.T) {
	snap := New().Snapshot()

	assert.Equal(t, models.Pending, snap.Host.SerialNumber)
	assert.Equal(t, models.Pending, snap.Processor.Brand)
	assert.Nil(t, snap.Processor.Usage)
	assert.Equal(t, models.StorageNotRequested, snap.StorageState)

	assert.NotNil(t, snap.Disks)
	assert.Empty(t, snap.Disks)
	assert.NotNil(t, snap.MountedVolumes)
	assert.Empty(t, snap.MountedVolumes)
	assert.NotNil(t, snap.USBDevices)
	assert.NotNil(t, snap.Displays)
	assert.NotNil(t, snap.GPUs)
}

func TestSetHostKeepsSerialNumber(t *testing.T) {
	s := New()
	s.SetSerialNumber("C02ABC123")
	s.SetHost(models.HostSummary{OSVersion: "14.5", Hostname: "mbp", SerialNumber: "ignored"})

	snap := s.Snapshot()
	assert.Equal(t, "C02ABC123", snap.Host.SerialNumber)
	assert.Equal(t, "mbp", snap.Host.Hostname)
}

func TestSnapshotIsIsolatedFromLaterWrites(t *testing.T) {
	s := New()
	usage := 0.25
	s.SetUsage(&usage)
	s.SetDisks([]models.Disk{{Name: "disk0", Partitions: []models.Partition{{Name: "p1"}}}})

	snap := s.Snapshot()
	usage = 0.9
	snap.Disks[0].Partitions[0].Name = "mutated"
	*snap.Processor.Usage = 1

	again := s.Snapshot()
	require.NotNil(t, again.Processor.Usage)
	assert.Equal(t, 0.25, *again.Processor.Usage)
	assert.Equal(t, "p1", again.Disks[0].Partitions[0].Name)
}

func TestCollectionsAreReplacedNotMerged(t *testing.T) {
	s := New()
	name := "Keyboard"
	s.SetUSBDevices([]models.USBDevice{{Name: &name}, {}})
	s.SetUSBDevices(nil)

	snap := s.Snapshot()
	assert.NotNil(t, snap.USBDevices)
	assert.Empty(t, snap.USBDevices)
}

func TestCompareAndSetStorageState(t *testing.T) {
	s := New()

	assert.True(t, s.CompareAndSetStorageState(models.StorageLoading, models.StorageNotRequested, models.StorageLoaded))
	assert.False(t, s.CompareAndSetStorageState(models.StorageLoading, models.StorageNotRequested, models.StorageLoaded))
	assert.Equal(t, models.StorageLoading, s.StorageState())

	s.SetStorageState(models.StorageLoaded)
	assert.True(t, s.CompareAndSetStorageState(models.StorageLoading, models.StorageLoaded))
}

func TestSubscribeReceivesSlotChanges(t *testing.T) {
	s := New()
	changes := s.Subscribe()

	s.SetMemory(models.MemoryState{Used: 1, Total: 2})
	s.SetGPUs([]string{"Apple M2"})

	assert.Equal(t, SlotMemory, receive(t, changes))
	assert.Equal(t, SlotGPUs, receive(t, changes))

	s.Unsubscribe(changes)
	_, open := <-changes
	assert.False(t, open)

	// Writes after unsubscribe must not panic on the closed channel
	s.SetGPUs(nil)
}

func TestSlowSubscriberDoesNotBlockWriters(t *testing.T) {
	s := New()
	_ = s.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*4; i++ {
			s.SetMemory(models.MemoryState{Used: uint64(i), Total: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writers blocked on a full subscriber")
	}
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup

	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetMemory(models.MemoryState{Used: uint64(j), Total: uint64(j) * 2})
				s.SetDisks([]models.Disk{{Name: "disk", Partitions: []models.Partition{{Name: "p"}}}})
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap := s.Snapshot()
				assert.LessOrEqual(t, snap.Memory.Used, snap.Memory.Total)
			}
		}()
	}
	wg.Wait()
}

func receive(t *testing.T, ch <-chan Slot) Slot {
	t.Helper()
	select {
	case slot := <-ch:
		return slot
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
		return ""
	}
}
