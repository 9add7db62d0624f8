package agent

import (
	"context"
	"time"

	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

// FetchStorageIfNeeded loads the storage fields. Unless force is set it
// does nothing once a load has been requested. Mounted volumes are
// refreshed before it returns; the disk tree is rebuilt in the background
// and the state moves to loaded when that finishes. It reports whether a
// load was started.
func (a *Agent) FetchStorageIfNeeded(force bool) bool {
	from := []models.StorageState{models.StorageNotRequested}
	if force {
		from = append(from, models.StorageLoading, models.StorageLoaded)
	}

	a.storageMu.Lock()
	if !a.store.CompareAndSetStorageState(models.StorageLoading, from...) {
		a.storageMu.Unlock()
		return false
	}
	a.storageGen++
	gen := a.storageGen
	a.storageMu.Unlock()

	log := a.log.WithFields(logrus.Fields{"component": "storage", "force": force})
	ctx := a.ctx

	volumes, err := a.volumes.ListMountedVolumes(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to list mounted volumes")
	} else {
		a.publishVolumes(gen, volumes, log)
	}

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		a.loadDisks(ctx, gen, log)
	}()

	return true
}

// publishVolumes stores a mounted-volume listing unless a newer load has
// started since it was taken
func (a *Agent) publishVolumes(gen uint64, volumes []models.MountedVolume, log *logrus.Entry) {
	a.storageMu.Lock()
	defer a.storageMu.Unlock()
	if gen != a.storageGen {
		log.Debug("Discarding superseded volume listing")
		return
	}
	a.store.SetMountedVolumes(volumes)
}

// loadDisks rebuilds the disk tree. A failed inventory keeps the previous
// tree. Only the newest load publishes.
func (a *Agent) loadDisks(ctx context.Context, gen uint64, log *logrus.Entry) {
	start := time.Now()

	disks, err := a.inventory.Disks(ctx)
	if err == nil {
		a.joinFreeSpace(ctx, disks)
	}

	a.storageMu.Lock()
	defer a.storageMu.Unlock()
	if gen != a.storageGen {
		log.Debug("Discarding superseded storage load")
		return
	}

	if err != nil {
		log.WithError(err).Warn("Failed to load disk inventory")
	} else {
		a.store.SetDisks(disks)
	}
	a.store.SetStorageState(models.StorageLoaded)

	log.WithFields(logrus.Fields{
		"disks":   len(disks),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("Storage loaded")
}

// joinFreeSpace fills Free for every mounted partition
func (a *Agent) joinFreeSpace(ctx context.Context, disks []models.Disk) {
	for i := range disks {
		for j := range disks[i].Partitions {
			partition := &disks[i].Partitions[j]
			if partition.MountPoint == nil {
				continue
			}
			if free, ok := a.volumes.FreeSpace(ctx, *partition.MountPoint); ok {
				partition.Free = models.Uint64Ptr(free)
			}
		}
	}
}
