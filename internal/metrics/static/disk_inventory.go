package static

import (
	"context"
	"path/filepath"

	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/shirou/gopsutil/v4/disk"
)

// PartitionLister and UsageReader match gopsutil's disk functions
type (
	PartitionLister func(ctx context.Context, all bool) ([]disk.PartitionStat, error)
	UsageReader     func(ctx context.Context, path string) (*disk.UsageStat, error)
)

// VolumeEnumerator lists mounted filesystems and their capacity
type VolumeEnumerator struct {
	partitions PartitionLister
	usage      UsageReader
}

// NewVolumeEnumerator creates an enumerator over the live mount table
func NewVolumeEnumerator() *VolumeEnumerator {
	return &VolumeEnumerator{
		partitions: disk.PartitionsWithContext,
		usage:      disk.UsageWithContext,
	}
}

// ListMountedVolumes returns every mounted, non-pseudo filesystem. A volume
// whose capacity cannot be read is still listed with Size and Free unset.
func (v *VolumeEnumerator) ListMountedVolumes(ctx context.Context) ([]models.MountedVolume, error) {
	partitions, err := v.partitions(ctx, false)
	if err != nil {
		return nil, err
	}

	volumes := []models.MountedVolume{}
	seen := make(map[string]bool, len(partitions))

	for _, partition := range partitions {
		// Skip special filesystems
		if shouldSkipFilesystem(partition.Fstype) || seen[partition.Mountpoint] {
			continue
		}
		seen[partition.Mountpoint] = true

		volume := models.MountedVolume{
			Name:       volumeName(partition),
			MountPoint: models.StringPtr(partition.Mountpoint),
			BSDName:    models.StringPtr(filepath.Base(partition.Device)),
			FileSystem: models.StringPtr(partition.Fstype),
		}

		if usage, err := v.usage(ctx, partition.Mountpoint); err == nil && usage != nil {
			volume.Size = models.Uint64Ptr(usage.Total)
			volume.Free = models.Uint64Ptr(usage.Free)
		}

		volumes = append(volumes, volume)
	}

	return volumes, nil
}

// FreeSpace returns the free bytes of the filesystem mounted at path
func (v *VolumeEnumerator) FreeSpace(ctx context.Context, path string) (uint64, bool) {
	usage, err := v.usage(ctx, path)
	if err != nil || usage == nil {
		return 0, false
	}
	return usage.Free, true
}

// volumeName is the last element of the mount point, or the device for root
func volumeName(partition disk.PartitionStat) string {
	if partition.Mountpoint == "/" || partition.Mountpoint == "" {
		if partition.Device != "" {
			return filepath.Base(partition.Device)
		}
		return "/"
	}
	return filepath.Base(partition.Mountpoint)
}

// shouldSkipFilesystem determines if a filesystem type should be skipped
func shouldSkipFilesystem(fstype string) bool {
	skipTypes := map[string]bool{
		"tmpfs":    true,
		"devtmpfs": true,
		"devfs":    true,
		"proc":     true,
		"sysfs":    true,
		"cgroup":   true,
		"cgroup2":  true,
		"nsfs":     true,
		"overlay":  true,
		"squashfs": true,
		"autofs":   true,
		"nullfs":   true,
	}

	return skipTypes[fstype]
}
