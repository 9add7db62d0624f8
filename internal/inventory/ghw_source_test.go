package inventory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jaypipes/ghw/pkg/block"
	"github.com/jaypipes/ghw/pkg/gpu"
	"github.com/jaypipes/ghw/pkg/pci"
	"github.com/jaypipes/pcidb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisksFromBlock(t *testing.T) {
	nvme := &block.Disk{
		Name:      "nvme0n1",
		SizeBytes: 512110190592,
		Vendor:    "unknown",
		Model:     "Samsung SSD 980 PRO",
	}
	nvme.Partitions = []*block.Partition{
		{Disk: nvme, Name: "nvme0n1p1", MountPoint: "/boot/efi", SizeBytes: 536870912, Type: "vfat", Label: "EFI"},
		{Disk: nvme, Name: "nvme0n1p2", SizeBytes: 511571132416, Type: "unknown"},
	}
	loop := &block.Disk{Name: "loop0", SizeBytes: 4096}

	disks := disksFromBlock([]*block.Disk{nvme, loop, nil})
	require.Len(t, disks, 1)

	disk := disks[0]
	assert.Equal(t, "nvme0n1", disk.Name)
	require.NotNil(t, disk.Model)
	assert.Equal(t, "Samsung SSD 980 PRO", *disk.Model)
	require.NotNil(t, disk.Size)
	assert.Equal(t, uint64(512110190592), *disk.Size)
	require.Len(t, disk.Partitions, 2)

	efi := disk.Partitions[0]
	assert.Equal(t, "EFI", efi.Name)
	require.NotNil(t, efi.MountPoint)
	assert.Equal(t, "/boot/efi", *efi.MountPoint)
	require.NotNil(t, efi.FileSystem)
	assert.Equal(t, "vfat", *efi.FileSystem)

	data := disk.Partitions[1]
	assert.Equal(t, "nvme0n1p2", data.Name)
	assert.Nil(t, data.MountPoint)
	assert.Nil(t, data.FileSystem)
}

func TestGPUNames(t *testing.T) {
	cards := []*gpu.GraphicsCard{
		{Index: 0, DeviceInfo: &pci.Device{
			Vendor:  &pcidb.Vendor{Name: "NVIDIA Corporation"},
			Product: &pcidb.Product{Name: "GA102 [GeForce RTX 3090]"},
		}},
		{Index: 1, DeviceInfo: &pci.Device{
			Vendor:  &pcidb.Vendor{Name: "Intel Corporation"},
			Product: &pcidb.Product{Name: "unknown"},
		}},
		{Index: 2, DeviceInfo: &pci.Device{
			Product: &pcidb.Product{Name: "GA102 [GeForce RTX 3090]"},
		}},
		{Index: 3},
		nil,
	}

	assert.Equal(t, []string{"GA102 [GeForce RTX 3090]", "Intel Corporation"}, gpuNames(cards))
}

func TestReadDRMDisplays(t *testing.T) {
	root := t.TempDir()
	connector := func(name, status, modes string) {
		dir := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status+"\n"), 0o644))
		if modes != "" {
			require.NoError(t, os.WriteFile(filepath.Join(dir, "modes"), []byte(modes), 0o644))
		}
	}
	connector("card0-eDP-1", "connected", "2560x1600\n1920x1200\n")
	connector("card0-HDMI-A-1", "disconnected", "")
	connector("card1-DP-2", "connected", "")
	require.NoError(t, os.MkdirAll(filepath.Join(root, "card0"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "renderD128"), 0o755))

	displays, err := readDRMDisplays(root)
	require.NoError(t, err)
	require.Len(t, displays, 2)

	assert.Equal(t, "eDP-1", displays[0].Name)
	assert.Equal(t, "2560 x 1600", displays[0].Resolution)
	assert.True(t, displays[0].Main)

	assert.Equal(t, "DP-2", displays[1].Name)
	assert.Equal(t, "Unavailable", displays[1].Resolution)
	assert.False(t, displays[1].Main)
}

func TestReadDRMDisplaysMissingRoot(t *testing.T) {
	_, err := readDRMDisplays(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestConnectorName(t *testing.T) {
	name, ok := connectorName("card0-HDMI-A-1")
	assert.True(t, ok)
	assert.Equal(t, "HDMI-A-1", name)

	for _, entry := range []string{"card0", "renderD128", "card-x", "cardX-DP-1", "version"} {
		_, ok := connectorName(entry)
		assert.False(t, ok, entry)
	}
}

func TestUniqueSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, UniqueSorted([]string{" b", "a", "", "b ", "a"}))
	assert.NotNil(t, UniqueSorted(nil))
}
