package inventory

import (
	"context"
	"errors"
	"strings"

	"github.com/jaypipes/ghw"
	"github.com/jaypipes/ghw/pkg/block"
	"github.com/jaypipes/ghw/pkg/gpu"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

// ghwUnknown is the placeholder ghw reports for unreadable fields
const ghwUnknown = "unknown"

// GHWSource reads inventory through sysfs and DMI using ghw
type GHWSource struct {
	drmRoot string
	log     *logrus.Entry
}

// NewGHWSource creates a ghw-backed Source
func NewGHWSource(log *logrus.Entry) *GHWSource {
	return &GHWSource{
		drmRoot: defaultDRMRoot,
		log:     log,
	}
}

// SerialNumber returns the DMI product serial. Unprivileged reads usually
// come back as "unknown" and are reported as an error.
func (s *GHWSource) SerialNumber(_ context.Context) (string, error) {
	info, err := ghw.Product(ghw.WithDisableWarnings())
	if err != nil {
		return "", err
	}
	serial := cleanGHW(info.SerialNumber)
	if serial == "" {
		return "", errors.New("product serial number not readable")
	}
	return serial, nil
}

// Displays returns connected DRM connectors
func (s *GHWSource) Displays(_ context.Context) ([]models.Display, error) {
	return readDRMDisplays(s.drmRoot)
}

// GPUs returns the product name of every graphics card
func (s *GHWSource) GPUs(_ context.Context) ([]string, error) {
	info, err := ghw.GPU(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	return gpuNames(info.GraphicsCards), nil
}

// Disks returns the block device tree
func (s *GHWSource) Disks(_ context.Context) ([]models.Disk, error) {
	info, err := ghw.Block(ghw.WithDisableWarnings())
	if err != nil {
		return nil, err
	}
	return disksFromBlock(info.Disks), nil
}

func gpuNames(cards []*gpu.GraphicsCard) []string {
	var names []string
	for _, card := range cards {
		if card == nil || card.DeviceInfo == nil {
			continue
		}
		name := ""
		if card.DeviceInfo.Product != nil {
			name = cleanGHW(card.DeviceInfo.Product.Name)
		}
		if name == "" && card.DeviceInfo.Vendor != nil {
			name = cleanGHW(card.DeviceInfo.Vendor.Name)
		}
		names = append(names, name)
	}
	return UniqueSorted(names)
}

func disksFromBlock(blockDisks []*block.Disk) []models.Disk {
	disks := make([]models.Disk, 0, len(blockDisks))
	for _, d := range blockDisks {
		if d == nil || skipBlockDevice(d.Name) {
			continue
		}

		model := strings.Join(strings.Fields(cleanGHW(d.Vendor)+" "+cleanGHW(d.Model)), " ")
		disk := models.Disk{
			Name:       d.Name,
			Model:      models.StringPtr(model),
			BSDName:    models.StringPtr(d.Name),
			Partitions: []models.Partition{},
		}
		if d.SizeBytes > 0 {
			disk.Size = models.Uint64Ptr(d.SizeBytes)
		}

		for _, p := range d.Partitions {
			if p == nil {
				continue
			}
			partition := models.Partition{
				Name:       partitionName(p),
				MountPoint: models.StringPtr(p.MountPoint),
				BSDName:    models.StringPtr(p.Name),
				FileSystem: models.StringPtr(cleanGHW(p.Type)),
			}
			if p.SizeBytes > 0 {
				partition.Size = models.Uint64Ptr(p.SizeBytes)
			}
			disk.Partitions = append(disk.Partitions, partition)
		}
		disks = append(disks, disk)
	}
	return disks
}

func partitionName(p *block.Partition) string {
	if label := cleanGHW(p.Label); label != "" {
		return label
	}
	return p.Name
}

func skipBlockDevice(name string) bool {
	return strings.HasPrefix(name, "loop") ||
		strings.HasPrefix(name, "ram") ||
		strings.HasPrefix(name, "zram")
}

func cleanGHW(value string) string {
	value = strings.TrimSpace(value)
	if strings.EqualFold(value, ghwUnknown) {
		return ""
	}
	return value
}
