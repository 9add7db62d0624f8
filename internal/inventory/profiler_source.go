package inventory

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/monify-labs/hostwatch/internal/profiler"
	"github.com/monify-labs/hostwatch/pkg/models"
)

const (
	categoryHardware = "SPHardwareDataType"
	categoryDisplays = "SPDisplaysDataType"
	categoryNVMe     = "SPNVMeDataType"
	categorySATA     = "SPSerialATADataType"
)

// storageCategories lists the controller categories that carry disks
var storageCategories = []string{categoryNVMe, categorySATA}

var errSerialNotFound = errors.New("serial number not present in hardware inventory")

// Querier runs inventory queries
type Querier interface {
	Query(ctx context.Context, categories ...string) (profiler.Value, error)
}

// ProfilerSource reads inventory from system_profiler style documents
type ProfilerSource struct {
	querier Querier
}

// NewProfilerSource creates a Source backed by q
func NewProfilerSource(q Querier) *ProfilerSource {
	return &ProfilerSource{querier: q}
}

// SerialNumber returns the hardware serial number
func (s *ProfilerSource) SerialNumber(ctx context.Context) (string, error) {
	doc, err := s.querier.Query(ctx, categoryHardware)
	if err != nil {
		return "", err
	}
	serial, ok := profiler.FirstMatchingValue(doc, "serial_number")
	if !ok || strings.TrimSpace(serial) == "" {
		return "", errSerialNotFound
	}
	return strings.TrimSpace(serial), nil
}

// Displays returns every display attached to any graphics device
func (s *ProfilerSource) Displays(ctx context.Context) ([]models.Display, error) {
	doc, err := s.querier.Query(ctx, categoryDisplays)
	if err != nil {
		return nil, err
	}
	return DisplaysFromDocument(doc), nil
}

// DisplaysAndGPUs derives displays and GPU names from one
// SPDisplaysDataType document
func (s *ProfilerSource) DisplaysAndGPUs(ctx context.Context) ([]models.Display, []string, error) {
	doc, err := s.querier.Query(ctx, categoryDisplays)
	if err != nil {
		return nil, nil, err
	}
	return DisplaysFromDocument(doc), GPUsFromDocument(doc), nil
}

// GPUs returns the model name of every graphics device
func (s *ProfilerSource) GPUs(ctx context.Context) ([]string, error) {
	doc, err := s.querier.Query(ctx, categoryDisplays)
	if err != nil {
		return nil, err
	}
	return GPUsFromDocument(doc), nil
}

// Disks returns the disk/partition tree from storage controller categories
func (s *ProfilerSource) Disks(ctx context.Context) ([]models.Disk, error) {
	doc, err := s.querier.Query(ctx, storageCategories...)
	if err != nil {
		return nil, err
	}
	return DisksFromDocument(doc), nil
}

// DisplaysFromDocument extracts displays from SPDisplaysDataType
func DisplaysFromDocument(doc profiler.Value) []models.Display {
	displays := []models.Display{}
	devices, _ := profiler.ArrayAt(doc, categoryDisplays)
	for _, device := range devices {
		screens, ok := device.Get("spdisplays_ndrvs")
		if !ok {
			continue
		}
		items, _ := screens.AsArray()
		for _, screen := range items {
			displays = append(displays, displayFromEntry(screen))
		}
	}
	return displays
}

func displayFromEntry(screen profiler.Value) models.Display {
	display := models.Display{
		Name:  screen.GetString("_name"),
		Scale: 1,
		Main:  screen.GetString("spdisplays_main") == "spdisplays_yes",
	}

	logicalW, logicalH, logicalOK := parseDimensions(screen.GetString("_spdisplays_resolution"))
	pixelW, pixelH, pixelOK := parseDimensions(screen.GetString("_spdisplays_pixels"))

	switch {
	case pixelOK:
		display.Resolution = formatDimensions(pixelW, pixelH)
		if logicalOK && logicalW > 0 {
			display.Scale = float64(pixelW) / float64(logicalW)
		}
	case logicalOK:
		display.Resolution = formatDimensions(logicalW, logicalH)
	default:
		display.Resolution = models.Unavailable
	}
	return display
}

// GPUsFromDocument extracts GPU model names from SPDisplaysDataType
func GPUsFromDocument(doc profiler.Value) []string {
	var names []string
	devices, _ := profiler.ArrayAt(doc, categoryDisplays)
	for _, device := range devices {
		name := device.GetString("sppci_model")
		if name == "" {
			name = device.GetString("_name")
		}
		names = append(names, name)
	}
	return UniqueSorted(names)
}

// DisksFromDocument walks controller → _items (disks) → volumes (partitions)
// for every storage category present in doc
func DisksFromDocument(doc profiler.Value) []models.Disk {
	disks := []models.Disk{}
	members, _ := doc.Members()
	for _, member := range members {
		controllers, ok := member.Value.AsArray()
		if !ok {
			continue
		}
		for _, controller := range controllers {
			items, ok := controller.Get("_items")
			if !ok {
				continue
			}
			entries, _ := items.AsArray()
			for _, entry := range entries {
				disks = append(disks, diskFromEntry(entry))
			}
		}
	}
	return disks
}

func diskFromEntry(entry profiler.Value) models.Disk {
	disk := models.Disk{
		Name:       entry.GetString("_name"),
		Model:      models.StringPtr(entry.GetString("device_model")),
		BSDName:    models.StringPtr(entry.GetString("bsd_name")),
		Partitions: []models.Partition{},
	}
	if size, ok := profiler.SizeOf(entry); ok {
		disk.Size = models.Uint64Ptr(size)
	}

	volumes, ok := entry.Get("volumes")
	if !ok {
		return disk
	}
	items, _ := volumes.AsArray()
	for _, volume := range items {
		partition := models.Partition{
			Name:       volume.GetString("_name"),
			MountPoint: models.StringPtr(volume.GetString("mount_point")),
			BSDName:    models.StringPtr(volume.GetString("bsd_name")),
			FileSystem: models.StringPtr(volume.GetString("file_system")),
		}
		if size, ok := profiler.SizeOf(volume); ok {
			partition.Size = models.Uint64Ptr(size)
		}
		disk.Partitions = append(disk.Partitions, partition)
	}
	return disk
}

// parseDimensions reads "3024 x 1964" or "1512 x 982 @ 120.00Hz"
func parseDimensions(text string) (int, int, bool) {
	if at := strings.Index(text, "@"); at >= 0 {
		text = text[:at]
	}
	parts := strings.Split(text, "x")
	if len(parts) != 2 {
		return 0, 0, false
	}
	width, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, false
	}
	return width, height, true
}

func formatDimensions(width, height int) string {
	return strconv.Itoa(width) + " x " + strconv.Itoa(height)
}
