package models

import (
	"fmt"
	"time"
)

const (
	// Pending marks a field whose value is still being collected
	Pending = "Loading..."
	// Unavailable marks a field whose collection finished without a value
	Unavailable = "Unavailable"
)

// Snapshot is a point-in-time copy of every published metric
type Snapshot struct {
	Timestamp      time.Time       `json:"timestamp"`
	Host           HostSummary     `json:"host"`
	Processor      ProcessorState  `json:"processor"`
	Memory         MemoryState     `json:"memory"`
	Displays       []Display       `json:"displays"`
	GPUs           []string        `json:"gpus"`
	Disks          []Disk          `json:"disks"`
	MountedVolumes []MountedVolume `json:"mounted_volumes"`
	USBDevices     []USBDevice     `json:"usb_devices"`
	StorageState   StorageState    `json:"storage_state"`
}

// HostSummary contains OS identity and uptime
type HostSummary struct {
	OSVersion     string        `json:"os_version"`
	KernelRelease string        `json:"kernel_release"`
	Hostname      string        `json:"hostname"`
	Uptime        time.Duration `json:"uptime"`
	SerialNumber  string        `json:"serial_number"` // Pending until the background pass finishes
}

// ProcessorState contains static CPU identity and live utilization
type ProcessorState struct {
	Brand         string   `json:"brand"`
	PhysicalCores int      `json:"physical_cores"`
	Usage         *float64 `json:"usage,omitempty"` // Fraction in [0,1], nil before the second sample
}

// MemoryState contains RAM usage in bytes
type MemoryState struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

// Display describes an attached screen
type Display struct {
	Name       string  `json:"name"`
	Resolution string  `json:"resolution"` // "W x H" in backing pixels
	Scale      float64 `json:"scale"`
	Main       bool    `json:"main"`
}

// Disk is a physical or logical block device with its partitions
type Disk struct {
	Name       string      `json:"name"`
	Model      *string     `json:"model,omitempty"`
	BSDName    *string     `json:"bsd_name,omitempty"`
	Size       *uint64     `json:"size,omitempty"`
	Partitions []Partition `json:"partitions"`
}

// Partition is a slice of a Disk, optionally mounted
type Partition struct {
	Name       string  `json:"name"`
	MountPoint *string `json:"mount_point,omitempty"`
	BSDName    *string `json:"bsd_name,omitempty"`
	FileSystem *string `json:"file_system,omitempty"`
	Size       *uint64 `json:"size,omitempty"`
	Free       *uint64 `json:"free,omitempty"`
}

// MountedVolume is a Partition produced from live mount enumeration
type MountedVolume = Partition

// USBDevice is one attached USB device
type USBDevice struct {
	Name      *string `json:"name,omitempty"`
	VendorID  *int    `json:"vendor_id,omitempty"`
	ProductID *int    `json:"product_id,omitempty"`
}

// StorageState tracks the on-demand storage load
type StorageState int

const (
	StorageNotRequested StorageState = iota
	StorageLoading
	StorageLoaded
)

func (s StorageState) String() string {
	switch s {
	case StorageLoading:
		return "loading"
	case StorageLoaded:
		return "loaded"
	default:
		return "not_requested"
	}
}

// MarshalText renders the state by name in JSON output
func (s StorageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FormatUptime renders d as "Xd Yh Zm", "Xh Ym" or "Xm"
func FormatUptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	days := total / (24 * 60)
	hours := (total / 60) % 24
	minutes := total % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// StringPtr returns a pointer to s, or nil when s is empty
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Uint64Ptr returns a pointer to v
func Uint64Ptr(v uint64) *uint64 {
	return &v
}
