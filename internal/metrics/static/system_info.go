package static

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/monify-labs/hostwatch/internal/sysparam"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/shirou/gopsutil/v4/host"
)

// CollectHostSummary gathers the quick overview: OS version, kernel
// release, hostname and uptime. Fields that cannot be read are left as
// models.Unavailable. The serial number is not touched here.
func CollectHostSummary(ctx context.Context) models.HostSummary {
	summary := models.HostSummary{
		OSVersion:     models.Unavailable,
		KernelRelease: models.Unavailable,
		Hostname:      models.Unavailable,
	}

	info, err := host.InfoWithContext(ctx)
	if err == nil {
		if v := osVersion(info.Platform, info.PlatformVersion); v != "" {
			summary.OSVersion = v
		}
		if info.KernelVersion != "" {
			summary.KernelRelease = info.KernelVersion
		}
		if info.Hostname != "" {
			summary.Hostname = info.Hostname
		}
		summary.Uptime = time.Duration(info.Uptime) * time.Second
	}

	if release, ok := sysparam.ReadString("kern.osrelease"); ok {
		summary.KernelRelease = release
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		summary.Hostname = hostname
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		summary.Uptime = time.Duration(uptime) * time.Second
	}

	return summary
}

// osVersion renders "darwin"/"14.5" as "macOS 14.5" and other platforms as
// "<platform> <version>"
func osVersion(platform, version string) string {
	platform = strings.TrimSpace(platform)
	version = strings.TrimSpace(version)
	if platform == "darwin" {
		platform = "macOS"
	}
	return strings.TrimSpace(platform + " " + version)
}
