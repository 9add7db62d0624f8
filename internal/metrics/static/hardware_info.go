package static

import (
	"context"
	"strings"

	"github.com/monify-labs/hostwatch/internal/sysparam"
	"github.com/shirou/gopsutil/v4/cpu"
)

// ProcessorInfo contains the static CPU facts
type ProcessorInfo struct {
	Brand         string
	PhysicalCores int
}

// CollectProcessorInfo reads the CPU brand string and physical core count.
// The sysctl names are tried first; gopsutil covers platforms without them.
func CollectProcessorInfo(ctx context.Context) ProcessorInfo {
	info := ProcessorInfo{}

	if brand, ok := sysparam.ReadString("machdep.cpu.brand_string"); ok {
		info.Brand = strings.TrimSpace(brand)
	} else if cpus, err := cpu.InfoWithContext(ctx); err == nil && len(cpus) > 0 {
		info.Brand = strings.TrimSpace(cpus[0].ModelName)
	}
	if info.Brand == "" {
		info.Brand = "Unknown CPU"
	}

	if cores, ok := sysparam.ReadInt("hw.physicalcpu"); ok && cores > 0 {
		info.PhysicalCores = int(cores)
	} else if cores, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.PhysicalCores = cores
	}

	return info
}
