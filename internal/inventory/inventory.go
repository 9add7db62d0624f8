// Package inventory answers the expensive hardware identity questions:
// serial number, displays, GPUs and the disk/partition tree. Every method
// may block for seconds and must only be called off the sampling path.
package inventory

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"github.com/monify-labs/hostwatch/internal/profiler"
	"github.com/monify-labs/hostwatch/pkg/models"
	"github.com/sirupsen/logrus"
)

const (
	BackendAuto     = "auto"
	BackendProfiler = "profiler"
	BackendGHW      = "ghw"
)

// Source is a hardware inventory backend
type Source interface {
	SerialNumber(ctx context.Context) (string, error)
	Displays(ctx context.Context) ([]models.Display, error)
	GPUs(ctx context.Context) ([]string, error)
	Disks(ctx context.Context) ([]models.Disk, error)
}

// GraphicsSource is implemented by backends that read displays and GPUs
// from a single query
type GraphicsSource interface {
	DisplaysAndGPUs(ctx context.Context) ([]models.Display, []string, error)
}

// New returns the Source for backend. "auto" selects the profiler on
// darwin and ghw everywhere else.
func New(backend string, p *profiler.Profiler, log *logrus.Entry) (Source, error) {
	if backend == "" || backend == BackendAuto {
		backend = BackendGHW
		if runtime.GOOS == "darwin" {
			backend = BackendProfiler
		}
	}

	switch backend {
	case BackendProfiler:
		return NewProfilerSource(p), nil
	case BackendGHW:
		return NewGHWSource(log), nil
	default:
		return nil, fmt.Errorf("unknown inventory backend %q", backend)
	}
}

// UniqueSorted trims, deduplicates and sorts GPU names
func UniqueSorted(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
