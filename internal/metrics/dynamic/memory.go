package dynamic

import (
	"context"

	"github.com/monify-labs/hostwatch/internal/sysparam"
	"github.com/monify-labs/hostwatch/pkg/models"
)

// PageReader returns the memory page counters
type PageReader func(ctx context.Context) (sysparam.MemoryPages, error)

// MemoryCollector converts page counters into RAM usage
type MemoryCollector struct {
	read PageReader
}

// NewMemoryCollector creates a collector reading pages through read
func NewMemoryCollector(read PageReader) *MemoryCollector {
	if read == nil {
		read = sysparam.SampleMemoryPages
	}
	return &MemoryCollector{read: read}
}

// Sample reads the page counters once
func (m *MemoryCollector) Sample(ctx context.Context) (models.MemoryState, error) {
	pages, err := m.read(ctx)
	if err != nil {
		return models.MemoryState{}, err
	}
	return MemoryFromPages(pages), nil
}

// MemoryFromPages computes used = active+inactive+wired and
// total = used+free, both scaled by the page size
func MemoryFromPages(pages sysparam.MemoryPages) models.MemoryState {
	used := (pages.Active + pages.Inactive + pages.Wired) * pages.PageSize
	free := pages.Free * pages.PageSize
	return models.MemoryState{
		Used:  used,
		Total: used + free,
	}
}
