package sink

import (
	"context"

	"github.com/monify-labs/hostwatch/pkg/models"
)

// Sink is the interface for emitting snapshots
type Sink interface {
	// Write emits one snapshot
	Write(ctx context.Context, snapshot *models.Snapshot) error

	// Close flushes buffered output and releases resources
	Close() error
}
