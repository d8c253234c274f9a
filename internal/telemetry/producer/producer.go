// Package producer defines the interface for publishing activity events to a broker.
package producer

import (
	"context"

	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

// Producer publishes activity events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, event *domain.ActivityEvent) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
