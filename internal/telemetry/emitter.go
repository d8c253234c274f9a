// Package telemetry publishes activity events to Kafka and OpenTelemetry. Every emit is
// best-effort: failures are logged and never fail the request that produced the event.
package telemetry

import (
	"context"
	"errors"

	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

// EventEmitter emits activity events (e.g. to Kafka or OTel Logs).
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.ActivityEvent) error
}

// Multi emits to every non-nil emitter and joins their errors.
type Multi []EventEmitter

// Emit implements EventEmitter.
func (m Multi) Emit(ctx context.Context, event *domain.ActivityEvent) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
