package telemetry

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by Async and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after gRPC GracefulStop before shutting down OTel providers,
// so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// Async runs emits in goroutines so the caller is not blocked.
type Async struct {
	emitter EventEmitter
	log     *zap.Logger
	wg      sync.WaitGroup
}

// NewAsync wraps emitter. emitter may be nil; then Emit is a no-op.
func NewAsync(emitter EventEmitter, log *zap.Logger) *Async {
	if log == nil {
		log = zap.NewNop()
	}
	return &Async{emitter: emitter, log: log}
}

// Emit sends events in the background with emitTimeout. The goroutine uses context.Background()
// so request cancellation does not abort an in-flight emit. Errors are logged.
func (a *Async) Emit(events ...*domain.ActivityEvent) {
	if a == nil || a.emitter == nil || len(events) == 0 {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		for _, ev := range events {
			if ev == nil {
				continue
			}
			if err := a.emitter.Emit(ctx, ev); err != nil {
				a.log.Warn("telemetry: async emit failed",
					zap.String("event", ev.Name()),
					zap.String("entity_id", ev.EntityID),
					zap.Error(err))
			}
		}
	}()
}

// Wait blocks until every emit started so far has finished or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	if a == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
