package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/foozio/prodmatic-sub002/internal/telemetry"
	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

// recordEmitter is the part of otellog.Logger the emitter uses.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that sends activity events as OTel log records via the
// given LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("prodmatic.activity")}
}

// NewEventEmitterWithLogger returns an emitter over an arbitrary record sink.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.ActivityEvent) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the event to a log record: the metadata JSON is the body, identifiers are attributes.
func (e *otelEmitter) Emit(ctx context.Context, event *domain.ActivityEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := event.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetEventName(event.Name())
	if len(event.Metadata) > 0 {
		body, err := json.Marshal(event.Metadata)
		if err != nil {
			return err
		}
		rec.SetBody(otellog.BytesValue(body))
	}
	for _, kv := range []struct{ k, v string }{
		{"activity_id", event.ID},
		{"org_id", event.OrgID},
		{"actor_id", event.ActorID},
		{"action", event.Action},
		{"entity_type", event.EntityType},
		{"entity_id", event.EntityID},
		{"request_id", event.RequestID},
	} {
		if kv.v != "" {
			rec.AddAttributes(otellog.String(kv.k, kv.v))
		}
	}
	e.logger.Emit(ctx, rec)
	return nil
}
