package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaProducerWithWriter(w, "prodmatic-activity")
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	err := p.Emit(context.Background(), &domain.ActivityEvent{
		ID: "a1", OrgID: "org-1", ActorID: "u1", Action: "create", EntityType: "idea", EntityID: "i1", OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "org-1", string(w.msgs[0].Key))
	assert.Equal(t, "idea.create", string(w.msgs[0].Headers[0].Value))

	var got domain.ActivityEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "i1", got.EntityID)
	assert.True(t, at.Equal(got.OccurredAt))
}

func TestKafkaProducer_WriteError(t *testing.T) {
	p := NewKafkaProducerWithWriter(&fakeWriter{err: errors.New("no leader")}, "t")
	assert.Error(t, p.Emit(context.Background(), &domain.ActivityEvent{}))
}

func TestKafkaProducer_Disabled(t *testing.T) {
	assert.Nil(t, NewKafkaProducer(nil, "t"))
	assert.Nil(t, NewKafkaProducer([]string{"localhost:9092"}, ""))

	var p *KafkaProducer
	assert.NoError(t, p.Emit(context.Background(), &domain.ActivityEvent{}))
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, NewKafkaProducerWithWriter(w, "t").Close())
	assert.True(t, w.closed)
}
