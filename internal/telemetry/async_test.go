package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/foozio/prodmatic-sub002/internal/telemetry/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockEventEmitter struct {
	mu      sync.Mutex
	events  []*domain.ActivityEvent
	emitErr error
}

func (m *mockEventEmitter) Emit(ctx context.Context, event *domain.ActivityEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.emitErr
}

func (m *mockEventEmitter) getEvents() []*domain.ActivityEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.ActivityEvent(nil), m.events...)
}

func TestAsync_EmitsAllEvents(t *testing.T) {
	em := &mockEventEmitter{}
	a := NewAsync(em, nil)
	a.Emit(
		&domain.ActivityEvent{EntityType: "task", Action: "update", EntityID: "t1"},
		nil,
		&domain.ActivityEvent{EntityType: "task", Action: "update", EntityID: "t2"},
	)
	require.NoError(t, a.Wait(context.Background()))

	got := em.getEvents()
	require.Len(t, got, 2)
	assert.Equal(t, "t1", got[0].EntityID)
	assert.Equal(t, "t2", got[1].EntityID)
}

func TestAsync_LogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	a := NewAsync(&mockEventEmitter{emitErr: errors.New("broker down")}, zap.New(core))
	a.Emit(&domain.ActivityEvent{EntityType: "idea", Action: "create", EntityID: "i1"})
	require.NoError(t, a.Wait(context.Background()))

	entries := logs.FilterMessage("telemetry: async emit failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "idea.create", entries[0].ContextMap()["event"])
}

func TestAsync_NilSafe(t *testing.T) {
	var a *Async
	assert.NotPanics(t, func() { a.Emit(&domain.ActivityEvent{}) })
	assert.NoError(t, a.Wait(context.Background()))

	assert.NotPanics(t, func() { NewAsync(nil, nil).Emit(&domain.ActivityEvent{}) })
}

func TestAsync_WaitHonoursContext(t *testing.T) {
	block := make(chan struct{})
	a := NewAsync(emitterFunc(func(ctx context.Context, _ *domain.ActivityEvent) error {
		<-block
		return nil
	}), nil)
	a.Emit(&domain.ActivityEvent{})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, a.Wait(ctx), context.DeadlineExceeded)

	close(block)
	require.NoError(t, a.Wait(context.Background()))
}

func TestMulti_JoinsErrors(t *testing.T) {
	ok := &mockEventEmitter{}
	bad := &mockEventEmitter{emitErr: errors.New("boom")}
	err := Multi{ok, nil, bad}.Emit(context.Background(), &domain.ActivityEvent{EntityID: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, ok.getEvents(), 1)
	assert.Len(t, bad.getEvents(), 1)
}

type emitterFunc func(context.Context, *domain.ActivityEvent) error

func (f emitterFunc) Emit(ctx context.Context, e *domain.ActivityEvent) error { return f(ctx, e) }
