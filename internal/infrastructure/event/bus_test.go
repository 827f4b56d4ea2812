package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/salesengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testEvent struct {
	shared.EventMeta
	Data string `json:"data"`
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{
		EventMeta: shared.NewEventMeta(eventType, "Sale", uuid.New()),
		Data:      "test data",
	}
}

type testHandler struct {
	mu         sync.Mutex
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panics     bool
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.panics {
		panic("boom")
	}
	h.handled = append(h.handled, event)
	return h.err
}

func (h *testHandler) EventTypes() []string { return h.eventTypes }

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	created := newTestHandler("SaleCreated")
	all := newTestHandler()
	bus.Subscribe(created)
	bus.Subscribe(all)

	first := newTestEvent("SaleCreated")
	second := newTestEvent("SaleDeleted")
	require.NoError(t, bus.Publish(context.Background(), first, second))

	assert.Equal(t, []shared.DomainEvent{first}, created.getHandled())
	assert.Equal(t, []shared.DomainEvent{first, second}, all.getHandled())
}

type ctxKey struct{}

type recordingHandler struct {
	seen []any
}

func (h *recordingHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.seen = append(h.seen, ctx.Value(ctxKey{}))
	return nil
}

func (h *recordingHandler) EventTypes() []string { return nil }

func TestInMemoryEventBus_DeliversBeforePublishReturns(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := &recordingHandler{}
	bus.Subscribe(h)

	ctx := context.WithValue(context.Background(), ctxKey{}, "request-1")
	require.NoError(t, bus.Publish(ctx, newTestEvent("SaleCreated"), newTestEvent("SaleDeleted")))

	// no locking: delivery happened on this goroutine
	assert.Equal(t, []any{"request-1", "request-1"}, h.seen)
}

func TestInMemoryEventBus_ExplicitTypesOverrideHandlerTypes(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	h := newTestHandler("SaleCreated")
	bus.Subscribe(h, "SaleDeleted")

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCreated")))
	assert.Empty(t, h.getHandled())

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleDeleted")))
	assert.Len(t, h.getHandled(), 1)
}

func TestInMemoryEventBus_FailingHandlerDoesNotStopOthers(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	failing := newTestHandler("SaleCreated")
	failing.err = errors.New("sink down")
	panicking := newTestHandler("SaleCreated")
	panicking.panics = true
	healthy := newTestHandler("SaleCreated")
	bus.Subscribe(failing)
	bus.Subscribe(panicking)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent("SaleCreated"))

	require.Error(t, err)
	assert.ErrorIs(t, err, failing.err)
	assert.Contains(t, err.Error(), "handler panicked")
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	h := newTestHandler()
	bus.Subscribe(h)
	bus.Unsubscribe(h)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent("SaleCreated")))
	assert.Empty(t, h.getHandled())
}

func TestInMemoryEventBus_Lifecycle(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Stop(ctx))
	assert.ErrorIs(t, bus.Publish(ctx, newTestEvent("SaleCreated")), ErrBusStopped)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent("SaleCreated")))
}

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	specific := newTestHandler()
	wildcard := newTestHandler()
	both := newTestHandler()

	r.Register(specific, "SaleCreated", "SaleDeleted")
	r.Register(specific, "SaleCreated")
	r.Register(wildcard)
	r.Register(both, "SaleCreated")
	r.Register(both)

	assert.Equal(t, []shared.EventHandler{specific, both, wildcard}, r.GetHandlers("SaleCreated"))
	assert.Equal(t, []shared.EventHandler{specific, wildcard, both}, r.GetHandlers("SaleDeleted"))
	assert.Equal(t, []shared.EventHandler{wildcard, both}, r.GetHandlers("Other"))
	assert.Equal(t, 3, r.Len())

	r.Unregister(specific)
	assert.Equal(t, []shared.EventHandler{wildcard, both}, r.GetHandlers("SaleDeleted"))
	assert.Equal(t, 2, r.Len())
}
