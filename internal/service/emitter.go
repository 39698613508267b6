package service

import (
	"context"
	"sync"

	"datalink/internal/logger"
)

// Event names emitted by the services.
const (
	EventConnectionsChanged = "connections:changed"
	EventConnectionActive   = "connection:activated"
	EventQueryExecuted      = "query:executed"
	EventQueriesChanged     = "queries:changed"
	EventSchemaRefreshed    = "schema:refreshed"
	EventSettingsChanged    = "settings:changed"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from the delivery channel
// ─────────────────────────────────────────────────────────────

// EventEmitter notifies front ends that state changed so they can reload.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// LogEmitter writes every event to the logger at debug level.
type LogEmitter struct {
	Log *logger.Logger
}

func (e LogEmitter) Emit(_ context.Context, event string, data any) {
	e.Log.With().Str("event", event).Any("data", data).Logger().Debug("event")
}

// NopEmitter drops every event.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, string, any) {}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Names returns the recorded event names in order.
func (m *MockEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Event
	}
	return out
}
