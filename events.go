package driveauth

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType names a session lifecycle transition.
type EventType string

const (
	EventInitialized       EventType = "session.initialized"
	EventLogin             EventType = "session.login"
	EventLogout            EventType = "session.logout"
	EventValidated         EventType = "session.validated"
	EventExpiredInactivity EventType = "session.expired_inactivity"
	EventExpiredToken      EventType = "session.expired_token"
	EventInvalidated       EventType = "session.invalidated"
	EventRefreshAttempted  EventType = "session.refresh_attempted"
	EventSweepDropped      EventType = "session.sweep_dropped"
	EventBroadcastFailed   EventType = "session.broadcast_failed"
)

// Event is one observable lifecycle transition. The hosting application
// consumes these for its notification and analytics layers; the session
// path never blocks on a sink.
type Event struct {
	ID        uuid.UUID         `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Type      EventType         `json:"event_type"`
	TabID     string            `json:"tab_id,omitempty"`
	Role      string            `json:"role,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// EventSink receives lifecycle events. Implementations must tolerate
// concurrent Emit calls.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards every event.
type NoOpSink struct{}

// Emit implements [EventSink].
func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink buffers events on a channel for the hosting application to
// range over. When the buffer is full and no consumer is ready the event is
// dropped; a slow consumer must never stall the dispatcher.
type ChannelSink struct {
	events chan Event
}

// NewChannelSink creates a sink with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

// Emit implements [EventSink].
func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	default:
	}
}

// Events returns the receive side of the sink.
func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes events as newline-delimited JSON.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

// NewJSONWriterSink creates a sink over w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

// Emit implements [EventSink].
func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
