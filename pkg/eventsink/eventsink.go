// Package eventsink publishes order lifecycle events produced by the
// matching engine. Consumers see a fill event per execution and a status
// event per order state change, ordered per instrument.
package eventsink

import (
	"context"
	"sync"
	"time"

	"github.com/papertrade/engine/pkg/engine/model"
)

type EventType string

const (
	EventFill   EventType = "FILL"
	EventStatus EventType = "STATUS"
)

// Event carries an immutable snapshot of the order at emission time. The
// Fill pointer is set only for EventFill.
type Event struct {
	Type      EventType   `json:"type"`
	Order     model.Order `json:"order"`
	Fill      *model.Fill `json:"fill,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type Sink interface {
	Emit(ctx context.Context, ev Event) error
}

// MemorySink buffers events in order of emission. Used by tests and as a
// default when no broker is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Emit(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
