package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// #region memory-sink

// MemorySink is an in-process append-only sink, used in tests and as a
// fallback when no database path is configured.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
	now    func() time.Time
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{now: time.Now}
}

// Append stores the event and returns its record ID.
func (s *MemorySink) Append(eventType string, details map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.events = append(s.events, Event{
		ID:        id,
		Type:      eventType,
		Details:   details,
		CreatedAt: s.now().UTC(),
	})
	return id, nil
}

// Events returns a snapshot of all appended events in order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType returns the appended events with the given type, in order.
func (s *MemorySink) ByType(eventType string) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// #endregion memory-sink
