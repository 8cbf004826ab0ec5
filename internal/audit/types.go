package audit

import "time"

// #region sink

// Sink is the external audit collaborator. Implementations must be safe
// for concurrent appends. Append returns the ID of the stored record.
type Sink interface {
	Append(eventType string, details map[string]any) (string, error)
}

// #endregion sink

// #region event

// Event is one appended audit record.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// #endregion event
