package audit

import (
	"path/filepath"
	"testing"
)

func TestMemorySinkAppendAndFilter(t *testing.T) {
	s := NewMemorySink()

	id1, err := s.Append("performance_metric", map[string]any{"operation": "export"})
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.Append("threat_response", map[string]any{"action": "alert"})
	if err != nil {
		t.Fatal(err)
	}
	if id1 == "" || id2 == "" || id1 == id2 {
		t.Fatalf("record IDs must be unique and non-empty: %q, %q", id1, id2)
	}

	if got := len(s.Events()); got != 2 {
		t.Fatalf("%d events, want 2", got)
	}
	metrics := s.ByType("performance_metric")
	if len(metrics) != 1 || metrics[0].ID != id1 {
		t.Errorf("ByType returned %+v, want the single metric event", metrics)
	}
}

func TestSQLiteSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer s.Close()

	id, err := s.Append("performance_metric", map[string]any{
		"operation":   "export",
		"duration_ms": float64(42),
		"success":     true,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append("threat_response", map[string]any{"action": "isolate"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := s.List("performance_metric", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("%d events, want 1", len(events))
	}
	e := events[0]
	if e.ID != id {
		t.Errorf("ID %q, want %q", e.ID, id)
	}
	if e.Details["operation"] != "export" {
		t.Errorf("operation = %v, want export", e.Details["operation"])
	}
	if e.Details["success"] != true {
		t.Errorf("success = %v, want true", e.Details["success"])
	}
	if e.CreatedAt.IsZero() {
		t.Error("created_at not persisted")
	}

	all, err := s.List("", 10)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("%d events without type filter, want 2", len(all))
	}
}

func TestSQLiteSinkEmptyDetails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	s, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if _, err := s.Append("heartbeat", nil); err != nil {
		t.Fatalf("append with nil details: %v", err)
	}
	events, err := s.List("heartbeat", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Details != nil {
		t.Errorf("expected one event with nil details, got %+v", events)
	}
}
