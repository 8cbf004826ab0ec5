package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	record_id     TEXT PRIMARY KEY,
	event_type    TEXT NOT NULL,
	details_json  TEXT,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_type ON audit_log(event_type);
`

// #endregion schema

// #region sqlite-sink

// SQLiteSink is an append-only audit trail backed by SQLite.
type SQLiteSink struct {
	mu  sync.Mutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteSink opens (or creates) the audit database and runs migrations.
func NewSQLiteSink(dbPath string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLiteSink{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

// #endregion sqlite-sink

// #region append

// Append inserts one audit record and returns its ID.
func (s *SQLiteSink) Append(eventType string, details map[string]any) (string, error) {
	var detailsPtr interface{}
	if len(details) > 0 {
		buf, err := json.Marshal(details)
		if err != nil {
			return "", fmt.Errorf("marshal details: %w", err)
		}
		detailsPtr = string(buf)
	}

	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`INSERT INTO audit_log (record_id, event_type, details_json, created_at)
		 VALUES (?, ?, ?, ?)`,
		id, eventType, detailsPtr, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("append event: %w", err)
	}
	return id, nil
}

// #endregion append

// #region list

// List returns the most recent audit records, newest first. An empty
// eventType matches all types.
func (s *SQLiteSink) List(eventType string, limit int) ([]Event, error) {
	query := `SELECT record_id, event_type, details_json, created_at
	          FROM audit_log`
	args := []any{}
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var detailsJSON sql.NullString
		var createdStr string
		if err := rows.Scan(&e.ID, &e.Type, &detailsJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if detailsJSON.Valid {
			if err := json.Unmarshal([]byte(detailsJSON.String), &e.Details); err != nil {
				return nil, fmt.Errorf("unmarshal details: %w", err)
			}
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

// #endregion list
