// ABOUTME: Session event log store methods
// ABOUTME: Records login, logout, refresh and expiry transitions for the local history view

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// eventTimeLayout is fixed width so ORDER BY ts sorts chronologically.
const eventTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// AppendSessionEvent appends a new entry to the session event log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendSessionEvent(ctx context.Context, e *SessionEvent) error {
	if !slices.Contains(ValidEventKinds, e.Kind) {
		return fmt.Errorf("invalid event kind %q", e.Kind)
	}

	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling event detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO session_events (event_id, kind, user_id, ts, detail_json)
		VALUES (?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Kind,
		e.UserID,
		e.Timestamp.UTC().Format(eventTimeLayout),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting session event: %w", err)
	}

	s.logger.Debug("appended session event", "id", e.ID, "kind", e.Kind, "user_id", e.UserID)
	return nil
}

// normalizeEventLimit applies default (50) and cap (500) to list limits.
func normalizeEventLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > 500 {
		return 500
	}
	return limit
}

// ListSessionEvents returns the most recent events, newest first.
func (s *SQLiteStore) ListSessionEvents(ctx context.Context, limit int) ([]*SessionEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT event_id, kind, user_id, ts, detail_json
		FROM session_events
		ORDER BY ts DESC
		LIMIT ?
	`, normalizeEventLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying session events: %w", err)
	}
	defer rows.Close()

	var events []*SessionEvent
	for rows.Next() {
		var (
			e          SessionEvent
			ts         string
			detailJSON *string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.UserID, &ts, &detailJSON); err != nil {
			return nil, fmt.Errorf("scanning session event: %w", err)
		}

		e.Timestamp, err = time.Parse(eventTimeLayout, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}

		if detailJSON != nil {
			if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling event detail: %w", err)
			}
		}

		events = append(events, &e)
	}

	return events, rows.Err()
}
