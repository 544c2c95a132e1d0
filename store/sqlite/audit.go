package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/festa/fund-ledger/audit"
)

// Save appends one audit event. Implements audit.Logger.
func (s *Store) Save(ctx context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal event metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_events (id, event_type, data_json, metadata_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID.String(), e.Type, string(data), string(metadata), e.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

// GetByType lists audit events of one type, newest first.
func (s *Store) GetByType(ctx context.Context, eventType string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, data_json, metadata_json, created_at
		FROM audit_events
		WHERE event_type = ?
		ORDER BY created_at DESC, id
	`, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var id, data, metadata, createdAt string
		if err := rows.Scan(&id, &e.Type, &data, &metadata, &createdAt); err != nil {
			return nil, err
		}
		e.ID, _ = uuid.Parse(id)
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if data != "" {
			var v any
			if err := json.Unmarshal([]byte(data), &v); err == nil {
				e.Data = v
			}
		}
		if metadata != "" {
			_ = json.Unmarshal([]byte(metadata), &e.Metadata)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
