// Package audit records ledger operations as append-only events. Every
// allocation mutation and dinner posting leaves a trace that can be
// queried by type after the fact.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the ledger handlers.
const (
	TypeAllocationApplied = "allocation.applied"
	TypeAllocationEdited  = "allocation.edited"
	TypeAllocationDeleted = "allocation.deleted"
	TypeRotationApplied   = "rotation.applied"
	TypeDinnerPosted      = "dinner.posted"
)

type Event struct {
	ID        uuid.UUID         `json:"id,omitempty"`
	Type      string            `json:"event_type,omitempty"`
	Data      any               `json:"event_data,omitempty"`
	Metadata  map[string]string `json:"event_metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

type EventOption func(*Event)

func WithType(eventType string) EventOption {
	return func(e *Event) {
		e.Type = eventType
	}
}

func WithData(data any) EventOption {
	return func(e *Event) {
		e.Data = data
	}
}

func WithMetadata(metadata map[string]string) EventOption {
	return func(e *Event) {
		e.Metadata = metadata
	}
}

func NewEvent(opts ...EventOption) Event {
	e := Event{
		ID:        uuid.New(),
		CreatedAt: time.Now().UTC(),
		Metadata:  make(map[string]string),
	}
	for _, opt := range opts {
		opt(&e)
	}
	return e
}

// Logger persists events. The sqlite store implements this.
type Logger interface {
	Save(ctx context.Context, e Event) error
	GetByType(ctx context.Context, eventType string) ([]Event, error)
}
