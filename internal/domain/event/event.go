package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is a typed domain event. Type always equals Payload.EventType().
type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	Payload       Payload   `json:"payload"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID string    `json:"correlation_id"`
}

// New creates an event for payload with a fresh id and correlation id
func New(payload Payload) *Event {
	return NewWithCorrelation(payload, uuid.NewString())
}

// NewWithCorrelation creates an event that belongs to an existing correlation chain,
// e.g. the item updates caused by one request approval.
func NewWithCorrelation(payload Payload, correlationID string) *Event {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          payload.EventType(),
		Payload:       payload,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// PayloadAs returns the payload of e as T
func PayloadAs[T Payload](e *Event) (T, error) {
	p, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("event %s (%s) carries %T, want %T", e.ID, e.Type, e.Payload, zero)
	}
	return p, nil
}
