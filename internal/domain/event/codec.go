package event

import (
	"encoding/json"
	"fmt"
	"time"
)

type envelope struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
}

// Encode serializes an event for durable storage
func Encode(e *Event) ([]byte, error) {
	if e.Payload == nil {
		return nil, fmt.Errorf("event %s has no payload", e.ID)
	}
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", e.Type, err)
	}
	return json.Marshal(envelope{
		ID:            e.ID,
		Type:          e.Type,
		Payload:       payload,
		Timestamp:     e.Timestamp,
		CorrelationID: e.CorrelationID,
	})
}

// Decode restores an event written by Encode, including its concrete payload type
func Decode(data []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event envelope: %w", err)
	}

	payload, err := decodePayload(env.Type, env.Payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            env.ID,
		Type:          env.Type,
		Payload:       payload,
		Timestamp:     env.Timestamp,
		CorrelationID: env.CorrelationID,
	}, nil
}

func decodePayload(t Type, raw json.RawMessage) (Payload, error) {
	switch t {
	case TypeRequestCreated:
		return decodeAs[RequestCreated](raw)
	case TypeRequestUpdated:
		return decodeAs[RequestUpdated](raw)
	case TypeRequestCompleted:
		return decodeAs[RequestCompleted](raw)
	case TypeRequestApproved:
		return decodeAs[RequestApproved](raw)
	case TypeRequestItemUpdated:
		return decodeAs[RequestItemUpdated](raw)
	case TypeLowStockAlert:
		return decodeAs[LowStockAlert](raw)
	case TypeReorderPointReached:
		return decodeAs[ReorderPointReached](raw)
	case TypeMaintenanceCompleted:
		return decodeAs[MaintenanceCompleted](raw)
	case TypeIncidentReported:
		return decodeAs[IncidentReported](raw)
	case TypeIncidentResolved:
		return decodeAs[IncidentResolved](raw)
	default:
		return nil, fmt.Errorf("unknown event type %q", t)
	}
}

func decodeAs[T Payload](raw json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s payload: %w", p.EventType(), err)
	}
	return p, nil
}
