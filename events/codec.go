package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// decoders maps event types to payload decoders. The variant set is closed:
// every type in this package registers here and unknown types are rejected.
var decoders = map[string]func([]byte) (event.DomainEvent, error){
	TypeNodeCreated:    decodeAs[NodeCreated],
	TypeNodeUpdated:    decodeAs[NodeUpdated],
	TypeNodeDeleted:    decodeAs[NodeDeleted],
	TypeProductCreated: decodeAs[ProductCreated],
	TypeProductUpdated: decodeAs[ProductUpdated],
	TypeOrderPaid:      decodeAs[OrderPaid],
	TypeModuleEnabled:  decodeAs[ModuleEnabled],
	TypeModuleDisabled: decodeAs[ModuleDisabled],
}

func decodeAs[E event.DomainEvent](data []byte) (event.DomainEvent, error) {
	var e E
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}

	return e, nil
}

// DecodeEvent reconstructs the variant tagged eventType from its wire payload.
func DecodeEvent(eventType string, data []byte) (event.DomainEvent, error) {
	dec, ok := decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("decode %s: %w", eventType, serr.ErrUnknownEventType)
	}

	ev, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", eventType, serr.ErrSerializationFailed, err)
	}

	return ev, nil
}

// DecodeEnvelope parses a serialized envelope produced by Envelope.MarshalJSON
// and reconstructs the typed event inside it.
func DecodeEnvelope(b []byte) (*event.Envelope, error) {
	var w struct {
		ID         uuid.UUID       `json:"id"`
		TenantID   uuid.UUID       `json:"tenant_id"`
		ActorID    *uuid.UUID      `json:"actor_id"`
		EventType  string          `json:"event_type"`
		OccurredAt time.Time       `json:"occurred_at"`
		Data       json.RawMessage `json:"data"`
	}

	if err := json.Unmarshal(b, &w); err != nil {
		return nil, fmt.Errorf("decode envelope: %w: %w", serr.ErrSerializationFailed, err)
	}

	ev, err := DecodeEvent(w.EventType, w.Data)
	if err != nil {
		return nil, err
	}

	return &event.Envelope{
		ID:         w.ID,
		TenantID:   w.TenantID,
		ActorID:    w.ActorID,
		OccurredAt: w.OccurredAt,
		Event:      ev,
	}, nil
}
