package event

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope wraps one domain event with its delivery identity: a fresh envelope
// id, the owning tenant, the optional originating actor and a UTC timestamp.
//
// Envelopes are built exactly once, at publish time, and never mutated after;
// every subscriber observes the same pointer, so treat the whole value as
// read-only.
type Envelope struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	ActorID    *uuid.UUID
	OccurredAt time.Time
	Event      DomainEvent
}

// NewEnvelope stamps e with a fresh id and the current UTC time. It does not
// validate e; the bus does that before envelopes are constructed.
func NewEnvelope(tenantID uuid.UUID, actorID *uuid.UUID, e DomainEvent) *Envelope {
	return &Envelope{
		ID:         uuid.New(),
		TenantID:   tenantID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
		Event:      e,
	}
}

// wireEnvelope is the stable cross-service JSON shape. Independent consumers
// decode it without depending on this module; keep field names fixed.
type wireEnvelope struct {
	ID         uuid.UUID   `json:"id"`
	TenantID   uuid.UUID   `json:"tenant_id"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty"`
	EventType  string      `json:"event_type"`
	OccurredAt time.Time   `json:"occurred_at"`
	Data       DomainEvent `json:"data"`
}

// MarshalJSON serializes the envelope as
// {id, tenant_id, actor_id?, event_type, occurred_at, data}.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireEnvelope{
		ID:         e.ID,
		TenantID:   e.TenantID,
		ActorID:    e.ActorID,
		EventType:  e.Event.EventType(),
		OccurredAt: e.OccurredAt,
		Data:       e.Event,
	})
}
