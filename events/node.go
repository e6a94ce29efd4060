package events

import (
	"github.com/google/uuid"
)

// Content node event types.
const (
	TypeNodeCreated = "node.created"
	TypeNodeUpdated = "node.updated"
	TypeNodeDeleted = "node.deleted"
)

// NodeCreated records that a content node entered a tenant's tree.
type NodeCreated struct {
	NodeID   uuid.UUID  `json:"node_id"`
	Kind     string     `json:"kind"`
	AuthorID *uuid.UUID `json:"author_id,omitempty"`
}

func (e NodeCreated) EventType() string { return TypeNodeCreated }

func (e NodeCreated) Validate() error {
	if err := validateNotNilUUID("node_id", e.NodeID); err != nil {
		return err
	}

	if err := validateNotEmpty("kind", e.Kind); err != nil {
		return err
	}

	return validateMaxLength("kind", e.Kind, MaxKindLen)
}

// NodeUpdated records a change to an existing content node.
type NodeUpdated struct {
	NodeID uuid.UUID `json:"node_id"`
	Kind   string    `json:"kind"`
}

func (e NodeUpdated) EventType() string { return TypeNodeUpdated }

func (e NodeUpdated) Validate() error {
	if err := validateNotNilUUID("node_id", e.NodeID); err != nil {
		return err
	}

	if err := validateNotEmpty("kind", e.Kind); err != nil {
		return err
	}

	return validateMaxLength("kind", e.Kind, MaxKindLen)
}

// NodeDeleted records that a content node was removed.
type NodeDeleted struct {
	NodeID uuid.UUID `json:"node_id"`
}

func (e NodeDeleted) EventType() string { return TypeNodeDeleted }

func (e NodeDeleted) Validate() error {
	return validateNotNilUUID("node_id", e.NodeID)
}
