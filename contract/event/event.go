package event

import (
	"fmt"

	"github.com/next-trace/scg-event-stream/contract/errors"
)

// DomainEvent is one business fact from the platform's closed event set.
// Variants carry only the fields needed to reconstruct the fact and are
// treated as immutable values once published.
type DomainEvent interface {
	// EventType returns the stable dot-namespaced type tag (e.g. "node.created").
	// Types prefixed "system." are routed to the system topic by transports.
	EventType() string

	// Validate checks the variant's payload invariants. A non-nil result is a
	// *ValidationError and the event must not be admitted to the bus.
	Validate() error
}

// ValidationKind classifies what a ValidationError found wrong with a field.
type ValidationKind string

const (
	ValidationEmptyField ValidationKind = "empty_field"
	ValidationNilUUID    ValidationKind = "nil_uuid"
	ValidationTooLong    ValidationKind = "too_long"
	ValidationOutOfRange ValidationKind = "out_of_range"
)

// ValidationError reports a single invalid field on a domain event.
// It unwraps to errors.ErrInvalidEvent so callers can code-check with errors.Is
// and field-check with errors.As.
type ValidationError struct {
	Kind  ValidationKind
	Field string
	Limit int // character limit, set for ValidationTooLong
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ValidationEmptyField:
		return fmt.Sprintf("field %s must not be empty", e.Field)
	case ValidationNilUUID:
		return fmt.Sprintf("field %s must not be the nil uuid", e.Field)
	case ValidationTooLong:
		return fmt.Sprintf("field %s longer than %d characters", e.Field, e.Limit)
	case ValidationOutOfRange:
		return fmt.Sprintf("field %s out of range", e.Field)
	default:
		return fmt.Sprintf("field %s invalid", e.Field)
	}
}

func (e *ValidationError) Unwrap() error { return errors.ErrInvalidEvent }
