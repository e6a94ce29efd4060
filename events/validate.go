package events

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/next-trace/scg-event-stream/contract/event"
)

// Field length limits shared by the variant validators.
const (
	// MaxKindLen bounds machine identifiers: node kinds, SKUs, module slugs.
	MaxKindLen = 64
	// MaxTitleLen bounds human-readable titles.
	MaxTitleLen = 255
	// MaxCurrencyLen bounds currency codes (ISO 4217 alpha).
	MaxCurrencyLen = 3
)

func validateNotEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return &event.ValidationError{Kind: event.ValidationEmptyField, Field: field}
	}

	return nil
}

// validateMaxLength is inclusive: exactly limit characters is valid.
func validateMaxLength(field, v string, limit int) error {
	if utf8.RuneCountInString(v) > limit {
		return &event.ValidationError{Kind: event.ValidationTooLong, Field: field, Limit: limit}
	}

	return nil
}

func validateNotNilUUID(field string, id uuid.UUID) error {
	if id == uuid.Nil {
		return &event.ValidationError{Kind: event.ValidationNilUUID, Field: field}
	}

	return nil
}

func validateNonNegative(field string, v int64) error {
	if v < 0 {
		return &event.ValidationError{Kind: event.ValidationOutOfRange, Field: field}
	}

	return nil
}
