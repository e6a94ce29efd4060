package events

import (
	"github.com/google/uuid"
)

// Commerce event types.
const (
	TypeProductCreated = "product.created"
	TypeProductUpdated = "product.updated"
	TypeOrderPaid      = "order.paid"
)

// ProductCreated records a new sellable product. Price is in minor currency
// units (cents).
type ProductCreated struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Title     string    `json:"title"`
	Price     int64     `json:"price"`
	Currency  string    `json:"currency"`
}

func (e ProductCreated) EventType() string { return TypeProductCreated }

func (e ProductCreated) Validate() error {
	if err := validateNotNilUUID("product_id", e.ProductID); err != nil {
		return err
	}

	if err := validateNotEmpty("sku", e.SKU); err != nil {
		return err
	}

	if err := validateMaxLength("sku", e.SKU, MaxKindLen); err != nil {
		return err
	}

	if err := validateNotEmpty("title", e.Title); err != nil {
		return err
	}

	if err := validateMaxLength("title", e.Title, MaxTitleLen); err != nil {
		return err
	}

	if err := validateNonNegative("price", e.Price); err != nil {
		return err
	}

	if err := validateNotEmpty("currency", e.Currency); err != nil {
		return err
	}

	return validateMaxLength("currency", e.Currency, MaxCurrencyLen)
}

// ProductUpdated records a change to an existing product.
type ProductUpdated struct {
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
}

func (e ProductUpdated) EventType() string { return TypeProductUpdated }

func (e ProductUpdated) Validate() error {
	if err := validateNotNilUUID("product_id", e.ProductID); err != nil {
		return err
	}

	if err := validateNotEmpty("sku", e.SKU); err != nil {
		return err
	}

	return validateMaxLength("sku", e.SKU, MaxKindLen)
}

// OrderPaid records a successful payment against an order. Amount is in minor
// currency units (cents).
type OrderPaid struct {
	OrderID   uuid.UUID `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
}

func (e OrderPaid) EventType() string { return TypeOrderPaid }

func (e OrderPaid) Validate() error {
	if err := validateNotNilUUID("order_id", e.OrderID); err != nil {
		return err
	}

	if err := validateNotNilUUID("payment_id", e.PaymentID); err != nil {
		return err
	}

	if err := validateNonNegative("amount", e.Amount); err != nil {
		return err
	}

	if err := validateNotEmpty("currency", e.Currency); err != nil {
		return err
	}

	return validateMaxLength("currency", e.Currency, MaxCurrencyLen)
}
