package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies domain failures so callers can map them to responses.
type ErrorKind string

const (
	ErrValidation             ErrorKind = "validation"
	ErrInvalidQuantity        ErrorKind = "invalid_quantity"
	ErrProductNotFound        ErrorKind = "product_not_found"
	ErrProductInactive        ErrorKind = "product_inactive"
	ErrOrderNotFound          ErrorKind = "order_not_found"
	ErrInventoryNotFound      ErrorKind = "inventory_not_found"
	ErrNoInventory            ErrorKind = "no_inventory"
	ErrNotificationNotFound   ErrorKind = "notification_not_found"
	ErrInvalidStateTransition ErrorKind = "invalid_state_transition"
	ErrInsufficientStock      ErrorKind = "insufficient_stock"
	ErrNegativeStock          ErrorKind = "negative_stock"
	ErrInvalidRelease         ErrorKind = "invalid_release"
	ErrInvalidConfirm         ErrorKind = "invalid_confirm"
	ErrForbidden              ErrorKind = "forbidden"
	ErrInternal               ErrorKind = "internal"
)

// Error is a domain error with a machine-readable kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NewError builds an *Error with a formatted message.
func NewError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of a domain error, ErrInternal for any other
// non-nil error and "" for nil.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ErrInternal
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

func invalidQuantity(qty int) *Error {
	return NewError(ErrInvalidQuantity, "quantity must be greater than 0, got %d", qty)
}
