package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxStockIn    TransactionType = "stock-in"
	TxStockOut   TransactionType = "stock-out"
	TxAdjustment TransactionType = "adjustment"
	TxReturn     TransactionType = "return"
)

// ParseTransactionType validates a transaction type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch t := TransactionType(s); t {
	case TxStockIn, TxStockOut, TxAdjustment, TxReturn:
		return t, nil
	}
	return "", NewError(ErrValidation, "invalid transaction type %q", s)
}

// InventoryTransaction is an immutable audit entry. PreviousQuantity and
// NewQuantity are on-hand totals (available + reserved).
type InventoryTransaction struct {
	ID               string              `json:"id" db:"id"`
	ProductID        string              `json:"product_id" db:"product_id"`
	Type             TransactionType     `json:"transaction_type" db:"transaction_type"`
	Quantity         int                 `json:"quantity" db:"quantity"`
	PreviousQuantity int                 `json:"previous_quantity" db:"previous_quantity"`
	NewQuantity      int                 `json:"new_quantity" db:"new_quantity"`
	PerformedBy      string              `json:"performed_by" db:"performed_by"`
	SupplierID       string              `json:"supplier_id,omitempty" db:"supplier_id"`
	OrderID          string              `json:"order_id,omitempty" db:"order_id"`
	ReferenceNumber  string              `json:"reference_number,omitempty" db:"reference_number"`
	UnitCost         decimal.NullDecimal `json:"unit_cost" db:"unit_cost"`
	TotalCost        decimal.NullDecimal `json:"total_cost" db:"total_cost"`
	Notes            string              `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time           `json:"created_at" db:"created_at"`
}

// TransactionDetails carries the optional context of a ledger movement.
type TransactionDetails struct {
	SupplierID      string
	OrderID         string
	ReferenceNumber string
	UnitCost        decimal.NullDecimal
	Notes           string
}

// NewTransaction builds a log entry for a movement from prev to next on-hand units.
func NewTransaction(productID string, typ TransactionType, qty, prev, next int, performedBy string, d TransactionDetails, at time.Time) (*InventoryTransaction, error) {
	t := &InventoryTransaction{
		ID:               uuid.New().String(),
		ProductID:        productID,
		Type:             typ,
		Quantity:         qty,
		PreviousQuantity: prev,
		NewQuantity:      next,
		PerformedBy:      performedBy,
		SupplierID:       d.SupplierID,
		OrderID:          d.OrderID,
		ReferenceNumber:  d.ReferenceNumber,
		UnitCost:         d.UnitCost,
		Notes:            d.Notes,
		CreatedAt:        at,
	}
	if d.UnitCost.Valid {
		t.TotalCost = decimal.NewNullDecimal(d.UnitCost.Decimal.Mul(decimal.NewFromInt(int64(qty))))
	}
	if !t.Consistent() {
		return nil, NewError(ErrInternal,
			"inconsistent %s entry: quantity %d, %d -> %d", typ, qty, prev, next)
	}
	return t, nil
}

// Consistent reports whether the quantities agree with the transaction type.
func (t InventoryTransaction) Consistent() bool {
	if t.Quantity <= 0 || t.PreviousQuantity < 0 || t.NewQuantity < 0 {
		return false
	}
	delta := t.NewQuantity - t.PreviousQuantity
	switch t.Type {
	case TxStockIn, TxReturn:
		return delta == t.Quantity
	case TxStockOut:
		return delta == -t.Quantity
	case TxAdjustment:
		return delta == t.Quantity || delta == -t.Quantity
	}
	return false
}

// TransactionFilter narrows transaction history queries.
type TransactionFilter struct {
	ProductID string
	Type      TransactionType
	From      *time.Time
	To        *time.Time
	Page      int
	Limit     int
}

// Normalize fills paging defaults.
func (f TransactionFilter) Normalize() TransactionFilter {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	return f
}
