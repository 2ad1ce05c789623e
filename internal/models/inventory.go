package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultReorderLevel is used when a record is created without an explicit level.
const DefaultReorderLevel = 100

// StockMovement records the most recent inbound or outbound movement.
type StockMovement struct {
	Date      time.Time `json:"date"`
	Quantity  int       `json:"quantity"`
	Reference string    `json:"reference,omitempty"`
}

// InventoryRecord is the stock ledger of a single product.
//
// All mutating operations take the record by value and return the updated
// copy, leaving the receiver untouched when they fail. Loading, locking and
// persisting are the caller's job.
type InventoryRecord struct {
	ID                string         `json:"id"`
	ProductID         string         `json:"product_id"`
	AvailableQuantity int            `json:"available_quantity"`
	ReservedQuantity  int            `json:"reserved_quantity"`
	ReorderLevel      int            `json:"reorder_level"`
	LastStockIn       *StockMovement `json:"last_stock_in,omitempty"`
	LastStockOut      *StockMovement `json:"last_stock_out,omitempty"`
	LowStockAlertSent bool           `json:"low_stock_alert_sent"`
	UpdatedBy         string         `json:"updated_by,omitempty"`
	Notes             string         `json:"notes,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewInventoryRecord returns an empty record for a product.
func NewInventoryRecord(productID string, reorderLevel int, at time.Time) InventoryRecord {
	if reorderLevel < 0 {
		reorderLevel = 0
	}
	return InventoryRecord{
		ID:           uuid.New().String(),
		ProductID:    productID,
		ReorderLevel: reorderLevel,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
}

// TotalQuantity is the on-hand stock: available plus reserved.
func (r InventoryRecord) TotalQuantity() int {
	return r.AvailableQuantity + r.ReservedQuantity
}

// HasAvailableStock reports whether qty units can be reserved.
func (r InventoryRecord) HasAvailableStock(qty int) bool {
	return r.AvailableQuantity >= qty
}

// IsLowStock reports whether available stock is at or below the reorder level.
func (r InventoryRecord) IsLowStock() bool {
	return r.AvailableQuantity <= r.ReorderLevel
}

// AddStock receives qty units and re-arms the low stock alert.
func (r InventoryRecord) AddStock(qty int, reference string, at time.Time) (InventoryRecord, error) {
	if qty <= 0 {
		return r, invalidQuantity(qty)
	}
	r.AvailableQuantity += qty
	r.LastStockIn = &StockMovement{Date: at, Quantity: qty, Reference: reference}
	r.LowStockAlertSent = false
	r.UpdatedAt = at
	return r, nil
}

// Reserve moves qty units from available to reserved.
func (r InventoryRecord) Reserve(qty int, at time.Time) (InventoryRecord, error) {
	if qty <= 0 {
		return r, invalidQuantity(qty)
	}
	if r.AvailableQuantity < qty {
		return r, NewError(ErrInsufficientStock,
			"Insufficient stock. Available: %d, Requested: %d", r.AvailableQuantity, qty)
	}
	r.AvailableQuantity -= qty
	r.ReservedQuantity += qty
	r.UpdatedAt = at
	return r, nil
}

// Release returns qty reserved units to available.
func (r InventoryRecord) Release(qty int, at time.Time) (InventoryRecord, error) {
	if qty <= 0 {
		return r, invalidQuantity(qty)
	}
	if r.ReservedQuantity < qty {
		return r, NewError(ErrInvalidRelease,
			"cannot release %d units, only %d reserved", qty, r.ReservedQuantity)
	}
	r.ReservedQuantity -= qty
	r.AvailableQuantity += qty
	r.UpdatedAt = at
	return r, nil
}

// ConfirmStockOut permanently removes qty previously reserved units.
func (r InventoryRecord) ConfirmStockOut(qty int, reference string, at time.Time) (InventoryRecord, error) {
	if qty <= 0 {
		return r, invalidQuantity(qty)
	}
	if r.ReservedQuantity < qty {
		return r, NewError(ErrInvalidConfirm,
			"cannot confirm %d units, only %d reserved", qty, r.ReservedQuantity)
	}
	r.ReservedQuantity -= qty
	r.LastStockOut = &StockMovement{Date: at, Quantity: qty, Reference: reference}
	r.UpdatedAt = at
	return r, nil
}

// RemoveStock takes qty units straight out of available stock.
func (r InventoryRecord) RemoveStock(qty int, reference string, at time.Time) (InventoryRecord, error) {
	if qty <= 0 {
		return r, invalidQuantity(qty)
	}
	if r.AvailableQuantity < qty {
		return r, NewError(ErrInsufficientStock,
			"Insufficient stock. Available: %d, Requested: %d", r.AvailableQuantity, qty)
	}
	r.AvailableQuantity -= qty
	r.LastStockOut = &StockMovement{Date: at, Quantity: qty, Reference: reference}
	r.UpdatedAt = at
	return r, nil
}

// Adjust applies a signed correction to available stock.
func (r InventoryRecord) Adjust(delta int, notes string, at time.Time) (InventoryRecord, error) {
	if delta == 0 {
		return r, NewError(ErrInvalidQuantity, "adjustment cannot be zero")
	}
	if notes == "" {
		return r, NewError(ErrValidation, "notes are required for adjustments")
	}
	if r.AvailableQuantity+delta < 0 {
		return r, NewError(ErrNegativeStock,
			"adjustment would result in negative stock. Available: %d, Adjustment: %d", r.AvailableQuantity, delta)
	}
	r.AvailableQuantity += delta
	r.Notes = notes
	r.UpdatedAt = at
	return r, nil
}

// SetReorderLevel changes the threshold and re-arms the low stock alert.
func (r InventoryRecord) SetReorderLevel(level int, at time.Time) (InventoryRecord, error) {
	if level < 0 {
		return r, NewError(ErrValidation, "reorder level cannot be negative")
	}
	r.ReorderLevel = level
	r.LowStockAlertSent = false
	r.UpdatedAt = at
	return r, nil
}

// InventoryFilter narrows inventory listings.
type InventoryFilter struct {
	LowStockOnly bool
	Page         int
	Limit        int
}

// InventoryView joins a record with the product it tracks.
type InventoryView struct {
	InventoryRecord
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Category    string `json:"category"`
	Unit        string `json:"unit"`
}

// Normalize fills paging defaults.
func (f InventoryFilter) Normalize() InventoryFilter {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	return f
}
