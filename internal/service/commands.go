package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

type OrderItemInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

type PlaceOrder struct {
	WholesalerID    string                  `json:"-"`
	WholesalerName  string                  `json:"-"`
	Items           []OrderItemInput        `json:"items" binding:"required"`
	ShippingAddress *models.ShippingAddress `json:"shipping_address"`
	Notes           string                  `json:"notes"`
}

type ApproveOrder struct {
	OrderID string
	AdminID string
}

type RejectOrder struct {
	OrderID string `json:"-"`
	AdminID string `json:"-"`
	Reason  string `json:"reason"`
}

type CancelOrder struct {
	OrderID string       `json:"-"`
	Actor   models.Actor `json:"-"`
	Reason  string       `json:"reason"`
}

type UpdateOrderStatus struct {
	OrderID string             `json:"-"`
	Status  models.OrderStatus `json:"status" binding:"required"`
}

type StockIn struct {
	ProductID       string              `json:"product_id" binding:"required"`
	Quantity        int                 `json:"quantity"`
	SupplierID      string              `json:"supplier_id"`
	UnitCost        decimal.NullDecimal `json:"unit_cost"`
	ReferenceNumber string              `json:"reference_number"`
	Notes           string              `json:"notes"`
	PerformedBy     string              `json:"-"`
}

type StockOut struct {
	ProductID       string `json:"product_id" binding:"required"`
	Quantity        int    `json:"quantity"`
	OrderID         string `json:"order_id"`
	ReferenceNumber string `json:"reference_number"`
	Notes           string `json:"notes"`
	PerformedBy     string `json:"-"`
}

type AdjustInventory struct {
	ProductID   string `json:"product_id" binding:"required"`
	Delta       int    `json:"adjustment"`
	Notes       string `json:"notes"`
	PerformedBy string `json:"-"`
}

type UpdateReorderLevel struct {
	ProductID   string `json:"-"`
	Level       *int   `json:"reorder_level" binding:"required"`
	PerformedBy string `json:"-"`
}

// StockResult is the committed record plus the log entry a movement produced.
type StockResult struct {
	Inventory   *models.InventoryRecord      `json:"inventory"`
	Transaction *models.InventoryTransaction `json:"transaction"`
}

// productQuantities sums item quantities per product and returns the
// product ids in lock order.
func productQuantities(items []models.OrderItem) ([]string, map[string]int) {
	qty := make(map[string]int, len(items))
	for _, it := range items {
		qty[it.ProductID] += it.Quantity
	}
	ids := make([]string, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, qty
}
