package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event types carried on the bus. They double as routing keys.
const (
	EventOrderPlaced        = "order.placed"
	EventOrderApproved      = "order.approved"
	EventOrderRejected      = "order.rejected"
	EventOrderCancelled     = "order.cancelled"
	EventOrderStatusChanged = "order.status_changed"
	EventLowStock           = "inventory.low_stock"
	EventAccountStatus      = "account.status"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderEvent is emitted after an order workflow commits.
type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        string          `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	WholesalerID   string          `json:"wholesaler_id"`
	WholesalerName string          `json:"wholesaler_name,omitempty"`
	Status         OrderStatus     `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Reason         string          `json:"reason,omitempty"`
	Recipients     []string        `json:"recipients"`
}

// NewOrderEvent builds an event for o addressed to recipients.
func NewOrderEvent(eventType string, o Order, recipients []string) OrderEvent {
	reason := o.RejectionReason
	if o.Status == StatusCancelled {
		reason = o.CancellationReason
	}
	return OrderEvent{
		Type:         eventType,
		OrderID:      o.ID,
		OrderNumber:  o.OrderNumber,
		WholesalerID: o.WholesalerID,
		Status:       o.Status,
		TotalAmount:  o.TotalAmount,
		Reason:       reason,
		Recipients:   recipients,
	}
}

// LowStockEvent is emitted once when a record first drops to its reorder level.
type LowStockEvent struct {
	ProductID         string   `json:"product_id"`
	ProductName       string   `json:"product_name"`
	SKU               string   `json:"sku"`
	AvailableQuantity int      `json:"available_quantity"`
	ReorderLevel      int      `json:"reorder_level"`
	Recipients        []string `json:"recipients"`
}

// AccountStatusEvent tells a wholesaler their application was decided.
type AccountStatusEvent struct {
	UserID   string `json:"user_id"`
	Approved bool   `json:"approved"`
}
