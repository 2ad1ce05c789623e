package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusApproved   OrderStatus = "approved"
	StatusRejected   OrderStatus = "rejected"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved:   {StatusProcessing, StatusShipped, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusRejected:   nil,
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// ParseOrderStatus validates a status string.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := orderTransitions[st]; !ok {
		return "", NewError(ErrValidation, "invalid order status %q", s)
	}
	return st, nil
}

// CanTransitionTo reports whether the state machine allows s -> target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, t := range orderTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	SKU         string          `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
	Country string `json:"country"`
}

type Order struct {
	ID                 string           `json:"id"`
	OrderNumber        string           `json:"order_number"`
	WholesalerID       string           `json:"wholesaler_id"`
	Items              []OrderItem      `json:"items"`
	TotalAmount        decimal.Decimal  `json:"total_amount"`
	Status             OrderStatus      `json:"order_status"`
	PaymentStatus      PaymentStatus    `json:"payment_status"`
	ShippingAddress    *ShippingAddress `json:"shipping_address,omitempty"`
	Notes              string           `json:"notes,omitempty"`
	ApprovedBy         string           `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time       `json:"approved_at,omitempty"`
	RejectionReason    string           `json:"rejection_reason,omitempty"`
	CancellationReason string           `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time       `json:"cancelled_at,omitempty"`
	ShippedAt          *time.Time       `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time       `json:"delivered_at,omitempty"`
	FulfilledAt        *time.Time       `json:"fulfilled_at,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// FormatOrderNumber renders ORD-YYMMDD-NNNN for the seq-th order of the day.
func FormatOrderNumber(day time.Time, seq int) string {
	return fmt.Sprintf("ORD-%s-%04d", day.Format("060102"), seq)
}

// NewOrder builds a pending order. Subtotals and the total are always
// computed here from quantity and unit price.
func NewOrder(id, orderNumber, wholesalerID string, items []OrderItem, addr *ShippingAddress, notes string, at time.Time) (Order, error) {
	if wholesalerID == "" {
		return Order{}, NewError(ErrValidation, "wholesaler is required")
	}
	if len(items) == 0 {
		return Order{}, NewError(ErrValidation, "order must contain at least one item")
	}

	total := decimal.Zero
	lines := make([]OrderItem, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return Order{}, invalidQuantity(it.Quantity)
		}
		if it.UnitPrice.IsNegative() {
			return Order{}, NewError(ErrValidation, "unit price cannot be negative for %s", it.ProductName)
		}
		it.Subtotal = it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(it.Subtotal)
		lines[i] = it
	}

	return Order{
		ID:              id,
		OrderNumber:     orderNumber,
		WholesalerID:    wholesalerID,
		Items:           lines,
		TotalAmount:     total,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		ShippingAddress: addr,
		Notes:           notes,
		CreatedAt:       at,
		UpdatedAt:       at,
	}, nil
}

func (o Order) transition(target OrderStatus) error {
	if !o.Status.CanTransitionTo(target) {
		return NewError(ErrInvalidStateTransition,
			"cannot change order %s from %s to %s", o.OrderNumber, o.Status, target)
	}
	return nil
}

// CanBeCancelled reports whether the order may still be cancelled.
func (o Order) CanBeCancelled() bool {
	return o.Status == StatusPending || o.Status == StatusApproved
}

// CanBeModified reports whether the order content may still change.
func (o Order) CanBeModified() bool {
	return o.Status == StatusPending
}

// Approve accepts a pending order.
func (o Order) Approve(adminID string, at time.Time) (Order, error) {
	if err := o.transition(StatusApproved); err != nil {
		return o, err
	}
	o.Status = StatusApproved
	o.ApprovedBy = adminID
	o.ApprovedAt = &at
	o.UpdatedAt = at
	return o, nil
}

// Reject declines a pending order.
func (o Order) Reject(adminID, reason string, at time.Time) (Order, error) {
	if err := o.transition(StatusRejected); err != nil {
		return o, err
	}
	if reason == "" {
		return o, NewError(ErrValidation, "rejection reason is required")
	}
	o.Status = StatusRejected
	o.RejectionReason = reason
	o.ApprovedBy = adminID
	o.ApprovedAt = &at
	o.UpdatedAt = at
	return o, nil
}

func (o Order) MarkProcessing(at time.Time) (Order, error) {
	if err := o.transition(StatusProcessing); err != nil {
		return o, err
	}
	o.Status = StatusProcessing
	o.UpdatedAt = at
	return o, nil
}

func (o Order) MarkShipped(at time.Time) (Order, error) {
	if err := o.transition(StatusShipped); err != nil {
		return o, err
	}
	o.Status = StatusShipped
	o.ShippedAt = &at
	o.UpdatedAt = at
	return o, nil
}

func (o Order) MarkDelivered(at time.Time) (Order, error) {
	if err := o.transition(StatusDelivered); err != nil {
		return o, err
	}
	o.Status = StatusDelivered
	o.DeliveredAt = &at
	o.FulfilledAt = &at
	o.UpdatedAt = at
	return o, nil
}

// Cancel withdraws a pending or approved order.
func (o Order) Cancel(reason string, at time.Time) (Order, error) {
	if !o.CanBeCancelled() {
		return o, NewError(ErrInvalidStateTransition,
			"cannot change order %s from %s to %s", o.OrderNumber, o.Status, StatusCancelled)
	}
	if reason == "" {
		return o, NewError(ErrValidation, "cancellation reason is required")
	}
	o.Status = StatusCancelled
	o.CancellationReason = reason
	o.CancelledAt = &at
	o.UpdatedAt = at
	return o, nil
}

// OrderFilter narrows order listings.
type OrderFilter struct {
	Status       OrderStatus
	WholesalerID string
	From         *time.Time
	To           *time.Time
	Page         int
	Limit        int
}

// Normalize fills paging defaults.
func (f OrderFilter) Normalize() OrderFilter {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	return f
}

// MaxPage bounds page numbers so row offsets cannot overflow.
const MaxPage = 1_000_000

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}

// Offset returns the row offset of a page.
func Offset(page, limit int) int {
	return (page - 1) * limit
}
