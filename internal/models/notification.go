package models

import (
	"encoding/json"
	"time"
)

type NotificationType string

const (
	NotificationLowStock        NotificationType = "low-stock"
	NotificationOrderUpdate     NotificationType = "order-update"
	NotificationNewOrder        NotificationType = "new-order"
	NotificationAccountApproved NotificationType = "account-approved"
	NotificationAccountRejected NotificationType = "account-rejected"
)

type Notification struct {
	ID               string           `json:"id" db:"id"`
	UserID           string           `json:"user_id" db:"user_id"`
	Message          string           `json:"message" db:"message"`
	Type             NotificationType `json:"type" db:"type"`
	IsRead           bool             `json:"is_read" db:"is_read"`
	ReadAt           *time.Time       `json:"read_at,omitempty" db:"read_at"`
	RelatedOrderID   string           `json:"related_order_id,omitempty" db:"related_order_id"`
	RelatedProductID string           `json:"related_product_id,omitempty" db:"related_product_id"`
	Metadata         json.RawMessage  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
}

// NotificationFilter narrows a user's notification listing.
type NotificationFilter struct {
	UserID     string
	UnreadOnly bool
	Page       int
	Limit      int
}

// Normalize fills paging defaults.
func (f NotificationFilter) Normalize() NotificationFilter {
	f.Page, f.Limit = normalizePage(f.Page, f.Limit)
	return f
}

// Page is a slice of results plus the total match count.
type Page[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
