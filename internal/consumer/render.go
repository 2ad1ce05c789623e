package consumer

import (
	"encoding/json"
	"fmt"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// Render builds the notifications of an event, one per recipient. IDs and
// timestamps are left for the caller.
func Render(env models.Envelope) ([]models.Notification, error) {
	switch env.EventType {
	case models.EventOrderPlaced, models.EventOrderApproved, models.EventOrderRejected,
		models.EventOrderCancelled, models.EventOrderStatusChanged:
		var e models.OrderEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return renderOrder(env.EventType, e)

	case models.EventLowStock:
		var e models.LowStockEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return renderLowStock(e)

	case models.EventAccountStatus:
		var e models.AccountStatusEvent
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return renderAccountStatus(e)
	}
	return nil, fmt.Errorf("%w: unknown event type %q", ErrMalformed, env.EventType)
}

func renderOrder(eventType string, e models.OrderEvent) ([]models.Notification, error) {
	typ := models.NotificationOrderUpdate
	var msg string

	switch eventType {
	case models.EventOrderPlaced:
		typ = models.NotificationNewOrder
		name := e.WholesalerName
		if name == "" {
			name = "a wholesaler"
		}
		msg = fmt.Sprintf("New order #%s placed by %s. Total: $%s", e.OrderNumber, name, e.TotalAmount.StringFixed(2))
	case models.EventOrderApproved:
		msg = fmt.Sprintf("Your order #%s has been approved and is being processed.", e.OrderNumber)
	case models.EventOrderRejected:
		msg = fmt.Sprintf("Your order #%s has been rejected. Reason: %s", e.OrderNumber, e.Reason)
	case models.EventOrderCancelled:
		msg = fmt.Sprintf("Your order #%s has been cancelled. %s", e.OrderNumber, e.Reason)
	default:
		msg = statusMessage(e.OrderNumber, e.Status)
	}

	meta := map[string]interface{}{
		"order_number": e.OrderNumber,
		"status":       e.Status,
	}
	switch eventType {
	case models.EventOrderPlaced:
		meta["total_amount"] = e.TotalAmount
		meta["wholesaler_id"] = e.WholesalerID
	case models.EventOrderRejected, models.EventOrderCancelled:
		meta["reason"] = e.Reason
	case models.EventOrderApproved:
		meta["total_amount"] = e.TotalAmount
	}
	metadata, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}

	out := make([]models.Notification, 0, len(e.Recipients))
	for _, userID := range e.Recipients {
		out = append(out, models.Notification{
			UserID:         userID,
			Message:        msg,
			Type:           typ,
			RelatedOrderID: e.OrderID,
			Metadata:       metadata,
		})
	}
	return out, nil
}

func statusMessage(orderNumber string, status models.OrderStatus) string {
	switch status {
	case models.StatusProcessing:
		return fmt.Sprintf("Your order #%s is now being processed.", orderNumber)
	case models.StatusShipped:
		return fmt.Sprintf("Your order #%s has been shipped!", orderNumber)
	case models.StatusDelivered:
		return fmt.Sprintf("Your order #%s has been delivered. Thank you for your business!", orderNumber)
	}
	return fmt.Sprintf("Your order #%s status has been updated to %s.", orderNumber, status)
}

func renderLowStock(e models.LowStockEvent) ([]models.Notification, error) {
	msg := fmt.Sprintf("Low stock alert: %s (%s) is below reorder level. Available: %d, Reorder Level: %d",
		e.ProductName, e.SKU, e.AvailableQuantity, e.ReorderLevel)

	metadata, err := json.Marshal(map[string]interface{}{
		"product_name":       e.ProductName,
		"sku":                e.SKU,
		"available_quantity": e.AvailableQuantity,
		"reorder_level":      e.ReorderLevel,
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Notification, 0, len(e.Recipients))
	for _, userID := range e.Recipients {
		out = append(out, models.Notification{
			UserID:           userID,
			Message:          msg,
			Type:             models.NotificationLowStock,
			RelatedProductID: e.ProductID,
			Metadata:         metadata,
		})
	}
	return out, nil
}

func renderAccountStatus(e models.AccountStatusEvent) ([]models.Notification, error) {
	if e.UserID == "" {
		return nil, fmt.Errorf("%w: account event without user", ErrMalformed)
	}
	n := models.Notification{
		UserID:  e.UserID,
		Type:    models.NotificationAccountApproved,
		Message: "Congratulations! Your wholesaler account has been approved. You can now place orders.",
	}
	if !e.Approved {
		n.Type = models.NotificationAccountRejected
		n.Message = "Your wholesaler account application has been reviewed and unfortunately was not approved at this time."
	}
	return []models.Notification{n}, nil
}
