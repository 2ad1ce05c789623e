package service

import (
	"context"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// Notifier delivers workflow events after their transaction commits.
// Implementations must not block the caller on delivery failures.
type Notifier interface {
	OrderEvent(ctx context.Context, event models.OrderEvent)
	LowStock(ctx context.Context, event models.LowStockEvent)
}

// ProductLookup resolves catalog entries. It returns nil, nil for unknown ids.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
}

// AdminDirectory lists the users that receive administrative notifications.
type AdminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]string, error)
}

// NopNotifier discards every event.
type NopNotifier struct{}

func (NopNotifier) OrderEvent(context.Context, models.OrderEvent) {}
func (NopNotifier) LowStock(context.Context, models.LowStockEvent) {}
