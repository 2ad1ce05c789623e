package db

import (
	"context"
	"time"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// Store is the transactional persistence used by the order and inventory
// workflows.
type Store interface {
	// WithinTx runs fn in a single transaction. Everything fn wrote is
	// committed together or discarded together. fn may run more than once
	// when the backend reports a retryable conflict, so it must not keep
	// state across calls.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error

	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f models.OrderFilter) (models.Page[models.Order], error)
	GetInventory(ctx context.Context, productID string) (*models.InventoryView, error)
	ListInventory(ctx context.Context, f models.InventoryFilter) (models.Page[models.InventoryView], error)
	ListLowStock(ctx context.Context) ([]models.InventoryView, error)
	ListTransactions(ctx context.Context, f models.TransactionFilter) (models.Page[models.InventoryTransaction], error)
}

// Tx is the set of writes and locking reads available inside WithinTx.
// Lookups return nil, nil when the row does not exist.
type Tx interface {
	LockInventory(ctx context.Context, productID string) (*models.InventoryRecord, error)
	InsertInventory(ctx context.Context, rec models.InventoryRecord) error
	UpdateInventory(ctx context.Context, rec models.InventoryRecord) error

	LockOrder(ctx context.Context, id string) (*models.Order, error)
	InsertOrder(ctx context.Context, o models.Order) error
	UpdateOrder(ctx context.Context, o models.Order) error

	AppendTransaction(ctx context.Context, t *models.InventoryTransaction) error

	// NextOrderSequence returns the next 1-based order sequence for day.
	NextOrderSequence(ctx context.Context, day time.Time) (int, error)
}
