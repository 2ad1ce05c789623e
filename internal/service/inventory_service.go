package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// InventoryService runs the warehouse workflows: receiving, direct
// stock-out, adjustments and reorder levels.
type InventoryService struct {
	store        db.Store
	products     ProductLookup
	admins       AdminDirectory
	notifier     Notifier
	reorderLevel int
	logger       *zap.Logger
	tracer       trace.Tracer
	now          func() time.Time
}

func NewInventoryService(store db.Store, products ProductLookup, admins AdminDirectory, notifier Notifier, reorderLevel int, logger *zap.Logger) *InventoryService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if reorderLevel < 0 {
		reorderLevel = models.DefaultReorderLevel
	}
	return &InventoryService{
		store:        store,
		products:     products,
		admins:       admins,
		notifier:     notifier,
		reorderLevel: reorderLevel,
		logger:       logger,
		tracer:       otel.Tracer("inventory-service"),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// StockIn receives goods. The inventory record is created on first receipt.
func (s *InventoryService) StockIn(ctx context.Context, cmd StockIn) (_ *StockResult, err error) {
	ctx, span := s.tracer.Start(ctx, "stock_in")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("inventory.quantity", cmd.Quantity),
	)

	if cmd.Quantity <= 0 {
		return nil, models.NewError(models.ErrInvalidQuantity, "quantity must be greater than 0, got %d", cmd.Quantity)
	}
	product, err := s.products.GetProduct(ctx, cmd.ProductID)
	if err != nil {
		return nil, s.internal(err, "failed to look up product", zap.String("product_id", cmd.ProductID))
	}
	if product == nil {
		return nil, models.NewError(models.ErrProductNotFound, "Product %s not found", cmd.ProductID)
	}

	var result StockResult
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		rec, err := tx.LockInventory(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		created := rec == nil
		if created {
			fresh := models.NewInventoryRecord(cmd.ProductID, s.reorderLevel, now)
			rec = &fresh
		}

		next, err := rec.AddStock(cmd.Quantity, cmd.ReferenceNumber, now)
		if err != nil {
			return err
		}
		next.UpdatedBy = cmd.PerformedBy
		if created {
			err = tx.InsertInventory(ctx, next)
		} else {
			err = tx.UpdateInventory(ctx, next)
		}
		if err != nil {
			return err
		}

		entry, err := models.NewTransaction(cmd.ProductID, models.TxStockIn, cmd.Quantity,
			rec.TotalQuantity(), next.TotalQuantity(), cmd.PerformedBy,
			models.TransactionDetails{
				SupplierID:      cmd.SupplierID,
				ReferenceNumber: cmd.ReferenceNumber,
				UnitCost:        cmd.UnitCost,
				Notes:           cmd.Notes,
			}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		result = StockResult{Inventory: &next, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, s.internal(err, "failed to add stock", zap.String("product_id", cmd.ProductID))
	}

	s.logger.Info("Stock added",
		zap.String("sku", product.SKU),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("available", result.Inventory.AvailableQuantity),
	)
	return &result, nil
}

// StockOut removes goods outside the order flow. The first time a record
// drops to its reorder level the administrators are alerted.
func (s *InventoryService) StockOut(ctx context.Context, cmd StockOut) (_ *StockResult, err error) {
	ctx, span := s.tracer.Start(ctx, "stock_out")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("inventory.quantity", cmd.Quantity),
	)

	var (
		result StockResult
		alert  bool
	)
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()
		alert = false

		rec, err := lockInventory(ctx, tx, cmd.ProductID)
		if err != nil {
			return err
		}
		next, err := rec.RemoveStock(cmd.Quantity, cmd.ReferenceNumber, now)
		if err != nil {
			return err
		}
		next.UpdatedBy = cmd.PerformedBy
		if next.IsLowStock() && !next.LowStockAlertSent {
			next.LowStockAlertSent = true
			alert = true
		}
		if err := tx.UpdateInventory(ctx, next); err != nil {
			return err
		}

		entry, err := models.NewTransaction(cmd.ProductID, models.TxStockOut, cmd.Quantity,
			rec.TotalQuantity(), next.TotalQuantity(), cmd.PerformedBy,
			models.TransactionDetails{
				OrderID:         cmd.OrderID,
				ReferenceNumber: cmd.ReferenceNumber,
				Notes:           cmd.Notes,
			}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		result = StockResult{Inventory: &next, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, s.internal(err, "failed to remove stock", zap.String("product_id", cmd.ProductID))
	}

	s.logger.Info("Stock removed",
		zap.String("product_id", cmd.ProductID),
		zap.Int("quantity", cmd.Quantity),
		zap.Int("available", result.Inventory.AvailableQuantity),
	)
	if alert {
		s.notifyLowStock(ctx, *result.Inventory)
	}
	return &result, nil
}

// AdjustInventory applies a signed correction, for example after a count.
func (s *InventoryService) AdjustInventory(ctx context.Context, cmd AdjustInventory) (_ *StockResult, err error) {
	ctx, span := s.tracer.Start(ctx, "adjust_inventory")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("product.id", cmd.ProductID),
		attribute.Int("inventory.delta", cmd.Delta),
	)

	var result StockResult
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		rec, err := lockInventory(ctx, tx, cmd.ProductID)
		if err != nil {
			return err
		}
		next, err := rec.Adjust(cmd.Delta, cmd.Notes, now)
		if err != nil {
			return err
		}
		next.UpdatedBy = cmd.PerformedBy
		if err := tx.UpdateInventory(ctx, next); err != nil {
			return err
		}

		qty := cmd.Delta
		if qty < 0 {
			qty = -qty
		}
		entry, err := models.NewTransaction(cmd.ProductID, models.TxAdjustment, qty,
			rec.TotalQuantity(), next.TotalQuantity(), cmd.PerformedBy,
			models.TransactionDetails{Notes: cmd.Notes}, now)
		if err != nil {
			return err
		}
		if err := tx.AppendTransaction(ctx, entry); err != nil {
			return err
		}

		result = StockResult{Inventory: &next, Transaction: entry}
		return nil
	})
	if err != nil {
		return nil, s.internal(err, "failed to adjust inventory", zap.String("product_id", cmd.ProductID))
	}

	s.logger.Info("Inventory adjusted",
		zap.String("product_id", cmd.ProductID),
		zap.Int("delta", cmd.Delta),
		zap.String("notes", cmd.Notes),
	)
	return &result, nil
}

func (s *InventoryService) UpdateReorderLevel(ctx context.Context, cmd UpdateReorderLevel) (*models.InventoryRecord, error) {
	if cmd.Level == nil {
		return nil, models.NewError(models.ErrValidation, "reorder level is required")
	}

	var rec models.InventoryRecord
	err := s.store.WithinTx(ctx, func(tx db.Tx) error {
		current, err := lockInventory(ctx, tx, cmd.ProductID)
		if err != nil {
			return err
		}
		rec, err = current.SetReorderLevel(*cmd.Level, s.now())
		if err != nil {
			return err
		}
		rec.UpdatedBy = cmd.PerformedBy
		return tx.UpdateInventory(ctx, rec)
	})
	if err != nil {
		return nil, s.internal(err, "failed to update reorder level", zap.String("product_id", cmd.ProductID))
	}
	return &rec, nil
}

func (s *InventoryService) GetInventory(ctx context.Context, productID string) (*models.InventoryView, error) {
	view, err := s.store.GetInventory(ctx, productID)
	if err != nil {
		return nil, s.internal(err, "failed to get inventory", zap.String("product_id", productID))
	}
	if view == nil {
		return nil, models.NewError(models.ErrInventoryNotFound, "Inventory not found for product %s", productID)
	}
	return view, nil
}

func (s *InventoryService) ListInventory(ctx context.Context, f models.InventoryFilter) (models.Page[models.InventoryView], error) {
	page, err := s.store.ListInventory(ctx, f)
	if err != nil {
		return page, s.internal(err, "failed to list inventory")
	}
	return page, nil
}

func (s *InventoryService) ListLowStock(ctx context.Context) ([]models.InventoryView, error) {
	views, err := s.store.ListLowStock(ctx)
	if err != nil {
		return nil, s.internal(err, "failed to list low stock")
	}
	return views, nil
}

func (s *InventoryService) ListTransactions(ctx context.Context, f models.TransactionFilter) (models.Page[models.InventoryTransaction], error) {
	page, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return page, s.internal(err, "failed to list transactions")
	}
	return page, nil
}

func (s *InventoryService) notifyLowStock(ctx context.Context, rec models.InventoryRecord) {
	event := models.LowStockEvent{
		ProductID:         rec.ProductID,
		ProductName:       rec.ProductID,
		AvailableQuantity: rec.AvailableQuantity,
		ReorderLevel:      rec.ReorderLevel,
	}
	if product, err := s.products.GetProduct(ctx, rec.ProductID); err != nil {
		s.logger.Warn("Failed to load product for low stock alert", zap.String("product_id", rec.ProductID), zap.Error(err))
	} else if product != nil {
		event.ProductName = product.Name
		event.SKU = product.SKU
	}

	ids, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to load admin recipients", zap.Error(err))
	}
	event.Recipients = ids

	s.logger.Warn("Low stock",
		zap.String("product_id", rec.ProductID),
		zap.Int("available", rec.AvailableQuantity),
		zap.Int("reorder_level", rec.ReorderLevel),
	)
	s.notifier.LowStock(ctx, event)
}

func (s *InventoryService) internal(err error, msg string, fields ...zap.Field) error {
	return hideInternal(s.logger, err, msg, fields...)
}
