package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

// OrderService runs the order workflows. Each workflow loads, transforms and
// stores the order and the affected inventory records in one transaction,
// then notifies the interested users.
type OrderService struct {
	store    db.Store
	products ProductLookup
	admins   AdminDirectory
	notifier Notifier
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewOrderService(store db.Store, products ProductLookup, admins AdminDirectory, notifier Notifier, logger *zap.Logger) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{
		store:    store,
		products: products,
		admins:   admins,
		notifier: notifier,
		logger:   logger,
		tracer:   otel.Tracer("order-service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *OrderService) PlaceOrder(ctx context.Context, cmd PlaceOrder) (_ *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "place_order")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("wholesaler.id", cmd.WholesalerID),
		attribute.Int("order.items", len(cmd.Items)),
	)

	if len(cmd.Items) == 0 {
		return nil, models.NewError(models.ErrValidation, "order must contain at least one item")
	}

	lines := make([]models.OrderItem, 0, len(cmd.Items))
	for _, in := range cmd.Items {
		if in.Quantity <= 0 {
			return nil, models.NewError(models.ErrInvalidQuantity,
				"quantity must be greater than 0 for product %s", in.ProductID)
		}
		product, err := s.products.GetProduct(ctx, in.ProductID)
		if err != nil {
			return nil, s.internal(err, "failed to look up product", zap.String("product_id", in.ProductID))
		}
		if product == nil {
			return nil, models.NewError(models.ErrProductNotFound, "Product %s not found", in.ProductID)
		}
		if !product.IsActive {
			return nil, models.NewError(models.ErrProductInactive, "Product %s is not available", product.Name)
		}
		lines = append(lines, models.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			SKU:         product.SKU,
			Quantity:    in.Quantity,
			UnitPrice:   product.BasePrice,
		})
	}

	names := make(map[string]string, len(lines))
	for _, l := range lines {
		names[l.ProductID] = l.ProductName
	}
	ids, qty := productQuantities(lines)

	var order models.Order
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		for _, id := range ids {
			rec, err := tx.LockInventory(ctx, id)
			if err != nil {
				return err
			}
			if rec == nil {
				return models.NewError(models.ErrNoInventory, "No inventory record for %s", names[id])
			}
			if !rec.HasAvailableStock(qty[id]) {
				return models.NewError(models.ErrInsufficientStock,
					"Insufficient stock for %s. Available: %d, Requested: %d",
					names[id], rec.AvailableQuantity, qty[id])
			}
			reserved, err := rec.Reserve(qty[id], now)
			if err != nil {
				return err
			}
			reserved.UpdatedBy = cmd.WholesalerID
			if err := tx.UpdateInventory(ctx, reserved); err != nil {
				return err
			}
		}

		seq, err := tx.NextOrderSequence(ctx, now)
		if err != nil {
			return err
		}
		order, err = models.NewOrder(uuid.New().String(), models.FormatOrderNumber(now, seq),
			cmd.WholesalerID, lines, cmd.ShippingAddress, cmd.Notes, now)
		if err != nil {
			return err
		}
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		return nil, s.internal(err, "failed to place order", zap.String("wholesaler_id", cmd.WholesalerID))
	}

	span.SetAttributes(attribute.String("order.number", order.OrderNumber))
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)

	event := models.NewOrderEvent(models.EventOrderPlaced, order, s.adminIDs(ctx))
	event.WholesalerName = cmd.WholesalerName
	s.notifier.OrderEvent(ctx, event)
	return &order, nil
}

func (s *OrderService) ApproveOrder(ctx context.Context, cmd ApproveOrder) (_ *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "approve_order")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", cmd.OrderID))

	var order models.Order
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		current, err := lockOrder(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		order, err = current.Approve(cmd.AdminID, now)
		if err != nil {
			return err
		}

		ids, qty := productQuantities(order.Items)
		for _, id := range ids {
			rec, err := lockInventory(ctx, tx, id)
			if err != nil {
				return err
			}
			next, err := rec.ConfirmStockOut(qty[id], order.OrderNumber, now)
			if err != nil {
				return err
			}
			next.UpdatedBy = cmd.AdminID
			if err := tx.UpdateInventory(ctx, next); err != nil {
				return err
			}
			entry, err := models.NewTransaction(id, models.TxStockOut, qty[id],
				rec.TotalQuantity(), next.TotalQuantity(), cmd.AdminID,
				models.TransactionDetails{
					OrderID:         order.ID,
					ReferenceNumber: order.OrderNumber,
					Notes:           "Order " + order.OrderNumber + " approved",
				}, now)
			if err != nil {
				return err
			}
			if err := tx.AppendTransaction(ctx, entry); err != nil {
				return err
			}
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, s.internal(err, "failed to approve order", zap.String("order_id", cmd.OrderID))
	}

	s.logger.Info("Order approved", zap.String("order_number", order.OrderNumber), zap.String("admin_id", cmd.AdminID))
	s.notifier.OrderEvent(ctx, models.NewOrderEvent(models.EventOrderApproved, order, []string{order.WholesalerID}))
	return &order, nil
}

func (s *OrderService) RejectOrder(ctx context.Context, cmd RejectOrder) (_ *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "reject_order")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("order.id", cmd.OrderID))

	var order models.Order
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		current, err := lockOrder(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		order, err = current.Reject(cmd.AdminID, cmd.Reason, now)
		if err != nil {
			return err
		}
		if err := releaseItems(ctx, tx, order.Items, cmd.AdminID, now); err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, s.internal(err, "failed to reject order", zap.String("order_id", cmd.OrderID))
	}

	s.logger.Info("Order rejected", zap.String("order_number", order.OrderNumber), zap.String("reason", order.RejectionReason))
	s.notifier.OrderEvent(ctx, models.NewOrderEvent(models.EventOrderRejected, order, []string{order.WholesalerID}))
	return &order, nil
}

// CancelOrder withdraws an order. A pending order gives back its reservation;
// an approved order has already left the warehouse books, so its stock is
// added back and logged as a return.
func (s *OrderService) CancelOrder(ctx context.Context, cmd CancelOrder) (_ *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "cancel_order")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.id", cmd.OrderID),
		attribute.String("actor.role", string(cmd.Actor.Role)),
	)

	var order models.Order
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		current, err := lockOrder(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		if !cmd.Actor.IsAdmin() && current.WholesalerID != cmd.Actor.ID {
			return models.NewError(models.ErrForbidden, "Not authorized to cancel this order")
		}
		wasApproved := current.Status == models.StatusApproved

		order, err = current.Cancel(cmd.Reason, now)
		if err != nil {
			return err
		}

		if !wasApproved {
			if err := releaseItems(ctx, tx, order.Items, cmd.Actor.ID, now); err != nil {
				return err
			}
			return tx.UpdateOrder(ctx, order)
		}

		ids, qty := productQuantities(order.Items)
		for _, id := range ids {
			rec, err := lockInventory(ctx, tx, id)
			if err != nil {
				return err
			}
			next, err := rec.AddStock(qty[id], order.OrderNumber, now)
			if err != nil {
				return err
			}
			next.UpdatedBy = cmd.Actor.ID
			if err := tx.UpdateInventory(ctx, next); err != nil {
				return err
			}
			entry, err := models.NewTransaction(id, models.TxReturn, qty[id],
				rec.TotalQuantity(), next.TotalQuantity(), cmd.Actor.ID,
				models.TransactionDetails{
					OrderID:         order.ID,
					ReferenceNumber: order.OrderNumber,
					Notes:           "Order " + order.OrderNumber + " cancelled: " + cmd.Reason,
				}, now)
			if err != nil {
				return err
			}
			if err := tx.AppendTransaction(ctx, entry); err != nil {
				return err
			}
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, s.internal(err, "failed to cancel order", zap.String("order_id", cmd.OrderID))
	}

	s.logger.Info("Order cancelled", zap.String("order_number", order.OrderNumber), zap.String("by", cmd.Actor.ID))
	s.notifier.OrderEvent(ctx, models.NewOrderEvent(models.EventOrderCancelled, order, []string{order.WholesalerID}))
	return &order, nil
}

// UpdateOrderStatus moves an order through fulfilment. Inventory is not touched.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (_ *models.Order, err error) {
	ctx, span := s.tracer.Start(ctx, "update_order_status")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("order.id", cmd.OrderID),
		attribute.String("order.target_status", string(cmd.Status)),
	)

	var order models.Order
	err = s.store.WithinTx(ctx, func(tx db.Tx) error {
		now := s.now()

		current, err := lockOrder(ctx, tx, cmd.OrderID)
		if err != nil {
			return err
		}
		switch cmd.Status {
		case models.StatusProcessing:
			order, err = current.MarkProcessing(now)
		case models.StatusShipped:
			order, err = current.MarkShipped(now)
		case models.StatusDelivered:
			order, err = current.MarkDelivered(now)
		default:
			return models.NewError(models.ErrInvalidStateTransition,
				"cannot change order %s from %s to %s", current.OrderNumber, current.Status, cmd.Status)
		}
		if err != nil {
			return err
		}
		return tx.UpdateOrder(ctx, order)
	})
	if err != nil {
		return nil, s.internal(err, "failed to update order status", zap.String("order_id", cmd.OrderID))
	}

	s.logger.Info("Order status updated", zap.String("order_number", order.OrderNumber), zap.String("status", string(order.Status)))
	s.notifier.OrderEvent(ctx, models.NewOrderEvent(models.EventOrderStatusChanged, order, []string{order.WholesalerID}))
	return &order, nil
}

// GetOrder returns an order. Wholesalers can only read their own orders.
func (s *OrderService) GetOrder(ctx context.Context, id string, actor models.Actor) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, id)
	if err != nil {
		return nil, s.internal(err, "failed to get order", zap.String("order_id", id))
	}
	if order == nil {
		return nil, models.NewError(models.ErrOrderNotFound, "Order %s not found", id)
	}
	if !actor.IsAdmin() && order.WholesalerID != actor.ID {
		return nil, models.NewError(models.ErrForbidden, "Not authorized to view this order")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, f models.OrderFilter) (models.Page[models.Order], error) {
	page, err := s.store.ListOrders(ctx, f)
	if err != nil {
		return page, s.internal(err, "failed to list orders")
	}
	return page, nil
}

func (s *OrderService) ListPendingOrders(ctx context.Context, page, limit int) (models.Page[models.Order], error) {
	return s.ListOrders(ctx, models.OrderFilter{Status: models.StatusPending, Page: page, Limit: limit})
}

func (s *OrderService) adminIDs(ctx context.Context) []string {
	ids, err := s.admins.ListAdminIDs(ctx)
	if err != nil {
		s.logger.Warn("Failed to load admin recipients", zap.Error(err))
		return nil
	}
	return ids
}

// internal passes domain errors through and hides everything else behind a
// generic internal error. The cause is logged.
func (s *OrderService) internal(err error, msg string, fields ...zap.Field) error {
	return hideInternal(s.logger, err, msg, fields...)
}

func hideInternal(logger *zap.Logger, err error, msg string, fields ...zap.Field) error {
	if models.KindOf(err) != models.ErrInternal {
		return err
	}
	logger.Error(msg, append(fields, zap.Error(err))...)
	return models.NewError(models.ErrInternal, "%s", msg)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func lockOrder(ctx context.Context, tx db.Tx, id string) (*models.Order, error) {
	o, err := tx.LockOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, models.NewError(models.ErrOrderNotFound, "Order %s not found", id)
	}
	return o, nil
}

func lockInventory(ctx context.Context, tx db.Tx, productID string) (*models.InventoryRecord, error) {
	rec, err := tx.LockInventory(ctx, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, models.NewError(models.ErrInventoryNotFound, "Inventory not found for product %s", productID)
	}
	return rec, nil
}

func releaseItems(ctx context.Context, tx db.Tx, items []models.OrderItem, actorID string, at time.Time) error {
	ids, qty := productQuantities(items)
	for _, id := range ids {
		rec, err := lockInventory(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := rec.Release(qty[id], at)
		if err != nil {
			return err
		}
		next.UpdatedBy = actorID
		if err := tx.UpdateInventory(ctx, next); err != nil {
			return err
		}
	}
	return nil
}
