package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/prudhivi99/oil-wholesale/internal/db"
	"github.com/prudhivi99/oil-wholesale/internal/models"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu       sync.Mutex
	orders   []models.OrderEvent
	lowStock []models.LowStockEvent
}

func (n *fakeNotifier) OrderEvent(_ context.Context, e models.OrderEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, e)
}

func (n *fakeNotifier) LowStock(_ context.Context, e models.LowStockEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowStock = append(n.lowStock, e)
}

type testEnv struct {
	store     *db.MemoryStore
	orders    *OrderService
	inventory *InventoryService
	notifier  *fakeNotifier
}

const (
	productID    = "prod-sunflower"
	otherProduct = "prod-olive"
	wholesaler   = "ws-1"
	admin        = "admin-1"
)

func setupTest(t *testing.T) *testEnv {
	t.Helper()

	store := db.NewMemoryStore()
	store.PutProduct(models.Product{
		ID: productID, Name: "Sunflower Oil 5L", SKU: "SUN-5L",
		Category: models.CategorySunflowerOil, BasePrice: decimal.RequireFromString("12.50"),
		Unit: "L", IsActive: true,
	})
	store.PutProduct(models.Product{
		ID: otherProduct, Name: "Olive Oil 1L", SKU: "OLV-1L",
		Category: models.CategoryOliveOil, BasePrice: decimal.RequireFromString("8.00"),
		Unit: "L", IsActive: true,
	})
	store.PutProduct(models.Product{
		ID: "prod-retired", Name: "Palm Oil 20L", SKU: "PLM-20L",
		Category: models.CategoryPalmOil, BasePrice: decimal.RequireFromString("30"),
		Unit: "L", IsActive: false,
	})
	store.PutUser(models.User{ID: admin, Name: "Admin", Role: models.RoleAdmin, Status: "active"})
	store.PutUser(models.User{ID: wholesaler, Name: "Acme Foods", Role: models.RoleWholesaler, Status: "approved"})

	notifier := &fakeNotifier{}
	clock := func() time.Time { return testNow }

	orders := NewOrderService(store, store, store, notifier, zap.NewNop())
	orders.now = clock
	inventory := NewInventoryService(store, store, store, notifier, 20, zap.NewNop())
	inventory.now = clock

	return &testEnv{store: store, orders: orders, inventory: inventory, notifier: notifier}
}

func (e *testEnv) stockIn(t *testing.T, product string, qty int) {
	t.Helper()
	_, err := e.inventory.StockIn(context.Background(), StockIn{ProductID: product, Quantity: qty, PerformedBy: admin})
	if err != nil {
		t.Fatalf("stock in %s: %v", product, err)
	}
}

func (e *testEnv) place(t *testing.T, product string, qty int) *models.Order {
	t.Helper()
	o, err := e.orders.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID:   wholesaler,
		WholesalerName: "Acme Foods",
		Items:          []OrderItemInput{{ProductID: product, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return o
}

func (e *testEnv) assertStock(t *testing.T, product string, available, reserved int) {
	t.Helper()
	view, err := e.inventory.GetInventory(context.Background(), product)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if view.AvailableQuantity != available || view.ReservedQuantity != reserved {
		t.Fatalf("expected {available:%d reserved:%d}, got {available:%d reserved:%d}",
			available, reserved, view.AvailableQuantity, view.ReservedQuantity)
	}
}

func (e *testEnv) transactions(t *testing.T, typ models.TransactionType) []models.InventoryTransaction {
	t.Helper()
	page, err := e.inventory.ListTransactions(context.Background(), models.TransactionFilter{Type: typ, Limit: 100})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	return page.Items
}

func TestPlaceOrderReservesStock(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)

	o := env.place(t, productID, 30)

	if o.Status != models.StatusPending {
		t.Fatalf("expected pending, got %s", o.Status)
	}
	if o.OrderNumber != "ORD-250314-0001" {
		t.Errorf("unexpected order number %s", o.OrderNumber)
	}
	if !o.TotalAmount.Equal(decimal.RequireFromString("375")) {
		t.Errorf("expected total 375, got %s", o.TotalAmount)
	}
	if o.Items[0].ProductName != "Sunflower Oil 5L" || o.Items[0].SKU != "SUN-5L" {
		t.Errorf("product snapshot missing: %+v", o.Items[0])
	}
	env.assertStock(t, productID, 70, 30)

	if len(env.notifier.orders) != 1 {
		t.Fatalf("expected 1 order event, got %d", len(env.notifier.orders))
	}
	ev := env.notifier.orders[0]
	if ev.Type != models.EventOrderPlaced || ev.WholesalerName != "Acme Foods" {
		t.Errorf("unexpected event %+v", ev)
	}
	if len(ev.Recipients) != 1 || ev.Recipients[0] != admin {
		t.Errorf("expected admins as recipients, got %v", ev.Recipients)
	}

	second := env.place(t, productID, 1)
	if second.OrderNumber != "ORD-250314-0002" {
		t.Errorf("expected second order number ORD-250314-0002, got %s", second.OrderNumber)
	}
}

func TestApproveOrderConfirmsReservation(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 30)

	approved, err := env.orders.ApproveOrder(context.Background(), ApproveOrder{OrderID: o.ID, AdminID: admin})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != models.StatusApproved || approved.ApprovedBy != admin || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved order %+v", approved)
	}
	env.assertStock(t, productID, 70, 0)

	entries := env.transactions(t, models.TxStockOut)
	if len(entries) != 1 {
		t.Fatalf("expected 1 stock-out entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Quantity != 30 || e.PreviousQuantity != 100 || e.NewQuantity != 70 || e.OrderID != o.ID {
		t.Errorf("unexpected stock-out entry %+v", e)
	}

	last := env.notifier.orders[len(env.notifier.orders)-1]
	if last.Type != models.EventOrderApproved || last.Recipients[0] != wholesaler {
		t.Errorf("unexpected event %+v", last)
	}

	if _, err := env.orders.ApproveOrder(context.Background(), ApproveOrder{OrderID: o.ID, AdminID: admin}); !models.IsKind(err, models.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid_state_transition on second approval, got %v", err)
	}
	env.assertStock(t, productID, 70, 0)
}

func TestRejectOrderReleasesReservation(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 30)

	if _, err := env.orders.RejectOrder(context.Background(), RejectOrder{OrderID: o.ID, AdminID: admin}); !models.IsKind(err, models.ErrValidation) {
		t.Fatalf("expected validation error without reason, got %v", err)
	}
	env.assertStock(t, productID, 70, 30)

	rejected, err := env.orders.RejectOrder(context.Background(), RejectOrder{OrderID: o.ID, AdminID: admin, Reason: "out of promo"})
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.StatusRejected || rejected.RejectionReason != "out of promo" {
		t.Fatalf("unexpected rejected order %+v", rejected)
	}
	env.assertStock(t, productID, 100, 0)

	if n := len(env.transactions(t, models.TxStockOut)); n != 0 {
		t.Errorf("reject must not log stock-out, got %d entries", n)
	}
}

func TestCancelApprovedOrderRestocks(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 30)
	if _, err := env.orders.ApproveOrder(context.Background(), ApproveOrder{OrderID: o.ID, AdminID: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	cancelled, err := env.orders.CancelOrder(context.Background(), CancelOrder{
		OrderID: o.ID,
		Actor:   models.Actor{ID: wholesaler, Role: models.RoleWholesaler},
		Reason:  "changed mind",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancelled order %+v", cancelled)
	}
	env.assertStock(t, productID, 100, 0)

	returns := env.transactions(t, models.TxReturn)
	if len(returns) != 1 {
		t.Fatalf("expected 1 return entry, got %d", len(returns))
	}
	if r := returns[0]; r.Quantity != 30 || r.PreviousQuantity != 70 || r.NewQuantity != 100 {
		t.Errorf("unexpected return entry %+v", r)
	}
}

func TestCancelPendingOrderReleases(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 30)

	_, err := env.orders.CancelOrder(context.Background(), CancelOrder{
		OrderID: o.ID,
		Actor:   models.Actor{ID: "ws-2", Role: models.RoleWholesaler},
		Reason:  "not mine",
	})
	if !models.IsKind(err, models.ErrForbidden) {
		t.Fatalf("expected forbidden for another wholesaler, got %v", err)
	}
	env.assertStock(t, productID, 70, 30)

	if _, err := env.orders.CancelOrder(context.Background(), CancelOrder{
		OrderID: o.ID,
		Actor:   models.Actor{ID: admin, Role: models.RoleAdmin},
		Reason:  "duplicate order",
	}); err != nil {
		t.Fatalf("admin cancel: %v", err)
	}
	env.assertStock(t, productID, 100, 0)

	if n := len(env.transactions(t, models.TxReturn)); n != 0 {
		t.Errorf("pending cancel must not log a return, got %d", n)
	}
}

func TestCancelShippedOrderFails(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 10)
	ctx := context.Background()

	if _, err := env.orders.ApproveOrder(ctx, ApproveOrder{OrderID: o.ID, AdminID: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if _, err := env.orders.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: models.StatusShipped}); err != nil {
		t.Fatalf("ship: %v", err)
	}

	_, err := env.orders.CancelOrder(ctx, CancelOrder{OrderID: o.ID, Actor: models.Actor{ID: admin, Role: models.RoleAdmin}, Reason: "late"})
	if !models.IsKind(err, models.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid_state_transition, got %v", err)
	}
	env.assertStock(t, productID, 90, 0)
}

func TestUpdateOrderStatus(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 10)
	ctx := context.Background()

	if _, err := env.orders.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: models.StatusShipped}); !models.IsKind(err, models.ErrInvalidStateTransition) {
		t.Fatalf("expected pending -> shipped to fail, got %v", err)
	}
	if _, err := env.orders.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: models.StatusApproved}); !models.IsKind(err, models.ErrInvalidStateTransition) {
		t.Fatalf("expected approval through status update to fail, got %v", err)
	}
	if _, err := env.orders.ApproveOrder(ctx, ApproveOrder{OrderID: o.ID, AdminID: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	steps := []models.OrderStatus{models.StatusProcessing, models.StatusShipped, models.StatusDelivered}
	var current *models.Order
	for _, st := range steps {
		var err error
		current, err = env.orders.UpdateOrderStatus(ctx, UpdateOrderStatus{OrderID: o.ID, Status: st})
		if err != nil {
			t.Fatalf("update to %s: %v", st, err)
		}
		if current.Status != st {
			t.Fatalf("expected %s, got %s", st, current.Status)
		}
	}
	if current.ShippedAt == nil || current.DeliveredAt == nil || current.FulfilledAt == nil {
		t.Errorf("fulfilment timestamps not set: %+v", current)
	}
	env.assertStock(t, productID, 90, 0)

	last := env.notifier.orders[len(env.notifier.orders)-1]
	if last.Type != models.EventOrderStatusChanged || last.Status != models.StatusDelivered {
		t.Errorf("unexpected event %+v", last)
	}
}

func TestStockInLogsTransaction(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	o := env.place(t, productID, 30)
	if _, err := env.orders.ApproveOrder(context.Background(), ApproveOrder{OrderID: o.ID, AdminID: admin}); err != nil {
		t.Fatalf("approve: %v", err)
	}

	res, err := env.inventory.StockIn(context.Background(), StockIn{
		ProductID:   productID,
		Quantity:    50,
		SupplierID:  "sup-1",
		UnitCost:    decimal.NewNullDecimal(decimal.RequireFromString("2.00")),
		PerformedBy: admin,
	})
	if err != nil {
		t.Fatalf("stock in: %v", err)
	}
	if res.Inventory.AvailableQuantity != 120 {
		t.Fatalf("expected available 120, got %d", res.Inventory.AvailableQuantity)
	}
	tx := res.Transaction
	if tx.Type != models.TxStockIn || tx.Quantity != 50 || tx.PreviousQuantity != 70 || tx.NewQuantity != 120 {
		t.Errorf("unexpected entry %+v", tx)
	}
	if !tx.TotalCost.Valid || !tx.TotalCost.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected total cost 100, got %v", tx.TotalCost)
	}
	if n := len(env.transactions(t, models.TxStockIn)); n != 2 {
		t.Errorf("expected 2 stock-in entries, got %d", n)
	}
}

func TestStockInCreatesRecord(t *testing.T) {
	env := setupTest(t)
	ctx := context.Background()

	if _, err := env.inventory.StockIn(ctx, StockIn{ProductID: "missing", Quantity: 5}); !models.IsKind(err, models.ErrProductNotFound) {
		t.Fatalf("expected product_not_found, got %v", err)
	}
	if _, err := env.inventory.StockIn(ctx, StockIn{ProductID: productID, Quantity: 0}); !models.IsKind(err, models.ErrInvalidQuantity) {
		t.Fatalf("expected invalid_quantity, got %v", err)
	}

	res, err := env.inventory.StockIn(ctx, StockIn{ProductID: productID, Quantity: 5})
	if err != nil {
		t.Fatalf("stock in: %v", err)
	}
	if res.Inventory.ReorderLevel != 20 || res.Transaction.PreviousQuantity != 0 {
		t.Errorf("unexpected new record %+v / %+v", res.Inventory, res.Transaction)
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 70)

	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID: wholesaler,
		Items:        []OrderItemInput{{ProductID: productID, Quantity: 500}},
	})
	if !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available: 70, Requested: 500") {
		t.Errorf("unexpected message %q", err.Error())
	}
	env.assertStock(t, productID, 70, 0)

	page, err := env.orders.ListOrders(context.Background(), models.OrderFilter{})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if page.Total != 0 {
		t.Errorf("expected no orders, got %d", page.Total)
	}
	if len(env.notifier.orders) != 0 {
		t.Errorf("failed placement must not notify")
	}
}

func TestPlaceOrderIsAllOrNothing(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 5)
	env.stockIn(t, otherProduct, 100)

	// prod-olive is locked and reserved before prod-sunflower fails
	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID: wholesaler,
		Items: []OrderItemInput{
			{ProductID: productID, Quantity: 6},
			{ProductID: otherProduct, Quantity: 40},
		},
	})
	if !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	env.assertStock(t, productID, 5, 0)
	env.assertStock(t, otherProduct, 100, 0)

	o := env.place(t, otherProduct, 1)
	if o.OrderNumber != "ORD-250314-0001" {
		t.Errorf("expected ORD-250314-0001, got %s", o.OrderNumber)
	}
}

func TestPlaceOrderAggregatesDuplicateLines(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 50)

	_, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID: wholesaler,
		Items: []OrderItemInput{
			{ProductID: productID, Quantity: 30},
			{ProductID: productID, Quantity: 30},
		},
	})
	if !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient_stock for combined quantity, got %v", err)
	}

	o, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID: wholesaler,
		Items: []OrderItemInput{
			{ProductID: productID, Quantity: 20},
			{ProductID: productID, Quantity: 25},
		},
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if len(o.Items) != 2 {
		t.Errorf("expected lines preserved, got %d", len(o.Items))
	}
	env.assertStock(t, productID, 5, 45)
}

func TestPlaceOrderValidation(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)

	tests := []struct {
		name  string
		items []OrderItemInput
		kind  models.ErrorKind
	}{
		{"no items", nil, models.ErrValidation},
		{"zero quantity", []OrderItemInput{{ProductID: productID, Quantity: 0}}, models.ErrInvalidQuantity},
		{"unknown product", []OrderItemInput{{ProductID: "nope", Quantity: 1}}, models.ErrProductNotFound},
		{"inactive product", []OrderItemInput{{ProductID: "prod-retired", Quantity: 1}}, models.ErrProductInactive},
		{"no inventory", []OrderItemInput{{ProductID: otherProduct, Quantity: 1}}, models.ErrNoInventory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{WholesalerID: wholesaler, Items: tt.items})
			if !models.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
	env.assertStock(t, productID, 100, 0)
}

func TestConcurrentPlaceOrdersNeverOversell(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers = map[string]bool{}
		failed  int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := env.orders.PlaceOrder(context.Background(), PlaceOrder{
				WholesalerID: wholesaler,
				Items:        []OrderItemInput{{ProductID: productID, Quantity: 10}},
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !models.IsKind(err, models.ErrInsufficientStock) {
					t.Errorf("unexpected error: %v", err)
				}
				failed++
				return
			}
			numbers[o.OrderNumber] = true
		}()
	}
	wg.Wait()

	if len(numbers) != 10 || failed != 15 {
		t.Fatalf("expected 10 unique orders and 15 failures, got %d and %d", len(numbers), failed)
	}
	env.assertStock(t, productID, 0, 100)
}

func TestStockOutLowStockAlertOnce(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 100)
	ctx := context.Background()

	stockOut := func(qty int) *StockResult {
		t.Helper()
		res, err := env.inventory.StockOut(ctx, StockOut{ProductID: productID, Quantity: qty, PerformedBy: admin})
		if err != nil {
			t.Fatalf("stock out %d: %v", qty, err)
		}
		return res
	}

	stockOut(50)
	if len(env.notifier.lowStock) != 0 {
		t.Fatalf("no alert expected above reorder level")
	}

	res := stockOut(35)
	if !res.Inventory.LowStockAlertSent {
		t.Fatalf("expected alert flag set at available %d", res.Inventory.AvailableQuantity)
	}
	if len(env.notifier.lowStock) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(env.notifier.lowStock))
	}
	alert := env.notifier.lowStock[0]
	if alert.SKU != "SUN-5L" || alert.AvailableQuantity != 15 || alert.ReorderLevel != 20 || alert.Recipients[0] != admin {
		t.Errorf("unexpected alert %+v", alert)
	}

	stockOut(5)
	if len(env.notifier.lowStock) != 1 {
		t.Fatalf("alert must fire once, got %d", len(env.notifier.lowStock))
	}

	env.stockIn(t, productID, 50)
	stockOut(45)
	if len(env.notifier.lowStock) != 2 {
		t.Fatalf("expected alert re-armed by stock in, got %d", len(env.notifier.lowStock))
	}

	if _, err := env.inventory.StockOut(ctx, StockOut{ProductID: productID, Quantity: 1000}); !models.IsKind(err, models.ErrInsufficientStock) {
		t.Fatalf("expected insufficient_stock, got %v", err)
	}
	if _, err := env.inventory.StockOut(ctx, StockOut{ProductID: otherProduct, Quantity: 1}); !models.IsKind(err, models.ErrInventoryNotFound) {
		t.Fatalf("expected inventory_not_found, got %v", err)
	}
}

func TestAdjustInventory(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 40)
	ctx := context.Background()

	_, err := env.inventory.AdjustInventory(ctx, AdjustInventory{ProductID: productID, Delta: -41, Notes: "count"})
	if !models.IsKind(err, models.ErrNegativeStock) {
		t.Fatalf("expected negative_stock, got %v", err)
	}
	if _, err := env.inventory.AdjustInventory(ctx, AdjustInventory{ProductID: productID, Delta: 3}); !models.IsKind(err, models.ErrValidation) {
		t.Fatalf("expected validation error without notes, got %v", err)
	}

	res, err := env.inventory.AdjustInventory(ctx, AdjustInventory{ProductID: productID, Delta: -10, Notes: "damaged drums", PerformedBy: admin})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if res.Inventory.AvailableQuantity != 30 {
		t.Errorf("expected 30, got %d", res.Inventory.AvailableQuantity)
	}
	if tx := res.Transaction; tx.Type != models.TxAdjustment || tx.Quantity != 10 || tx.PreviousQuantity != 40 || tx.NewQuantity != 30 {
		t.Errorf("unexpected entry %+v", tx)
	}
}

func TestUpdateReorderLevel(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 30)
	ctx := context.Background()

	if _, err := env.inventory.StockOut(ctx, StockOut{ProductID: productID, Quantity: 15}); err != nil {
		t.Fatalf("stock out: %v", err)
	}

	level := 5
	rec, err := env.inventory.UpdateReorderLevel(ctx, UpdateReorderLevel{ProductID: productID, Level: &level})
	if err != nil {
		t.Fatalf("update reorder level: %v", err)
	}
	if rec.ReorderLevel != 5 || rec.LowStockAlertSent {
		t.Errorf("unexpected record %+v", rec)
	}

	low, err := env.inventory.ListLowStock(ctx)
	if err != nil {
		t.Fatalf("list low stock: %v", err)
	}
	if len(low) != 0 {
		t.Errorf("expected no low stock items, got %d", len(low))
	}

	negative := -1
	if _, err := env.inventory.UpdateReorderLevel(ctx, UpdateReorderLevel{ProductID: productID, Level: &negative}); !models.IsKind(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGetOrderAccess(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 10)
	o := env.place(t, productID, 1)
	ctx := context.Background()

	if _, err := env.orders.GetOrder(ctx, o.ID, models.Actor{ID: wholesaler, Role: models.RoleWholesaler}); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := env.orders.GetOrder(ctx, o.ID, models.Actor{ID: admin, Role: models.RoleAdmin}); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := env.orders.GetOrder(ctx, o.ID, models.Actor{ID: "ws-2", Role: models.RoleWholesaler}); !models.IsKind(err, models.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.orders.GetOrder(ctx, "missing", models.Actor{ID: admin, Role: models.RoleAdmin}); !models.IsKind(err, models.ErrOrderNotFound) {
		t.Fatalf("expected order_not_found, got %v", err)
	}

	pending, err := env.orders.ListPendingOrders(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if pending.Total != 1 || pending.Items[0].ID != o.ID {
		t.Errorf("unexpected pending page %+v", pending)
	}
}

type failingStore struct {
	db.Store
	err error
}

func (s failingStore) WithinTx(context.Context, func(tx db.Tx) error) error {
	return s.err
}

func TestStoreErrorsAreHidden(t *testing.T) {
	env := setupTest(t)
	env.stockIn(t, productID, 10)

	svc := NewOrderService(failingStore{Store: env.store, err: errors.New("pq: connection reset")}, env.store, env.store, env.notifier, zap.NewNop())
	_, err := svc.PlaceOrder(context.Background(), PlaceOrder{
		WholesalerID: wholesaler,
		Items:        []OrderItemInput{{ProductID: productID, Quantity: 1}},
	})
	if !models.IsKind(err, models.ErrInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if strings.Contains(err.Error(), "pq") {
		t.Errorf("driver detail leaked: %q", err.Error())
	}

	domain := models.NewError(models.ErrOrderNotFound, "Order x not found")
	svc = NewOrderService(failingStore{Store: env.store, err: fmt.Errorf("wrapped: %w", domain)}, env.store, env.store, env.notifier, zap.NewNop())
	_, err = svc.ApproveOrder(context.Background(), ApproveOrder{OrderID: "x", AdminID: admin})
	if !models.IsKind(err, models.ErrOrderNotFound) {
		t.Fatalf("expected domain error to pass through, got %v", err)
	}
}
