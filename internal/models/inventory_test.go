package models

import (
	"math/rand"
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func record(available, reserved int) InventoryRecord {
	r := NewInventoryRecord("prod-1", DefaultReorderLevel, testNow)
	r.AvailableQuantity = available
	r.ReservedQuantity = reserved
	return r
}

func TestReserveMovesUnits(t *testing.T) {
	r, err := record(100, 0).Reserve(30, testNow)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if r.AvailableQuantity != 70 || r.ReservedQuantity != 30 {
		t.Errorf("Expected {70 30}, got {%d %d}", r.AvailableQuantity, r.ReservedQuantity)
	}
	if r.TotalQuantity() != 100 {
		t.Errorf("Expected total 100, got %d", r.TotalQuantity())
	}
}

func TestReserveBoundary(t *testing.T) {
	r, err := record(5, 0).Reserve(5, testNow)
	if err != nil {
		t.Fatalf("Reserve of exactly available: %v", err)
	}
	if r.AvailableQuantity != 0 || r.ReservedQuantity != 5 {
		t.Errorf("Expected {0 5}, got {%d %d}", r.AvailableQuantity, r.ReservedQuantity)
	}

	orig := record(5, 0)
	_, err = orig.Reserve(6, testNow)
	if !IsKind(err, ErrInsufficientStock) {
		t.Fatalf("Expected insufficient_stock, got %v", err)
	}
	if !strings.Contains(err.Error(), "Available: 5, Requested: 6") {
		t.Errorf("Unexpected message %q", err.Error())
	}
	if orig.AvailableQuantity != 5 || orig.ReservedQuantity != 0 {
		t.Errorf("Receiver mutated: %+v", orig)
	}
}

func TestNonPositiveQuantitiesRejected(t *testing.T) {
	r := record(10, 10)
	ops := map[string]func(int) error{
		"add":     func(q int) error { _, err := r.AddStock(q, "", testNow); return err },
		"reserve": func(q int) error { _, err := r.Reserve(q, testNow); return err },
		"release": func(q int) error { _, err := r.Release(q, testNow); return err },
		"confirm": func(q int) error { _, err := r.ConfirmStockOut(q, "", testNow); return err },
		"remove":  func(q int) error { _, err := r.RemoveStock(q, "", testNow); return err },
	}
	for name, op := range ops {
		for _, q := range []int{0, -1} {
			if err := op(q); !IsKind(err, ErrInvalidQuantity) {
				t.Errorf("%s(%d): expected invalid_quantity, got %v", name, q, err)
			}
		}
	}
}

func TestReleaseAndConfirm(t *testing.T) {
	r := record(70, 30)

	released, err := r.Release(30, testNow)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if released.AvailableQuantity != 100 || released.ReservedQuantity != 0 {
		t.Errorf("Expected {100 0}, got {%d %d}", released.AvailableQuantity, released.ReservedQuantity)
	}

	if _, err := r.Release(31, testNow); !IsKind(err, ErrInvalidRelease) {
		t.Errorf("Expected invalid_release, got %v", err)
	}

	confirmed, err := r.ConfirmStockOut(30, "ORD-250314-0001", testNow)
	if err != nil {
		t.Fatalf("ConfirmStockOut: %v", err)
	}
	if confirmed.AvailableQuantity != 70 || confirmed.ReservedQuantity != 0 {
		t.Errorf("Expected {70 0}, got {%d %d}", confirmed.AvailableQuantity, confirmed.ReservedQuantity)
	}
	if confirmed.LastStockOut == nil || confirmed.LastStockOut.Quantity != 30 {
		t.Errorf("Expected last stock out of 30, got %+v", confirmed.LastStockOut)
	}

	if _, err := r.ConfirmStockOut(31, "", testNow); !IsKind(err, ErrInvalidConfirm) {
		t.Errorf("Expected invalid_confirm, got %v", err)
	}
}

func TestAdjust(t *testing.T) {
	r := record(10, 0)

	if _, err := r.Adjust(-11, "count", testNow); !IsKind(err, ErrNegativeStock) {
		t.Errorf("Expected negative_stock, got %v", err)
	}
	if _, err := r.Adjust(5, "", testNow); !IsKind(err, ErrValidation) {
		t.Errorf("Expected validation error for missing notes, got %v", err)
	}
	if _, err := r.Adjust(0, "noop", testNow); !IsKind(err, ErrInvalidQuantity) {
		t.Errorf("Expected invalid_quantity for zero delta, got %v", err)
	}

	down, err := r.Adjust(-10, "spillage", testNow)
	if err != nil {
		t.Fatalf("Adjust: %v", err)
	}
	if down.AvailableQuantity != 0 {
		t.Errorf("Expected 0 available, got %d", down.AvailableQuantity)
	}
}

func TestTransformsStampUpdatedAt(t *testing.T) {
	later := testNow.Add(2 * time.Hour)
	r := record(50, 20)

	ops := map[string]func() (InventoryRecord, error){
		"add":     func() (InventoryRecord, error) { return r.AddStock(5, "PO-9", later) },
		"reserve": func() (InventoryRecord, error) { return r.Reserve(5, later) },
		"release": func() (InventoryRecord, error) { return r.Release(5, later) },
		"confirm": func() (InventoryRecord, error) { return r.ConfirmStockOut(5, "ORD-250314-0002", later) },
		"remove":  func() (InventoryRecord, error) { return r.RemoveStock(5, "manual", later) },
		"adjust":  func() (InventoryRecord, error) { return r.Adjust(-5, "damaged drum", later) },
		"reorder": func() (InventoryRecord, error) { return r.SetReorderLevel(30, later) },
	}
	for name, op := range ops {
		next, err := op()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if !next.UpdatedAt.Equal(later) {
			t.Errorf("%s: expected UpdatedAt %v, got %v", name, later, next.UpdatedAt)
		}
	}
	if !r.UpdatedAt.Equal(testNow) {
		t.Errorf("Receiver mutated: UpdatedAt %v", r.UpdatedAt)
	}
}

func TestAddStockClearsAlert(t *testing.T) {
	r := record(0, 0)
	r.LowStockAlertSent = true

	r, err := r.AddStock(40, "PO-7", testNow)
	if err != nil {
		t.Fatalf("AddStock: %v", err)
	}
	if r.LowStockAlertSent {
		t.Error("Expected alert flag cleared")
	}
	if r.LastStockIn == nil || r.LastStockIn.Reference != "PO-7" {
		t.Errorf("Expected last stock in PO-7, got %+v", r.LastStockIn)
	}
}

func TestLowStockBoundary(t *testing.T) {
	r := record(100, 0)
	if !r.IsLowStock() {
		t.Error("Expected 100 <= 100 to be low stock")
	}
	r.AvailableQuantity = 101
	if r.IsLowStock() {
		t.Error("Expected 101 not to be low stock")
	}
}

func TestSetReorderLevel(t *testing.T) {
	r := record(50, 0)
	r.LowStockAlertSent = true
	r, err := r.SetReorderLevel(20, testNow)
	if err != nil {
		t.Fatalf("SetReorderLevel: %v", err)
	}
	if r.ReorderLevel != 20 || r.LowStockAlertSent {
		t.Errorf("Unexpected record %+v", r)
	}
	if _, err := r.SetReorderLevel(-1, testNow); !IsKind(err, ErrValidation) {
		t.Errorf("Expected validation error, got %v", err)
	}
}

// Any interleaving of ledger operations keeps both counters non-negative and
// only stock-in, stock-out and adjustment change the on-hand total.
func TestRandomSequencesKeepInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	r := record(0, 0)
	total := 0

	for i := 0; i < 5000; i++ {
		qty := rng.Intn(20) + 1
		var next InventoryRecord
		var err error
		delta := 0

		switch rng.Intn(6) {
		case 0:
			next, err = r.AddStock(qty, "", testNow)
			delta = qty
		case 1:
			next, err = r.Reserve(qty, testNow)
		case 2:
			next, err = r.Release(qty, testNow)
		case 3:
			next, err = r.ConfirmStockOut(qty, "", testNow)
			delta = -qty
		case 4:
			next, err = r.RemoveStock(qty, "", testNow)
			delta = -qty
		case 5:
			if rng.Intn(2) == 0 {
				qty = -qty
			}
			next, err = r.Adjust(qty, "cycle count", testNow)
			delta = qty
		}

		if err != nil {
			continue
		}
		r = next
		total += delta

		if r.AvailableQuantity < 0 || r.ReservedQuantity < 0 {
			t.Fatalf("Step %d: negative counters %+v", i, r)
		}
		if r.TotalQuantity() != total {
			t.Fatalf("Step %d: expected total %d, got %d", i, total, r.TotalQuantity())
		}
	}
}
