package db

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

func TestProductCreateInsertsInventory(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewProductRepository(database)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO inventory`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	level := 25
	p, err := repo.Create(context.Background(), models.CreateProductRequest{
		Name:         "Mustard Oil 1L",
		SKU:          " mst-1l ",
		Category:     models.CategoryMustardOil,
		BasePrice:    decimal.RequireFromString("4.75"),
		ReorderLevel: &level,
	}, models.DefaultReorderLevel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.SKU != "MST-1L" || p.Unit != "L" || !p.IsActive {
		t.Errorf("unexpected product %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProductCreateDuplicateSKU(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewProductRepository(database)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO products`).WillReturnError(&pq.Error{Code: "23505", Constraint: "products_sku_key"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), models.CreateProductRequest{
		Name: "Mustard Oil 1L", SKU: "MST-1L", Category: models.CategoryMustardOil,
	}, models.DefaultReorderLevel)
	if !models.IsKind(err, models.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProductGetByIDMissing(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewProductRepository(database)

	mock.ExpectQuery(`FROM products WHERE id = \$1`).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	p, err := repo.GetByID(context.Background(), "nope")
	if err != nil || p != nil {
		t.Fatalf("expected nil, nil; got %v, %v", p, err)
	}
}

func TestProductDeleteDeactivates(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewProductRepository(database)

	mock.ExpectExec(`UPDATE products SET is_active = FALSE`).WithArgs(sqlmock.AnyArg(), "prod-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE products SET is_active = FALSE`).WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "prod-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(context.Background(), "missing"); !models.IsKind(err, models.ErrProductNotFound) {
		t.Fatalf("expected product_not_found, got %v", err)
	}
}

func TestNotificationMarkReadMissing(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewNotificationRepository(database)

	mock.ExpectQuery(`UPDATE notifications SET is_read = TRUE`).
		WithArgs(sqlmock.AnyArg(), "n-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.MarkRead(context.Background(), "n-1", "user-1")
	if !models.IsKind(err, models.ErrNotificationNotFound) {
		t.Fatalf("expected notification_not_found, got %v", err)
	}
}

func TestNotificationCreateBatch(t *testing.T) {
	database, mock := newMockDB(t)
	repo := NewNotificationRepository(database)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO notifications`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(),
		models.Notification{ID: "n-1", UserID: "admin-1", Message: "a", Type: models.NotificationNewOrder},
		models.Notification{ID: "n-2", UserID: "admin-2", Message: "a", Type: models.NotificationNewOrder,
			Metadata: []byte(`{"order_number":"ORD-250314-0001"}`)},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListAdminIDs(t *testing.T) {
	database, mock := newMockDB(t)
	dir := NewUserDirectory(database)

	mock.ExpectQuery(`SELECT id FROM users WHERE role = 'admin'`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("admin-1").AddRow("admin-2"))

	ids, err := dir.ListAdminIDs(context.Background())
	if err != nil {
		t.Fatalf("ListAdminIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "admin-1" {
		t.Errorf("unexpected ids %v", ids)
	}
}
