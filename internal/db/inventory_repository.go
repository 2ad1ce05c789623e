package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const inventoryColumns = `
	i.id, i.product_id, i.available_quantity, i.reserved_quantity, i.reorder_level,
	i.last_stock_in_date, i.last_stock_in_quantity, i.last_stock_in_reference,
	i.last_stock_out_date, i.last_stock_out_quantity, i.last_stock_out_reference,
	i.low_stock_alert_sent, i.updated_by, i.notes, i.created_at, i.updated_at`

const inventoryViewColumns = inventoryColumns + `,
	p.name AS product_name, p.sku, p.category, p.unit`

type inventoryRow struct {
	ID                    string     `db:"id"`
	ProductID             string     `db:"product_id"`
	AvailableQuantity     int        `db:"available_quantity"`
	ReservedQuantity      int        `db:"reserved_quantity"`
	ReorderLevel          int        `db:"reorder_level"`
	LastStockInDate       *time.Time `db:"last_stock_in_date"`
	LastStockInQuantity   int        `db:"last_stock_in_quantity"`
	LastStockInReference  string     `db:"last_stock_in_reference"`
	LastStockOutDate      *time.Time `db:"last_stock_out_date"`
	LastStockOutQuantity  int        `db:"last_stock_out_quantity"`
	LastStockOutReference string     `db:"last_stock_out_reference"`
	LowStockAlertSent     bool       `db:"low_stock_alert_sent"`
	UpdatedBy             string     `db:"updated_by"`
	Notes                 string     `db:"notes"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

type inventoryViewRow struct {
	inventoryRow
	ProductName string `db:"product_name"`
	SKU         string `db:"sku"`
	Category    string `db:"category"`
	Unit        string `db:"unit"`
}

func toInventoryRow(r models.InventoryRecord) inventoryRow {
	row := inventoryRow{
		ID:                r.ID,
		ProductID:         r.ProductID,
		AvailableQuantity: r.AvailableQuantity,
		ReservedQuantity:  r.ReservedQuantity,
		ReorderLevel:      r.ReorderLevel,
		LowStockAlertSent: r.LowStockAlertSent,
		UpdatedBy:         r.UpdatedBy,
		Notes:             r.Notes,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if in := r.LastStockIn; in != nil {
		row.LastStockInDate = &in.Date
		row.LastStockInQuantity = in.Quantity
		row.LastStockInReference = in.Reference
	}
	if out := r.LastStockOut; out != nil {
		row.LastStockOutDate = &out.Date
		row.LastStockOutQuantity = out.Quantity
		row.LastStockOutReference = out.Reference
	}
	return row
}

func (row inventoryRow) record() models.InventoryRecord {
	r := models.InventoryRecord{
		ID:                row.ID,
		ProductID:         row.ProductID,
		AvailableQuantity: row.AvailableQuantity,
		ReservedQuantity:  row.ReservedQuantity,
		ReorderLevel:      row.ReorderLevel,
		LowStockAlertSent: row.LowStockAlertSent,
		UpdatedBy:         row.UpdatedBy,
		Notes:             row.Notes,
		CreatedAt:         row.CreatedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.LastStockInDate != nil {
		r.LastStockIn = &models.StockMovement{
			Date:      *row.LastStockInDate,
			Quantity:  row.LastStockInQuantity,
			Reference: row.LastStockInReference,
		}
	}
	if row.LastStockOutDate != nil {
		r.LastStockOut = &models.StockMovement{
			Date:      *row.LastStockOutDate,
			Quantity:  row.LastStockOutQuantity,
			Reference: row.LastStockOutReference,
		}
	}
	return r
}

func (row inventoryViewRow) view() models.InventoryView {
	return models.InventoryView{
		InventoryRecord: row.record(),
		ProductName:     row.ProductName,
		SKU:             row.SKU,
		Category:        row.Category,
		Unit:            row.Unit,
	}
}

// LockInventory reads and row-locks the record of a product.
func (t *pgTx) LockInventory(ctx context.Context, productID string) (*models.InventoryRecord, error) {
	var row inventoryRow
	query := `SELECT ` + inventoryColumns + ` FROM inventory i WHERE i.product_id = $1 FOR UPDATE`

	err := t.tx.GetContext(ctx, &row, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock inventory: %w", err)
	}
	rec := row.record()
	return &rec, nil
}

func (t *pgTx) InsertInventory(ctx context.Context, rec models.InventoryRecord) error {
	return insertInventory(ctx, t.tx, rec)
}

func insertInventory(ctx context.Context, e sqlx.ExtContext, rec models.InventoryRecord) error {
	query := `
		INSERT INTO inventory (
			id, product_id, available_quantity, reserved_quantity, reorder_level,
			last_stock_in_date, last_stock_in_quantity, last_stock_in_reference,
			last_stock_out_date, last_stock_out_quantity, last_stock_out_reference,
			low_stock_alert_sent, updated_by, notes, created_at, updated_at
		) VALUES (
			:id, :product_id, :available_quantity, :reserved_quantity, :reorder_level,
			:last_stock_in_date, :last_stock_in_quantity, :last_stock_in_reference,
			:last_stock_out_date, :last_stock_out_quantity, :last_stock_out_reference,
			:low_stock_alert_sent, :updated_by, :notes, :created_at, :updated_at
		)`
	if _, err := sqlx.NamedExecContext(ctx, e, query, toInventoryRow(rec)); err != nil {
		return fmt.Errorf("failed to insert inventory: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateInventory(ctx context.Context, rec models.InventoryRecord) error {
	query := `
		UPDATE inventory SET
			available_quantity = :available_quantity,
			reserved_quantity = :reserved_quantity,
			reorder_level = :reorder_level,
			last_stock_in_date = :last_stock_in_date,
			last_stock_in_quantity = :last_stock_in_quantity,
			last_stock_in_reference = :last_stock_in_reference,
			last_stock_out_date = :last_stock_out_date,
			last_stock_out_quantity = :last_stock_out_quantity,
			last_stock_out_reference = :last_stock_out_reference,
			low_stock_alert_sent = :low_stock_alert_sent,
			updated_by = :updated_by,
			notes = :notes,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := t.tx.NamedExecContext(ctx, query, toInventoryRow(rec))
	if err != nil {
		return fmt.Errorf("failed to update inventory: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("inventory %s not found", rec.ID)
	}
	return nil
}

// lowStockPredicate is written against the expression of
// idx_inventory_low_stock so the planner can use it.
const lowStockPredicate = "(i.available_quantity - i.reorder_level) <= 0"

// GetInventory returns the record of a product joined with its catalog data.
func (s *PostgresStore) GetInventory(ctx context.Context, productID string) (*models.InventoryView, error) {
	var row inventoryViewRow
	query := `SELECT ` + inventoryViewColumns + `
		FROM inventory i JOIN products p ON p.id = i.product_id
		WHERE i.product_id = $1`

	err := s.db.GetContext(ctx, &row, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	v := row.view()
	return &v, nil
}

func (s *PostgresStore) ListInventory(ctx context.Context, f models.InventoryFilter) (models.Page[models.InventoryView], error) {
	f = f.Normalize()
	page := models.Page[models.InventoryView]{Page: f.Page, Limit: f.Limit}

	where := ""
	if f.LowStockOnly {
		where = " WHERE " + lowStockPredicate
	}

	countQuery := `SELECT COUNT(*) FROM inventory i` + where
	if err := s.db.GetContext(ctx, &page.Total, countQuery); err != nil {
		return page, fmt.Errorf("failed to count inventory: %w", err)
	}

	query := `SELECT ` + inventoryViewColumns + `
		FROM inventory i JOIN products p ON p.id = i.product_id` + where + `
		ORDER BY i.updated_at DESC LIMIT $1 OFFSET $2`

	var rows []inventoryViewRow
	if err := s.db.SelectContext(ctx, &rows, query, f.Limit, models.Offset(f.Page, f.Limit)); err != nil {
		return page, fmt.Errorf("failed to query inventory: %w", err)
	}

	page.Items = make([]models.InventoryView, 0, len(rows))
	for _, r := range rows {
		page.Items = append(page.Items, r.view())
	}
	return page, nil
}

// ListLowStock returns every record at or below its reorder level, lowest
// available first.
func (s *PostgresStore) ListLowStock(ctx context.Context) ([]models.InventoryView, error) {
	query := `SELECT ` + inventoryViewColumns + `
		FROM inventory i JOIN products p ON p.id = i.product_id
		WHERE ` + lowStockPredicate + `
		ORDER BY i.available_quantity ASC`

	var rows []inventoryViewRow
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to query low stock: %w", err)
	}

	views := make([]models.InventoryView, 0, len(rows))
	for _, r := range rows {
		views = append(views, r.view())
	}
	return views, nil
}
