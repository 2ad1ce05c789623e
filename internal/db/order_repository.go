package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/prudhivi99/oil-wholesale/internal/models"
)

const orderColumns = `
	id, order_number, wholesaler_id, total_amount, order_status, payment_status,
	shipping_address, notes, approved_by, approved_at, rejection_reason,
	cancellation_reason, cancelled_at, shipped_at, delivered_at, fulfilled_at,
	created_at, updated_at`

type orderRow struct {
	ID                 string          `db:"id"`
	OrderNumber        string          `db:"order_number"`
	WholesalerID       string          `db:"wholesaler_id"`
	TotalAmount        decimal.Decimal `db:"total_amount"`
	Status             string          `db:"order_status"`
	PaymentStatus      string          `db:"payment_status"`
	ShippingAddress    sql.NullString  `db:"shipping_address"`
	Notes              string          `db:"notes"`
	ApprovedBy         string          `db:"approved_by"`
	ApprovedAt         *time.Time      `db:"approved_at"`
	RejectionReason    string          `db:"rejection_reason"`
	CancellationReason string          `db:"cancellation_reason"`
	CancelledAt        *time.Time      `db:"cancelled_at"`
	ShippedAt          *time.Time      `db:"shipped_at"`
	DeliveredAt        *time.Time      `db:"delivered_at"`
	FulfilledAt        *time.Time      `db:"fulfilled_at"`
	CreatedAt          time.Time       `db:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at"`
}

type orderItemRow struct {
	OrderID     string          `db:"order_id"`
	LineNo      int             `db:"line_no"`
	ProductID   string          `db:"product_id"`
	ProductName string          `db:"product_name"`
	SKU         string          `db:"sku"`
	Quantity    int             `db:"quantity"`
	UnitPrice   decimal.Decimal `db:"unit_price"`
	Subtotal    decimal.Decimal `db:"subtotal"`
}

func toOrderRow(o models.Order) (orderRow, error) {
	row := orderRow{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		WholesalerID:       o.WholesalerID,
		TotalAmount:        o.TotalAmount,
		Status:             string(o.Status),
		PaymentStatus:      string(o.PaymentStatus),
		Notes:              o.Notes,
		ApprovedBy:         o.ApprovedBy,
		ApprovedAt:         o.ApprovedAt,
		RejectionReason:    o.RejectionReason,
		CancellationReason: o.CancellationReason,
		CancelledAt:        o.CancelledAt,
		ShippedAt:          o.ShippedAt,
		DeliveredAt:        o.DeliveredAt,
		FulfilledAt:        o.FulfilledAt,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if o.ShippingAddress != nil {
		data, err := json.Marshal(o.ShippingAddress)
		if err != nil {
			return row, fmt.Errorf("failed to marshal shipping address: %w", err)
		}
		row.ShippingAddress = sql.NullString{String: string(data), Valid: true}
	}
	return row, nil
}

func (row orderRow) order(items []orderItemRow) (models.Order, error) {
	o := models.Order{
		ID:                 row.ID,
		OrderNumber:        row.OrderNumber,
		WholesalerID:       row.WholesalerID,
		TotalAmount:        row.TotalAmount,
		Status:             models.OrderStatus(row.Status),
		PaymentStatus:      models.PaymentStatus(row.PaymentStatus),
		Notes:              row.Notes,
		ApprovedBy:         row.ApprovedBy,
		ApprovedAt:         row.ApprovedAt,
		RejectionReason:    row.RejectionReason,
		CancellationReason: row.CancellationReason,
		CancelledAt:        row.CancelledAt,
		ShippedAt:          row.ShippedAt,
		DeliveredAt:        row.DeliveredAt,
		FulfilledAt:        row.FulfilledAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
	if row.ShippingAddress.Valid {
		var addr models.ShippingAddress
		if err := json.Unmarshal([]byte(row.ShippingAddress.String), &addr); err != nil {
			return o, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		o.ShippingAddress = &addr
	}
	o.Items = make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, models.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		})
	}
	return o, nil
}

func getOrder(ctx context.Context, q sqlx.QueryerContext, id string, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var row orderRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	var items []orderItemRow
	itemsQuery := `SELECT order_id, line_no, product_id, product_name, sku, quantity, unit_price, subtotal
		FROM order_items WHERE order_id = $1 ORDER BY line_no`
	if err := sqlx.SelectContext(ctx, q, &items, itemsQuery, id); err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}

	o, err := row.order(items)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LockOrder reads and row-locks an order with its items.
func (t *pgTx) LockOrder(ctx context.Context, id string) (*models.Order, error) {
	return getOrder(ctx, t.tx, id, true)
}

// InsertOrder inserts an order and its items.
func (t *pgTx) InsertOrder(ctx context.Context, o models.Order) error {
	row, err := toOrderRow(o)
	if err != nil {
		return err
	}

	orderQuery := `INSERT INTO orders (` + orderColumns + `) VALUES (
		:id, :order_number, :wholesaler_id, :total_amount, :order_status, :payment_status,
		:shipping_address, :notes, :approved_by, :approved_at, :rejection_reason,
		:cancellation_reason, :cancelled_at, :shipped_at, :delivered_at, :fulfilled_at,
		:created_at, :updated_at
	)`
	if _, err := t.tx.NamedExecContext(ctx, orderQuery, row); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (order_id, line_no, product_id, product_name, sku, quantity, unit_price, subtotal)
		VALUES (:order_id, :line_no, :product_id, :product_name, :sku, :quantity, :unit_price, :subtotal)`
	for i, it := range o.Items {
		item := orderItemRow{
			OrderID:     o.ID,
			LineNo:      i + 1,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Subtotal:    it.Subtotal,
		}
		if _, err := t.tx.NamedExecContext(ctx, itemQuery, item); err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

// UpdateOrder persists status and lifecycle fields. Items never change after
// placement.
func (t *pgTx) UpdateOrder(ctx context.Context, o models.Order) error {
	row, err := toOrderRow(o)
	if err != nil {
		return err
	}

	query := `
		UPDATE orders SET
			order_status = :order_status,
			payment_status = :payment_status,
			approved_by = :approved_by,
			approved_at = :approved_at,
			rejection_reason = :rejection_reason,
			cancellation_reason = :cancellation_reason,
			cancelled_at = :cancelled_at,
			shipped_at = :shipped_at,
			delivered_at = :delivered_at,
			fulfilled_at = :fulfilled_at,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := t.tx.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("order %s not found", o.ID)
	}
	return nil
}

// NextOrderSequence bumps the per-day counter. The row stays locked until
// the surrounding transaction ends. A day's first counter starts after any
// orders already numbered for that day.
func (t *pgTx) NextOrderSequence(ctx context.Context, day time.Time) (int, error) {
	query := `
		INSERT INTO order_sequences (day, last_value)
		VALUES ($1, 1 + (SELECT COUNT(*) FROM orders WHERE order_number LIKE $2))
		ON CONFLICT (day) DO UPDATE SET last_value = order_sequences.last_value + 1
		RETURNING last_value`

	prefix := strings.TrimSuffix(models.FormatOrderNumber(day, 0), "0000") + "%"

	var seq int
	if err := t.tx.GetContext(ctx, &seq, query, day.Format("2006-01-02"), prefix); err != nil {
		return 0, fmt.Errorf("failed to allocate order number: %w", err)
	}
	return seq, nil
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return getOrder(ctx, s.db, id, false)
}

// ListOrders returns orders newest first with their items.
func (s *PostgresStore) ListOrders(ctx context.Context, f models.OrderFilter) (models.Page[models.Order], error) {
	f = f.Normalize()
	page := models.Page[models.Order]{Page: f.Page, Limit: f.Limit, Items: []models.Order{}}

	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Status != "" {
		conditions = append(conditions, "order_status = "+arg(string(f.Status)))
	}
	if f.WholesalerID != "" {
		conditions = append(conditions, "wholesaler_id = "+arg(f.WholesalerID))
	}
	if f.From != nil {
		conditions = append(conditions, "created_at >= "+arg(*f.From))
	}
	if f.To != nil {
		conditions = append(conditions, "created_at <= "+arg(*f.To))
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	if err := s.db.GetContext(ctx, &page.Total, "SELECT COUNT(*) FROM orders"+where, args...); err != nil {
		return page, fmt.Errorf("failed to count orders: %w", err)
	}

	query := "SELECT " + orderColumns + " FROM orders" + where +
		" ORDER BY created_at DESC LIMIT " + arg(f.Limit) + " OFFSET " + arg(models.Offset(f.Page, f.Limit))

	var rows []orderRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return page, fmt.Errorf("failed to query orders: %w", err)
	}
	if len(rows) == 0 {
		return page, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}

	itemsQuery, itemArgs, err := sqlx.In(`SELECT order_id, line_no, product_id, product_name, sku, quantity, unit_price, subtotal
		FROM order_items WHERE order_id IN (?) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return page, fmt.Errorf("failed to build order items query: %w", err)
	}

	var items []orderItemRow
	if err := s.db.SelectContext(ctx, &items, s.db.Rebind(itemsQuery), itemArgs...); err != nil {
		return page, fmt.Errorf("failed to query order items: %w", err)
	}

	byOrder := make(map[string][]orderItemRow, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], it)
	}

	for _, r := range rows {
		o, err := r.order(byOrder[r.ID])
		if err != nil {
			return page, err
		}
		page.Items = append(page.Items, o)
	}
	return page, nil
}
